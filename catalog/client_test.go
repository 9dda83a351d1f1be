package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"checkout-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientFetchesProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/internal/prod-a", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// the catalog service emits prices as bare decimal numbers
		w.Write([]byte(`{"id":"prod-a","name":"Widget","price":99.99,"stock":3,"active":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	product, err := client.Product(context.Background(), "prod-a")
	require.NoError(t, err)
	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, models.Money(9999), product.Price)
	assert.True(t, product.Sellable())
}

func TestClientUnknownProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	_, err := client.Product(context.Background(), "nope")
	assert.Error(t, err)
}

func TestClientUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	_, err := client.Product(context.Background(), "prod-a")
	assert.Error(t, err)
}

func TestSellable(t *testing.T) {
	assert.True(t, (&Product{Stock: 1, Active: true}).Sellable())
	assert.False(t, (&Product{Stock: 0, Active: true}).Sellable())
	assert.False(t, (&Product{Stock: 5, Active: false}).Sellable())
}
