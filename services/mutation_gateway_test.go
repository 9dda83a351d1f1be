package services

import (
	"context"
	"sync"
	"testing"

	"checkout-service/catalog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGatewayFixture(t *testing.T) (*MutationGateway, *memCartRepo) {
	t.Helper()
	repo := newMemCartRepo()
	cat := newStubCatalog()
	cat.put(catalog.Product{ID: "prod-a", Name: "Widget", Price: 10000, Stock: 100, Active: true})
	svc := NewCartService(repo, cat, 99, zap.NewNop())
	gw := NewMutationGateway(svc, NewCartLocks(), 99, zap.NewNop())
	return gw, repo
}

func TestGateway_RejectsBadQuantities(t *testing.T) {
	gw, _ := newGatewayFixture(t)
	ctx := context.Background()

	_, err := gw.Apply(ctx, "user:1", 0, CartMutation{Op: OpAddItem, ProductID: "prod-a", Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = gw.Apply(ctx, "user:1", 0, CartMutation{Op: OpAddItem, ProductID: "prod-a", Quantity: -3})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = gw.Apply(ctx, "user:1", 0, CartMutation{Op: OpAddItem, ProductID: "prod-a", Quantity: 100})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = gw.Apply(ctx, "user:1", 0, CartMutation{Op: OpAddItem, ProductID: "", Quantity: 1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = gw.Apply(ctx, "user:1", 0, CartMutation{Op: OpRemoveItem})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGateway_ValidationLeavesStateUntouched(t *testing.T) {
	gw, repo := newGatewayFixture(t)

	_, err := gw.Apply(context.Background(), "user:1", 0, CartMutation{Op: OpAddItem, ProductID: "prod-a", Quantity: -1})
	require.Error(t, err)

	cart, err := repo.Get(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Nil(t, cart)
}

// Two concurrent mutations with the same expected version must not both
// land: serialization makes the version check reliable, so exactly one wins
// and the other gets a conflict to retry from.
func TestGateway_ConcurrentMutationsSerialized(t *testing.T) {
	gw, repo := newGatewayFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gw.Apply(ctx, "user:1", 0, CartMutation{Op: OpAddItem, ProductID: "prod-a", Quantity: 1})
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrVersionConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)

	cart, err := repo.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cart.Version)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestGateway_SetQuantityRequiresItemID(t *testing.T) {
	gw, _ := newGatewayFixture(t)

	_, err := gw.Apply(context.Background(), "user:1", 0, CartMutation{Op: OpSetQuantity, ItemID: uuid.Nil, Quantity: 2})
	assert.ErrorIs(t, err, ErrValidation)
}
