package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"checkout-service/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Product is the slice of the catalog record the cart cares about: current
// price and whether the product can still be sold.
type Product struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Price  models.Money `json:"price"`
	Stock  int          `json:"stock"`
	Active bool         `json:"active"`
}

// Sellable reports whether the product may be added to a cart right now.
func (p *Product) Sellable() bool {
	return p.Active && p.Stock > 0
}

// Catalog looks up current product data. The catalog service owns pricing;
// client-supplied prices are never consulted.
type Catalog interface {
	Product(ctx context.Context, productID string) (*Product, error)
}

// Client fetches products over HTTP from the catalog service, caching
// responses in Redis for a short window to keep cart recomputation cheap.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewClient(baseURL string, cache *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 5 * time.Second},
		cache:    cache,
		cacheTTL: 30 * time.Second,
		logger:   logger,
	}
}

func (c *Client) cacheKey(productID string) string {
	return "catalog:product:" + productID
}

func (c *Client) Product(ctx context.Context, productID string) (*Product, error) {
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, c.cacheKey(productID)).Result(); err == nil {
			var prod Product
			if err := json.Unmarshal([]byte(data), &prod); err == nil {
				return &prod, nil
			}
		}
	}

	url := fmt.Sprintf("%s/products/internal/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("product %s not found in catalog", productID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned %d", resp.StatusCode)
	}

	var prod Product
	if err := json.NewDecoder(resp.Body).Decode(&prod); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(&prod); err == nil {
			if err := c.cache.Set(ctx, c.cacheKey(productID), data, c.cacheTTL).Err(); err != nil {
				c.logger.Warn("Failed to cache product", zap.String("product_id", productID), zap.Error(err))
			}
		}
	}

	return &prod, nil
}
