package services

import (
	"context"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MutationGateway fronts the CartService: it rejects malformed mutations
// before any state is touched and serializes mutations per cart key, so two
// concurrent requests for the same cart cannot race past each other's
// version check.
type MutationGateway struct {
	carts  *CartService
	locks  *keyedMutex
	maxQty int
	logger *zap.Logger
}

func NewMutationGateway(carts *CartService, locks *keyedMutex, maxQty int, logger *zap.Logger) *MutationGateway {
	return &MutationGateway{
		carts:  carts,
		locks:  locks,
		maxQty: maxQty,
		logger: logger,
	}
}

func (g *MutationGateway) Apply(ctx context.Context, cartKey string, expectedVersion int64, m CartMutation) (*models.CartView, error) {
	if err := g.validate(m); err != nil {
		return nil, err
	}

	unlock := g.locks.Lock(cartKey)
	defer unlock()

	view, err := g.carts.ApplyMutation(ctx, cartKey, expectedVersion, m)
	if err != nil {
		g.logger.Warn("Cart mutation rejected",
			zap.String("cart_key", cartKey),
			zap.Int64("expected_version", expectedVersion),
			zap.Error(err),
		)
		return nil, err
	}
	return view, nil
}

func (g *MutationGateway) Clear(ctx context.Context, cartKey string) error {
	unlock := g.locks.Lock(cartKey)
	defer unlock()
	return g.carts.Clear(ctx, cartKey)
}

func (g *MutationGateway) validate(m CartMutation) error {
	switch m.Op {
	case OpAddItem:
		if m.ProductID == "" {
			return fmt.Errorf("%w: product_id is required", ErrValidation)
		}
		if m.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
		}
		if m.Quantity > g.maxQty {
			return fmt.Errorf("%w: quantity %d exceeds limit %d", ErrValidation, m.Quantity, g.maxQty)
		}
	case OpSetQuantity:
		if m.ItemID == uuid.Nil {
			return fmt.Errorf("%w: item_id is required", ErrValidation)
		}
		if m.Quantity > g.maxQty {
			return fmt.Errorf("%w: quantity %d exceeds limit %d", ErrValidation, m.Quantity, g.maxQty)
		}
	case OpRemoveItem:
		if m.ItemID == uuid.Nil {
			return fmt.Errorf("%w: item_id is required", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown operation", ErrValidation)
	}
	return nil
}

// NewCartLocks builds the shared per-cart lock table used by both the
// mutation gateway and the checkout saga, so checkout transitions and
// ordinary mutations for one cart never overlap.
func NewCartLocks() *keyedMutex {
	return newKeyedMutex(10 * time.Minute)
}
