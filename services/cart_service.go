package services

import (
	"context"
	"fmt"
	"time"

	"checkout-service/catalog"
	"checkout-service/database"
	"checkout-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MutationOp enumerates the cart operations. Handlers translate the wire
// protocol into one of these; ApplyMutation switches on them exhaustively.
type MutationOp int

const (
	OpAddItem MutationOp = iota
	OpSetQuantity
	OpRemoveItem
)

type CartMutation struct {
	Op        MutationOp
	ProductID string    // OpAddItem
	ItemID    uuid.UUID // OpSetQuantity, OpRemoveItem
	Quantity  int       // OpAddItem, OpSetQuantity
}

// CartService owns cart state and its recomputation. Totals are always
// recomputed from current catalog prices; a price supplied by the client is
// never trusted.
type CartService struct {
	repo    database.CartRepository
	catalog catalog.Catalog
	maxQty  int
	logger  *zap.Logger
}

func NewCartService(repo database.CartRepository, cat catalog.Catalog, maxQty int, logger *zap.Logger) *CartService {
	return &CartService{
		repo:    repo,
		catalog: cat,
		maxQty:  maxQty,
		logger:  logger,
	}
}

// GetCart returns the recomputed view of the cart. A missing cart is an
// empty cart at version 0. Reading never writes: prices are refreshed in
// memory only.
func (s *CartService) GetCart(ctx context.Context, cartKey string) (*models.CartView, error) {
	cart, err := s.repo.Get(ctx, cartKey)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return emptyView(cartKey), nil
	}

	s.refreshPrices(ctx, cart)
	return buildView(cart), nil
}

// ApplyMutation applies a single validated mutation under optimistic
// concurrency: the caller states the version it computed against, and the
// write only lands if that version is still current. On success the version
// has advanced by exactly one and the new full view is returned.
func (s *CartService) ApplyMutation(ctx context.Context, cartKey string, expectedVersion int64, m CartMutation) (*models.CartView, error) {
	cart, err := s.repo.Get(ctx, cartKey)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &models.Cart{
			CartKey: cartKey,
			Items:   []models.CartItem{},
			Status:  models.CartStatusOpen,
		}
	}

	if cart.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	switch cart.Status {
	case models.CartStatusOpen:
	case models.CartStatusLocked:
		return nil, ErrCartLocked
	default:
		return nil, fmt.Errorf("%w: cart is %s", ErrValidation, cart.Status)
	}

	var changed bool
	switch m.Op {
	case OpAddItem:
		changed, err = s.addItem(ctx, cart, m)
	case OpSetQuantity:
		changed, err = s.setQuantity(ctx, cart, m)
	case OpRemoveItem:
		changed = removeItem(cart, m.ItemID)
	default:
		err = fmt.Errorf("%w: unknown operation", ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	s.refreshPrices(ctx, cart)

	if !changed {
		// Removing an absent item is a no-op; nothing persisted, no version bump.
		return buildView(cart), nil
	}

	cart.Version++
	if err := s.repo.Save(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.Info("Cart mutation applied",
		zap.String("cart_key", cartKey),
		zap.Int64("version", cart.Version),
		zap.Int("items", len(cart.Items)),
	)
	return buildView(cart), nil
}

// Clear removes the whole cart (explicit abandonment). Only open carts may
// be cleared; a locked cart is released by the checkout saga instead.
func (s *CartService) Clear(ctx context.Context, cartKey string) error {
	cart, err := s.repo.Get(ctx, cartKey)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	if cart.Status != models.CartStatusOpen {
		return ErrCartLocked
	}
	return s.repo.Delete(ctx, cartKey)
}

func (s *CartService) addItem(ctx context.Context, cart *models.Cart, m CartMutation) (bool, error) {
	product, err := s.catalog.Product(ctx, m.ProductID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProductUnavailable, err)
	}
	if !product.Sellable() {
		return false, fmt.Errorf("%w: %s", ErrProductUnavailable, m.ProductID)
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == m.ProductID {
			newQty := cart.Items[i].Quantity + m.Quantity
			if newQty > s.maxQty {
				return false, fmt.Errorf("%w: quantity %d exceeds limit %d", ErrValidation, newQty, s.maxQty)
			}
			cart.Items[i].Quantity = newQty
			return true, nil
		}
	}

	if m.Quantity > s.maxQty {
		return false, fmt.Errorf("%w: quantity %d exceeds limit %d", ErrValidation, m.Quantity, s.maxQty)
	}
	cart.Items = append(cart.Items, models.CartItem{
		ID:        uuid.New(),
		ProductID: m.ProductID,
		Name:      product.Name,
		Quantity:  m.Quantity,
		UnitPrice: product.Price,
		AddedAt:   time.Now(),
	})
	return true, nil
}

func (s *CartService) setQuantity(ctx context.Context, cart *models.Cart, m CartMutation) (bool, error) {
	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ID == m.ItemID {
			idx = i
			break
		}
	}

	// A decrement to zero or below removes the line; doing that to an
	// already-absent line is a no-op.
	if m.Quantity <= 0 {
		if idx < 0 {
			return false, nil
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return true, nil
	}

	if idx < 0 {
		return false, fmt.Errorf("%w: unknown cart item %s", ErrValidation, m.ItemID)
	}
	if m.Quantity > s.maxQty {
		return false, fmt.Errorf("%w: quantity %d exceeds limit %d", ErrValidation, m.Quantity, s.maxQty)
	}

	if m.Quantity > cart.Items[idx].Quantity {
		product, err := s.catalog.Product(ctx, cart.Items[idx].ProductID)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrProductUnavailable, err)
		}
		if !product.Sellable() {
			return false, fmt.Errorf("%w: %s", ErrProductUnavailable, cart.Items[idx].ProductID)
		}
	}

	if cart.Items[idx].Quantity == m.Quantity {
		return false, nil
	}
	cart.Items[idx].Quantity = m.Quantity
	return true, nil
}

func removeItem(cart *models.Cart, itemID uuid.UUID) bool {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return true
		}
	}
	return false
}

// refreshPrices overwrites every line's price snapshot with the current
// catalog price. When a lookup fails the stored snapshot stands, so a
// catalog outage degrades to slightly stale prices instead of a dead cart.
func (s *CartService) refreshPrices(ctx context.Context, cart *models.Cart) {
	for i := range cart.Items {
		product, err := s.catalog.Product(ctx, cart.Items[i].ProductID)
		if err != nil {
			s.logger.Warn("Price refresh failed, keeping snapshot",
				zap.String("product_id", cart.Items[i].ProductID),
				zap.Error(err),
			)
			continue
		}
		cart.Items[i].UnitPrice = product.Price
		if product.Name != "" {
			cart.Items[i].Name = product.Name
		}
	}
}

func emptyView(cartKey string) *models.CartView {
	return &models.CartView{
		CartKey: cartKey,
		Status:  models.CartStatusOpen,
		Items:   []models.CartViewItem{},
	}
}

func buildView(cart *models.Cart) *models.CartView {
	view := &models.CartView{
		CartKey: cart.CartKey,
		Version: cart.Version,
		Status:  cart.Status,
		Items:   make([]models.CartViewItem, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		lineTotal := item.UnitPrice * models.Money(item.Quantity)
		view.Items = append(view.Items, models.CartViewItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		view.TotalAmount += lineTotal
		view.TotalItems += item.Quantity
	}
	return view
}
