package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"checkout-service/catalog"
	"checkout-service/database"
	"checkout-service/models"
	"checkout-service/repository"
)

// In-memory fakes for the storage and collaborator interfaces. They mirror
// the guarded-transition semantics of the real implementations so the saga
// tests exercise the same state machine.

type memCartRepo struct {
	mu    sync.Mutex
	carts map[string]models.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string]models.Cart)}
}

func copyCart(c models.Cart) models.Cart {
	c.Items = append([]models.CartItem(nil), c.Items...)
	return c
}

func (r *memCartRepo) Get(ctx context.Context, cartKey string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.carts[cartKey]
	if !ok {
		return nil, nil
	}
	c := copyCart(stored)
	return &c, nil
}

func (r *memCartRepo) Save(ctx context.Context, cart *models.Cart, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.carts[cart.CartKey]
	if !ok {
		if expectedVersion != 0 {
			return database.ErrVersionConflict
		}
	} else if stored.Version != expectedVersion {
		return database.ErrVersionConflict
	}
	cart.UpdatedAt = time.Now()
	r.carts[cart.CartKey] = copyCart(*cart)
	return nil
}

func (r *memCartRepo) Delete(ctx context.Context, cartKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, cartKey)
	return nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	byRef  map[string]string
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders: make(map[string]*models.Order),
		byRef:  make(map[string]string),
	}
}

func (r *memOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.OrderNumber]; ok {
		return fmt.Errorf("duplicate order number %s", order.OrderNumber)
	}
	clone := *order
	r.orders[order.OrderNumber] = &clone
	return nil
}

func (r *memOrderRepo) find(orderNumber string) (*models.Order, error) {
	order, ok := r.orders[orderNumber]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *memOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(orderNumber)
}

func (r *memOrderRepo) FindByGatewayRef(ctx context.Context, gatewayRef string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orderNumber, ok := r.byRef[gatewayRef]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return r.find(orderNumber)
}

func (r *memOrderRepo) SetPaymentSession(ctx context.Context, orderNumber, gatewayRef, paymentURL string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderNumber]
	if !ok || order.Status != models.OrderStatusPendingPayment {
		return false, nil
	}
	order.Status = models.OrderStatusPaymentInitiated
	order.GatewayRef = &gatewayRef
	order.PaymentURL = &paymentURL
	r.byRef[gatewayRef] = orderNumber
	return true, nil
}

func (r *memOrderRepo) transition(orderNumber string, to models.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderNumber]
	if !ok || !order.Live() {
		return false, nil
	}
	now := time.Now()
	order.Status = to
	switch to {
	case models.OrderStatusPaid:
		order.PaidAt = &now
	case models.OrderStatusPaymentFailed:
		order.FailedAt = &now
	}
	return true, nil
}

func (r *memOrderRepo) MarkPaid(ctx context.Context, orderNumber string) (bool, error) {
	return r.transition(orderNumber, models.OrderStatusPaid)
}

func (r *memOrderRepo) MarkFailed(ctx context.Context, orderNumber string) (bool, error) {
	return r.transition(orderNumber, models.OrderStatusPaymentFailed)
}

func (r *memOrderRepo) MarkExpired(ctx context.Context, orderNumber string) (bool, error) {
	return r.transition(orderNumber, models.OrderStatusExpired)
}

func (r *memOrderRepo) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, order := range r.orders {
		if order.Live() && order.ExpiresAt.Before(now) {
			out = append(out, *order)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type stubCatalog struct {
	mu       sync.Mutex
	products map[string]catalog.Product
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{products: make(map[string]catalog.Product)}
}

func (s *stubCatalog) put(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *stubCatalog) Product(ctx context.Context, productID string) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %s not found in catalog", productID)
	}
	return &p, nil
}

type stubPaymentGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *stubPaymentGateway) CreateSession(ctx context.Context, orderNumber string, amount models.Money, currency string) (*PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	ref := fmt.Sprintf("cs_test_%s_%d", orderNumber, g.calls)
	return &PaymentSession{
		GatewayRef: ref,
		PaymentURL: "https://pay.example.com/" + ref,
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}, nil
}

func (g *stubPaymentGateway) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

type stubPublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *stubPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *stubPublisher) ofType(eventType string) []models.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.OrderEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
