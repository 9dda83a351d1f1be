package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/catalog"
	"checkout-service/database"
	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentSession is the ephemeral handle to one external payment attempt.
type PaymentSession struct {
	GatewayRef string
	PaymentURL string
	ExpiresAt  time.Time
}

// PaymentGateway abstracts the third-party payment provider.
type PaymentGateway interface {
	CreateSession(ctx context.Context, orderNumber string, amount models.Money, currency string) (*PaymentSession, error)
}

// EventPublisher publishes order lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// CheckoutSaga drives a cart through order creation, payment initiation and
// confirmation. The hard requirements: a cart converts to at most one order
// no matter how often the client retries, and a gateway failure never leaves
// the order or cart stuck half-transitioned.
type CheckoutSaga struct {
	carts          database.CartRepository
	catalog        catalog.Catalog
	orders         repository.OrderRepository
	gateway        PaymentGateway
	events         EventPublisher
	locks          *keyedMutex
	orderTTL       time.Duration
	gatewayTimeout time.Duration
	currency       string
	logger         *zap.Logger
}

func NewCheckoutSaga(
	carts database.CartRepository,
	cat catalog.Catalog,
	orders repository.OrderRepository,
	gateway PaymentGateway,
	events EventPublisher,
	locks *keyedMutex,
	orderTTL, gatewayTimeout time.Duration,
	currency string,
	logger *zap.Logger,
) *CheckoutSaga {
	return &CheckoutSaga{
		carts:          carts,
		catalog:        cat,
		orders:         orders,
		gateway:        gateway,
		events:         events,
		locks:          locks,
		orderTTL:       orderTTL,
		gatewayTimeout: gatewayTimeout,
		currency:       currency,
		logger:         logger,
	}
}

// BeginCheckout locks the cart and creates its order. Re-entrant: while the
// cart is locked with a live order, repeated calls return the same order
// number instead of minting a second one. This is the defense against
// double-submit.
func (s *CheckoutSaga) BeginCheckout(ctx context.Context, cartKey string) (string, error) {
	unlock := s.locks.Lock(cartKey)
	defer unlock()

	cart, err := s.carts.Get(ctx, cartKey)
	if err != nil {
		return "", err
	}
	if cart == nil || len(cart.Items) == 0 {
		return "", fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	switch cart.Status {
	case models.CartStatusConverted:
		return "", fmt.Errorf("%w: cart already converted to order %s", ErrValidation, cart.OrderNumber)
	case models.CartStatusLocked:
		orderNumber, proceed, err := s.resumeLockedCart(ctx, cart)
		if err != nil || !proceed {
			return orderNumber, err
		}
		// cart was released back to open; fall through to a fresh checkout
	}

	items, total, err := s.snapshotItems(ctx, cart)
	if err != nil {
		return "", err
	}

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: newOrderNumber(),
		CartKey:     cartKey,
		Amount:      total,
		Currency:    s.currency,
		Status:      models.OrderStatusPendingPayment,
		ExpiresAt:   time.Now().Add(s.orderTTL),
		OrderItems:  items,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return "", err
	}

	prev := cart.Version
	cart.Status = models.CartStatusLocked
	cart.OrderNumber = order.OrderNumber
	cart.Version++
	if err := s.carts.Save(ctx, cart, prev); err != nil {
		// Lost the lock race to another instance; retire the order we just
		// minted so the winner's order is the only live one.
		if _, mErr := s.orders.MarkExpired(ctx, order.OrderNumber); mErr != nil {
			s.logger.Error("Failed to retire superseded order",
				zap.String("order_number", order.OrderNumber), zap.Error(mErr))
		}
		return "", err
	}

	s.logger.Info("Checkout started",
		zap.String("cart_key", cartKey),
		zap.String("order_number", order.OrderNumber),
		zap.String("amount", order.Amount.String()),
	)
	s.publish(ctx, models.EventOrderCreated, order)

	return order.OrderNumber, nil
}

// resumeLockedCart decides what a checkout call means for a cart that is
// already locked. Returns proceed=true when the stale lock was released and
// a fresh checkout should continue.
func (s *CheckoutSaga) resumeLockedCart(ctx context.Context, cart *models.Cart) (string, bool, error) {
	if cart.OrderNumber == "" {
		// Lock without an order should not happen; release and start over.
		return "", true, s.releaseCart(ctx, cart)
	}

	order, err := s.orders.FindByOrderNumber(ctx, cart.OrderNumber)
	if errors.Is(err, ErrOrderNotFound) {
		return "", true, s.releaseCart(ctx, cart)
	}
	if err != nil {
		return "", false, err
	}

	if order.Live() {
		return order.OrderNumber, false, nil
	}

	if order.Status == models.OrderStatusPaid {
		// Crash window between MarkPaid and cart conversion: finish it now.
		if err := s.convertCart(ctx, cart); err != nil {
			return "", false, err
		}
		return "", false, fmt.Errorf("%w: cart already converted to order %s", ErrValidation, order.OrderNumber)
	}

	// payment_failed or expired: the customer may check out again
	return "", true, s.releaseCart(ctx, cart)
}

// InitiatePayment obtains a payment session for a pending order. Safe to
// retry: a gateway failure leaves the order at pending_payment, and a repeat
// call on an initiated order returns the stored redirect URL.
func (s *CheckoutSaga) InitiatePayment(ctx context.Context, orderNumber string) (string, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return "", err
	}

	switch order.Status {
	case models.OrderStatusPaymentInitiated:
		if order.PaymentURL != nil {
			return *order.PaymentURL, nil
		}
		return "", fmt.Errorf("%w: payment already initiated", ErrValidation)
	case models.OrderStatusPendingPayment:
	default:
		return "", fmt.Errorf("%w: order is %s", ErrValidation, order.Status)
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	session, err := s.gateway.CreateSession(gctx, order.OrderNumber, order.Amount, order.Currency)
	if err != nil {
		// Order stays pending_payment so the client can retry.
		s.logger.Warn("Payment session creation failed",
			zap.String("order_number", orderNumber), zap.Error(err))
		return "", err
	}

	ok, err := s.orders.SetPaymentSession(ctx, orderNumber, session.GatewayRef, session.PaymentURL)
	if err != nil {
		return "", err
	}
	if !ok {
		// A concurrent initiation won the guarded update; reuse its session.
		current, err := s.orders.FindByOrderNumber(ctx, orderNumber)
		if err == nil && current.Status == models.OrderStatusPaymentInitiated && current.PaymentURL != nil {
			return *current.PaymentURL, nil
		}
		return "", fmt.Errorf("%w: order is no longer payable", ErrValidation)
	}

	s.logger.Info("Payment initiated",
		zap.String("order_number", orderNumber),
		zap.String("gateway_ref", session.GatewayRef),
	)
	return session.PaymentURL, nil
}

// ConfirmPayment handles the asynchronous gateway confirmation. Idempotent:
// replaying a confirmation for an already-settled order is a no-op. On
// success the order is marked paid and the cart converted; on failure the
// order fails and the cart unlocks so the customer can edit and retry.
func (s *CheckoutSaga) ConfirmPayment(ctx context.Context, result models.GatewayResult) error {
	order, err := s.orders.FindByGatewayRef(ctx, result.GatewayRef)
	if err != nil {
		return err
	}

	if result.Succeeded {
		transitioned, err := s.orders.MarkPaid(ctx, order.OrderNumber)
		if err != nil {
			return err
		}
		if !transitioned {
			if order.Status == models.OrderStatusPaid {
				s.logger.Info("Skipping replayed payment confirmation",
					zap.String("order_number", order.OrderNumber))
				return nil
			}
			s.logger.Error("Gateway confirmed payment for a non-live order",
				zap.String("order_number", order.OrderNumber),
				zap.String("status", string(order.Status)),
			)
			return nil
		}

		s.finishCart(ctx, order, true)
		s.publish(ctx, models.EventPaymentSucceeded, order)
		s.logger.Info("Order paid",
			zap.String("order_number", order.OrderNumber),
			zap.String("transaction_id", result.TransactionID),
		)
		return nil
	}

	transitioned, err := s.orders.MarkFailed(ctx, order.OrderNumber)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	s.finishCart(ctx, order, false)
	s.publish(ctx, models.EventPaymentFailed, order)
	s.logger.Info("Payment failed, cart released",
		zap.String("order_number", order.OrderNumber))
	return nil
}

// ExpireStale transitions orders whose TTL passed without payment and
// releases their carts. Idempotent reconciliation step run by the sweeper.
func (s *CheckoutSaga) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.orders.FindExpiredPending(ctx, now, 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		order := &stale[i]
		transitioned, err := s.orders.MarkExpired(ctx, order.OrderNumber)
		if err != nil {
			s.logger.Error("Failed to expire order",
				zap.String("order_number", order.OrderNumber), zap.Error(err))
			continue
		}
		if !transitioned {
			continue
		}
		s.finishCart(ctx, order, false)
		s.publish(ctx, models.EventOrderExpired, order)
		expired++
	}
	return expired, nil
}

// GetOrder returns the order as a read-only record.
func (s *CheckoutSaga) GetOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.orders.FindByOrderNumber(ctx, orderNumber)
}

// finishCart settles the cart side of a terminal order transition: convert
// on payment, release back to open otherwise. Failures are logged, not
// returned — resumeLockedCart reconciles any cart this misses.
func (s *CheckoutSaga) finishCart(ctx context.Context, order *models.Order, paid bool) {
	unlock := s.locks.Lock(order.CartKey)
	defer unlock()

	cart, err := s.carts.Get(ctx, order.CartKey)
	if err != nil {
		s.logger.Error("Failed to load cart after order transition",
			zap.String("cart_key", order.CartKey), zap.Error(err))
		return
	}
	if cart == nil || cart.Status != models.CartStatusLocked || cart.OrderNumber != order.OrderNumber {
		return
	}

	if paid {
		err = s.convertCart(ctx, cart)
	} else {
		err = s.releaseCart(ctx, cart)
	}
	if err != nil {
		s.logger.Error("Failed to settle cart after order transition",
			zap.String("cart_key", order.CartKey),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}
}

func (s *CheckoutSaga) convertCart(ctx context.Context, cart *models.Cart) error {
	prev := cart.Version
	cart.Status = models.CartStatusConverted
	cart.Version++
	return s.carts.Save(ctx, cart, prev)
}

func (s *CheckoutSaga) releaseCart(ctx context.Context, cart *models.Cart) error {
	prev := cart.Version
	cart.Status = models.CartStatusOpen
	cart.OrderNumber = ""
	cart.Version++
	return s.carts.Save(ctx, cart, prev)
}

// snapshotItems freezes the cart's lines at current catalog prices. Every
// product must still be sellable at checkout time.
func (s *CheckoutSaga) snapshotItems(ctx context.Context, cart *models.Cart) ([]models.OrderItem, models.Money, error) {
	items := make([]models.OrderItem, 0, len(cart.Items))
	var total models.Money
	for _, it := range cart.Items {
		product, err := s.catalog.Product(ctx, it.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrProductUnavailable, err)
		}
		if !product.Sellable() {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductUnavailable, it.ProductID)
		}
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			ProductID: it.ProductID,
			Name:      product.Name,
			Quantity:  it.Quantity,
			UnitPrice: product.Price,
		})
		total += product.Price * models.Money(it.Quantity)
	}
	return items, total, nil
}

func (s *CheckoutSaga) publish(ctx context.Context, eventType string, order *models.Order) {
	if s.events == nil {
		return
	}
	event := models.OrderEvent{
		Type:        eventType,
		OrderNumber: order.OrderNumber,
		CartKey:     order.CartKey,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		// best-effort; downstream consumers reconcile from order storage
		s.logger.Warn("Failed to publish order event",
			zap.String("type", eventType),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}
}

func newOrderNumber() string {
	return "ORD-" + time.Now().Format("20060102-150405") + "-" + uuid.New().String()[:8]
}
