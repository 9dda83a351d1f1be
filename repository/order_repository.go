package repository

import (
	"context"
	"errors"
	"time"

	"checkout-service/models"

	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository defines the interface for order data access. Status
// transitions are guarded updates: each one names the statuses it may move
// from, so a replayed or racing transition affects zero rows instead of
// clobbering a terminal state.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByGatewayRef(ctx context.Context, gatewayRef string) (*models.Order, error)
	// SetPaymentSession moves pending_payment -> payment_initiated and stores
	// the gateway session. Returns false if the order was not pending.
	SetPaymentSession(ctx context.Context, orderNumber, gatewayRef, paymentURL string) (bool, error)
	// MarkPaid moves pending_payment/payment_initiated -> paid. Returns false
	// if the order was already terminal (idempotent replay).
	MarkPaid(ctx context.Context, orderNumber string) (bool, error)
	// MarkFailed moves pending_payment/payment_initiated -> payment_failed.
	MarkFailed(ctx context.Context, orderNumber string) (bool, error)
	// MarkExpired moves pending_payment/payment_initiated -> expired.
	MarkExpired(ctx context.Context, orderNumber string) (bool, error)
	// FindExpiredPending lists orders still inside the saga whose TTL has
	// passed, for the background sweep.
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
}

var liveStatuses = []models.OrderStatus{
	models.OrderStatusPendingPayment,
	models.OrderStatusPaymentInitiated,
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByGatewayRef(ctx context.Context, gatewayRef string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("gateway_ref = ?", gatewayRef).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) SetPaymentSession(ctx context.Context, orderNumber, gatewayRef, paymentURL string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ? AND status = ?", orderNumber, models.OrderStatusPendingPayment).
		Updates(map[string]interface{}{
			"status":      models.OrderStatusPaymentInitiated,
			"gateway_ref": gatewayRef,
			"payment_url": paymentURL,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *GormOrderRepository) MarkPaid(ctx context.Context, orderNumber string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ? AND status IN ?", orderNumber, liveStatuses).
		Updates(map[string]interface{}{
			"status":  models.OrderStatusPaid,
			"paid_at": &now,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *GormOrderRepository) MarkFailed(ctx context.Context, orderNumber string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ? AND status IN ?", orderNumber, liveStatuses).
		Updates(map[string]interface{}{
			"status":    models.OrderStatusPaymentFailed,
			"failed_at": &now,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *GormOrderRepository) MarkExpired(ctx context.Context, orderNumber string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ? AND status IN ?", orderNumber, liveStatuses).
		Update("status", models.OrderStatusExpired)
	return res.RowsAffected > 0, res.Error
}

func (r *GormOrderRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", liveStatuses, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
