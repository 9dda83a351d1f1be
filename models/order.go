package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPendingPayment   OrderStatus = "pending_payment"
	OrderStatusPaymentInitiated OrderStatus = "payment_initiated"
	OrderStatusPaid             OrderStatus = "paid"
	OrderStatusPaymentFailed    OrderStatus = "payment_failed"
	OrderStatusExpired          OrderStatus = "expired"
)

type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null" json:"order_number"`
	CartKey     string      `gorm:"index;not null" json:"cart_key"`
	Amount      Money       `gorm:"not null" json:"total_amount"`
	Currency    string      `gorm:"type:varchar(10);not null" json:"currency"`
	Status      OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	GatewayRef  *string     `gorm:"uniqueIndex" json:"-"` // payment gateway session id
	PaymentURL  *string     `gorm:"type:varchar(1024)" json:"-"`
	ExpiresAt   time.Time   `gorm:"index" json:"expires_at"`
	PaidAt      *time.Time  `json:"paid_at,omitempty"`
	FailedAt    *time.Time  `json:"failed_at,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	OrderItems  []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	ProductID string    `gorm:"not null" json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice Money     `gorm:"not null" json:"unit_price"`
}

// Live reports whether the order is still inside the checkout saga, i.e.
// a repeated begin-checkout call must return it instead of minting a new one.
func (o *Order) Live() bool {
	return o.Status == OrderStatusPendingPayment || o.Status == OrderStatusPaymentInitiated
}
