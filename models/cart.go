package models

import (
	"time"

	"github.com/google/uuid"
)

type CartStatus string

const (
	CartStatusOpen      CartStatus = "open"
	CartStatusLocked    CartStatus = "locked_for_checkout"
	CartStatusConverted CartStatus = "converted"
	CartStatusAbandoned CartStatus = "abandoned"
)

type CartItem struct {
	ID        uuid.UUID `json:"id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice Money     `json:"unit_price"` // snapshot, refreshed from the catalog on every recompute
	AddedAt   time.Time `json:"added_at"`
}

type Cart struct {
	CartKey     string     `json:"cart_key"`
	Items       []CartItem `json:"items"`
	Version     int64      `json:"version"`
	Status      CartStatus `json:"status"`
	OrderNumber string     `json:"order_number,omitempty"` // set once the cart is locked for checkout
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CartView is the full server-recomputed cart returned to the client after
// every read and every accepted mutation. The client renders from it rather
// than doing its own arithmetic.
type CartViewItem struct {
	ID        uuid.UUID `json:"id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice Money     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	LineTotal Money     `json:"line_total"`
}

type CartView struct {
	CartKey     string         `json:"cart_key"`
	Version     int64          `json:"version"`
	Status      CartStatus     `json:"status"`
	Items       []CartViewItem `json:"items"`
	TotalAmount Money          `json:"total_amount"`
	TotalItems  int            `json:"total_items"`
}
