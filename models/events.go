package models

import "time"

// Order lifecycle event types published to Kafka.
const (
	EventOrderCreated     = "order.created"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventOrderExpired     = "order.expired"
)

type OrderEvent struct {
	Type        string    `json:"type"`
	OrderNumber string    `json:"order_number"`
	CartKey     string    `json:"cart_key"`
	Amount      Money     `json:"amount"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"`
}

// GatewayResult is the normalized payload of an asynchronous payment gateway
// confirmation, after webhook signature verification.
type GatewayResult struct {
	GatewayRef    string `json:"gateway_reference_id"`
	Succeeded     bool   `json:"succeeded"`
	TransactionID string `json:"transaction_id"`
}
