package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"checkout-service/models"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

// StripeGateway implements PaymentGateway on Stripe Checkout Sessions. The
// session URL is what the storefront redirects the customer to; the order
// number travels in session metadata and comes back on the webhook.
type StripeGateway struct {
	webhookSecret string
	frontendURL   string
	sessionTTL    time.Duration
	logger        *zap.Logger
}

func NewStripeGateway(secretKey, webhookSecret, frontendURL string, logger *zap.Logger) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		webhookSecret: webhookSecret,
		frontendURL:   frontendURL,
		sessionTTL:    30 * time.Minute,
		logger:        logger,
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, orderNumber string, amount models.Money, currency string) (*PaymentSession, error) {
	expiresAt := time.Now().Add(g.sessionTTL)

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(int64(amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + orderNumber),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.frontendURL + "/checkout/success?order=" + orderNumber),
		CancelURL:  stripe.String(g.frontendURL + "/checkout/cancel?order=" + orderNumber),
		ExpiresAt:  stripe.Int64(expiresAt.Unix()),
	}
	params.Context = ctx
	params.AddMetadata("order_number", orderNumber)

	sess, err := session.New(params)
	if err != nil {
		return nil, g.classify(orderNumber, err)
	}

	return &PaymentSession{
		GatewayRef: sess.ID,
		PaymentURL: sess.URL,
		ExpiresAt:  expiresAt,
	}, nil
}

// ParseWebhook verifies the Stripe signature and maps the event to a
// normalized gateway result. Events the saga does not care about return
// (nil, nil).
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*models.GatewayResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		ref, txn := sessionRefs(event)
		return &models.GatewayResult{GatewayRef: ref, Succeeded: true, TransactionID: txn}, nil
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		ref, txn := sessionRefs(event)
		return &models.GatewayResult{GatewayRef: ref, Succeeded: false, TransactionID: txn}, nil
	default:
		g.logger.Debug("Ignoring webhook event", zap.String("event_type", string(event.Type)))
		return nil, nil
	}
}

func sessionRefs(event stripe.Event) (gatewayRef, transactionID string) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", ""
	}
	gatewayRef = sess.ID
	if sess.PaymentIntent != nil {
		transactionID = sess.PaymentIntent.ID
	}
	return gatewayRef, transactionID
}

// classify maps a Stripe failure onto the retryability taxonomy: provider
// 5xx and transport errors are retryable, everything else is terminal for
// this attempt.
func (g *StripeGateway) classify(orderNumber string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			g.logger.Warn("Stripe unavailable",
				zap.String("order_number", orderNumber),
				zap.Int("status", stripeErr.HTTPStatusCode),
			)
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		g.logger.Warn("Stripe rejected session",
			zap.String("order_number", orderNumber),
			zap.String("code", string(stripeErr.Code)),
		)
		return fmt.Errorf("%w: %v", ErrGatewayRejected, err)
	}
	// network error or timeout
	return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
}
