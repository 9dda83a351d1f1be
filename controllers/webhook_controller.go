package controllers

import (
	"errors"
	"net/http"

	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookController struct {
	Stripe *services.StripeGateway
	Saga   *services.CheckoutSaga
	Logger *zap.Logger
}

func NewWebhookController(stripe *services.StripeGateway, saga *services.CheckoutSaga, logger *zap.Logger) *WebhookController {
	return &WebhookController{Stripe: stripe, Saga: saga, Logger: logger}
}

// StripeWebhook receives payment confirmations from Stripe. The signature
// is verified before anything is trusted; replayed events are absorbed by
// the saga's idempotent confirmation.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	result, err := wc.Stripe.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		wc.Logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}
	if result == nil {
		// event type the saga does not care about
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := wc.Saga.ConfirmPayment(c.Request.Context(), *result); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			// Ack so the gateway stops retrying a reference we will never know.
			wc.Logger.Warn("Webhook for unknown gateway reference",
				zap.String("gateway_ref", result.GatewayRef))
			c.JSON(http.StatusOK, gin.H{"status": "received"})
			return
		}
		wc.Logger.Error("Failed to process payment confirmation",
			zap.String("gateway_ref", result.GatewayRef), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
