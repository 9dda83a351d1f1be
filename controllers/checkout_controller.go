package controllers

import (
	"net/http"

	"checkout-service/middleware"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckoutController struct {
	Saga   *services.CheckoutSaga
	Logger *zap.Logger
}

func NewCheckoutController(saga *services.CheckoutSaga, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{Saga: saga, Logger: logger}
}

// Checkout locks the cart and returns its order number. Idempotent per
// locked cart: a double-submit gets the same order number back.
func (cc *CheckoutController) Checkout(c *gin.Context) {
	cartKey, err := middleware.GetCartKey(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orderNumber, err := cc.Saga.BeginCheckout(c.Request.Context(), cartKey)
	if err != nil {
		cc.Logger.Warn("Checkout rejected", zap.String("cart_key", cartKey), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_number": orderNumber})
}

type initiatePaymentRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
}

// InitiatePayment obtains the payment redirect URL for a pending order.
func (cc *CheckoutController) InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	cartKey, err := middleware.GetCartKey(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// The order must belong to the caller's cart.
	order, err := cc.Saga.GetOrder(c.Request.Context(), req.OrderNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.CartKey != cartKey {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	paymentURL, err := cc.Saga.InitiatePayment(c.Request.Context(), req.OrderNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_url": paymentURL})
}

// GetOrder returns the order as a read-only record for the order-status page.
func (cc *CheckoutController) GetOrder(c *gin.Context) {
	cartKey, err := middleware.GetCartKey(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	order, err := cc.Saga.GetOrder(c.Request.Context(), c.Param("order_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order.CartKey != cartKey {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}
