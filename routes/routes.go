package routes

import (
	"net/http"
	"time"

	"checkout-service/config"
	"checkout-service/controllers"
	"checkout-service/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func Register(
	r *gin.Engine,
	cartController *controllers.CartController,
	checkoutController *controllers.CheckoutController,
	webhookController *controllers.WebhookController,
	cfg *config.Config,
	logger *zap.Logger,
) {
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.SecurityHeaders())

	limiter := middleware.NewRateLimiter(rate.Limit(20), 40, 10*time.Minute)
	r.Use(limiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Stripe webhook: unauthenticated, verified by signature
	r.POST("/payments/webhook", webhookController.StripeWebhook)

	authed := r.Group("/")
	authed.Use(middleware.CartKeyMiddleware(cfg.AuthJWTSecret))
	{
		cart := authed.Group("/cart")
		{
			cart.GET("", cartController.GetCart)
			cart.POST("/add", cartController.AddItem)
			cart.POST("/update", cartController.UpdateItem)
			cart.POST("/remove", cartController.RemoveItem)
			cart.POST("/clear", cartController.ClearCart)
		}

		authed.POST("/checkout", checkoutController.Checkout)
		authed.POST("/payments/initiate", checkoutController.InitiatePayment)
		authed.GET("/orders/:order_number", checkoutController.GetOrder)
	}
}
