package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"checkout-service/catalog"
	"checkout-service/config"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/kafka"
	"checkout-service/logger"
	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	// Storage
	redisClient := database.NewRedisClient(cfg.RedisURL)
	db, err := database.Connect(cfg.PostgresDSN())
	if err != nil {
		logger.Log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		logger.Log.Fatal("Failed to migrate order models", zap.Error(err))
	}

	cartRepo := database.NewRedisCartRepository(redisClient, cfg.CartTTL)
	orderRepo := repository.NewGormOrderRepository(db)
	catalogClient := catalog.NewClient(cfg.CatalogURL, redisClient, logger.Log)

	// Events
	producer := kafka.NewOrderEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventsTopic, logger.Log)
	defer producer.Close()

	// Services
	locks := services.NewCartLocks()
	cartSvc := services.NewCartService(cartRepo, catalogClient, cfg.MaxItemQuantity, logger.Log)
	gateway := services.NewMutationGateway(cartSvc, locks, cfg.MaxItemQuantity, logger.Log)
	stripeGateway := services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookKey, cfg.FrontendURL, logger.Log)
	saga := services.NewCheckoutSaga(
		cartRepo, catalogClient, orderRepo, stripeGateway, producer, locks,
		cfg.OrderTTL, cfg.GatewayTimeout, cfg.Currency, logger.Log,
	)

	// Background expiry sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := services.NewExpirySweeper(saga, cfg.SweepInterval, logger.Log)
	go sweeper.Start(sweepCtx)

	// HTTP server
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.Register(
		router,
		controllers.NewCartController(gateway, cartSvc, logger.Log),
		controllers.NewCheckoutController(saga, logger.Log),
		controllers.NewWebhookController(stripeGateway, saga, logger.Log),
		cfg,
		logger.Log,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Checkout service is running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Log.Info("Shutting down gracefully...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Shutdown error", zap.Error(err))
	}
	logger.Log.Info("Server shutdown complete")
}
