package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	RedisURL         string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	KafkaBrokers     string
	OrderEventsTopic string
	CatalogURL       string
	StripeSecretKey  string
	StripeWebhookKey string
	FrontendURL      string
	Currency         string
	AuthJWTSecret    string
	CartTTL          time.Duration
	OrderTTL         time.Duration
	SweepInterval    time.Duration
	GatewayTimeout   time.Duration
	MaxItemQuantity  int
}

func Load() (*Config, error) {
	// .env is a development convenience; env vars win in deployment
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8086"),
		Env:              getEnv("APP_ENV", "development"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		KafkaBrokers:     getEnv("KAFKA_BROKERS", "localhost:9092"),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order.events"),
		CatalogURL:       getEnv("CATALOG_SERVICE_URL", "http://localhost:8084"),
		StripeSecretKey:  os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		Currency:         getEnv("STORE_CURRENCY", "usd"),
		AuthJWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
		CartTTL:          getDuration("CART_TTL", 7*24*time.Hour),
		OrderTTL:         getDuration("ORDER_TTL", 30*time.Minute),
		SweepInterval:    getDuration("SWEEP_INTERVAL", time.Minute),
		GatewayTimeout:   getDuration("GATEWAY_TIMEOUT", 10*time.Second),
		MaxItemQuantity:  getInt("CART_MAX_ITEM_QTY", 99),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" {
		return nil, fmt.Errorf("missing required POSTGRES_* environment variables")
	}
	if cfg.StripeSecretKey == "" || cfg.StripeWebhookKey == "" {
		return nil, fmt.Errorf("missing STRIPE_API_KEY or STRIPE_WEBHOOK_SECRET")
	}

	return cfg, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
