package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	StripeSecretKey string
	DefaultCurrency string
	GatewayTimeout  time.Duration

	// ConsumerTransport selects how order events arrive: "kafka" or "sqs".
	ConsumerTransport string

	KafkaBrokers       string
	OrderEventsTopic   string // routing key for order payment requests
	OrderEventsGroupID string // queue name, used as the consumer group
	PaymentEventsTopic string

	OrderEventsQueueURL string // SQS queue URL when ConsumerTransport=sqs

	CloudWatchEnabled   bool
	CloudWatchNamespace string
}

func LoadConfig() (*Config, error) {
	// No .env file is fine in containers; rely on the process environment.
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8087"),
		Env:  getEnv("APP_ENV", "development"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "America/Sao_Paulo"),

		StripeSecretKey: os.Getenv("STRIPE_API_KEY"),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "BRL"),
		GatewayTimeout:  time.Duration(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,

		ConsumerTransport: getEnv("CONSUMER_TRANSPORT", "kafka"),

		KafkaBrokers:       getEnv("KAFKA_BROKERS", "localhost:9092"),
		OrderEventsTopic:   getEnv("ORDER_EVENTS_TOPIC", "payment.order"),
		OrderEventsGroupID: getEnv("ORDER_EVENTS_GROUP_ID", "payment_orders_queue"),
		PaymentEventsTopic: getEnv("PAYMENT_EVENTS_TOPIC", "payment.events"),

		OrderEventsQueueURL: os.Getenv("ORDER_EVENTS_QUEUE_URL"),

		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "RocketMarketplace"),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" ||
		cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}

	if cfg.ConsumerTransport != "kafka" && cfg.ConsumerTransport != "sqs" {
		return nil, fmt.Errorf("invalid CONSUMER_TRANSPORT %q: must be kafka or sqs", cfg.ConsumerTransport)
	}
	if cfg.ConsumerTransport == "sqs" && cfg.OrderEventsQueueURL == "" {
		return nil, fmt.Errorf("ORDER_EVENTS_QUEUE_URL is required when CONSUMER_TRANSPORT=sqs")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
