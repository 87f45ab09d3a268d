package main

import (
	"context"
	"log"
	"strings"

	"github.com/Rocket-Marketplace/payments-service/config"
	"github.com/Rocket-Marketplace/payments-service/controllers"
	"github.com/Rocket-Marketplace/payments-service/database"
	"github.com/Rocket-Marketplace/payments-service/kafka"
	"github.com/Rocket-Marketplace/payments-service/logger"
	"github.com/Rocket-Marketplace/payments-service/middleware"
	"github.com/Rocket-Marketplace/payments-service/models"
	awspkg "github.com/Rocket-Marketplace/payments-service/pkg/aws"
	"github.com/Rocket-Marketplace/payments-service/repository"
	"github.com/Rocket-Marketplace/payments-service/routes"
	"github.com/Rocket-Marketplace/payments-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "payments-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[PaymentsService] Failed to load config:", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	db, err := database.Connect(cfg, logger.Log, &models.Payment{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to DB", zap.Error(err))
	}

	paymentRepo := repository.NewGormPaymentRepo(db)
	gateway := services.NewStripeGateway(cfg, logger.Log)
	paymentService := services.NewPaymentService(paymentRepo, gateway, cfg, logger.Log)

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	producer := kafka.NewPaymentEventProducer(brokers, cfg.PaymentEventsTopic, serviceName, logger.Log)
	defer producer.Close()

	handler := services.NewOrderEventHandler(paymentService, producer, logger.Log)

	ctx := context.Background()
	startOrderConsumer(ctx, cfg, handler)

	var metricsClient *awspkg.MetricsClient
	if cfg.CloudWatchEnabled {
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))

	pc := controllers.NewPaymentController(paymentService, logger.Log)
	routes.RegisterPaymentRoutes(r, pc)

	logger.Log.Info("Payments service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed", zap.Error(err))
	}
}

// startOrderConsumer wires the configured transport to the shared envelope
// handler. Both transports deliver the same envelope contract.
func startOrderConsumer(ctx context.Context, cfg *config.Config, handler *services.OrderEventHandler) {
	switch cfg.ConsumerTransport {
	case "sqs":
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		consumer := awspkg.NewSQSConsumer(awsCfg, cfg.OrderEventsQueueURL, logger.Log)
		go func() {
			if err := consumer.StartPolling(ctx, func(ctx context.Context, body string) error {
				return handler.HandleEnvelope(ctx, []byte(body))
			}); err != nil && ctx.Err() == nil {
				logger.Log.Error("SQS consumer stopped", zap.Error(err))
			}
		}()
	default:
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		consumer := kafka.NewOrderEventConsumer(
			brokers,
			cfg.OrderEventsTopic,
			cfg.OrderEventsGroupID,
			handler.HandleEnvelope,
			logger.Log,
		)
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Log.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
	}
}
