package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Rocket-Marketplace/payments-service/models"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// PaymentEventProducer publishes processed-payment envelopes on the payment
// events routing key.
type PaymentEventProducer struct {
	writer *kafkago.Writer
	source string
	logger *zap.Logger
}

func NewPaymentEventProducer(brokers []string, topic, source string, logger *zap.Logger) *PaymentEventProducer {
	w := &kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafkago.LeastBytes{},
	}
	logger.Info("PaymentEventProducer initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &PaymentEventProducer{writer: w, source: source, logger: logger}
}

// Publish wraps data in the shared envelope and writes it keyed by key so
// events for one order stay ordered.
func (p *PaymentEventProducer) Publish(ctx context.Context, eventType, key string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	env := models.Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      payload,
		Timestamp: time.Now().UTC(),
		Source:    p.source,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return err
	}

	p.logger.Info("Payment event published",
		zap.String("event_id", env.ID),
		zap.String("event_type", eventType),
		zap.String("key", key),
	)
	return nil
}

func (p *PaymentEventProducer) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Warn("Failed to close Kafka writer", zap.Error(err))
	}
}
