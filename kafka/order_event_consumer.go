package kafka

import (
	"context"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EnvelopeHandler processes one raw envelope. A nil return acknowledges the
// message; an error leaves it uncommitted for redelivery.
type EnvelopeHandler func(ctx context.Context, raw []byte) error

// OrderEventConsumer reads order payment-request envelopes from Kafka. The
// consumer group plays the role of the queue name; the topic is the routing key.
type OrderEventConsumer struct {
	reader  *kafkago.Reader
	handler EnvelopeHandler
	logger  *zap.Logger
	topic   string
}

func NewOrderEventConsumer(brokers []string, topic, groupID string, handler EnvelopeHandler, logger *zap.Logger) *OrderEventConsumer {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		logger.Fatal("OrderEventConsumer topic is empty")
	}
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	logger.Info("OrderEventConsumer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
		zap.String("group_id", groupID),
	)
	return &OrderEventConsumer{reader: r, handler: handler, logger: logger, topic: topic}
}

// Run consumes until ctx is cancelled. Messages are committed only after the
// handler returns nil, so processing failures surface to the broker's
// redelivery policy instead of being swallowed here.
func (c *OrderEventConsumer) Run(ctx context.Context) error {
	c.logger.Info("Starting OrderEventConsumer", zap.String("topic", c.topic))
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("Error reading order event", zap.Error(err))
			continue
		}

		if err := c.handler(ctx, m.Value); err != nil {
			c.logger.Error("Order event left uncommitted for redelivery",
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Warn("Failed to commit order event", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (c *OrderEventConsumer) Close() error {
	return c.reader.Close()
}
