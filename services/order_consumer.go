package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rocket-Marketplace/payments-service/models"

	"go.uber.org/zap"
)

// OrderEventType tags envelopes carrying a payment request for an order.
const OrderEventType = "payment_order"

// paymentProcessor is the slice of PaymentService the handler needs.
type paymentProcessor interface {
	ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*ProcessPaymentResult, error)
}

// PaymentEventPublisher publishes processed-payment envelopes back to the
// messaging collaborator. May be nil when publishing is disabled.
type PaymentEventPublisher interface {
	Publish(ctx context.Context, eventType, key string, data interface{}) error
}

// OrderEventHandler consumes order payment-request envelopes, independent of
// the transport (Kafka or SQS) that delivered them.
type OrderEventHandler struct {
	payments  paymentProcessor
	publisher PaymentEventPublisher
	logger    *zap.Logger
}

func NewOrderEventHandler(payments paymentProcessor, publisher PaymentEventPublisher, logger *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{
		payments:  payments,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleEnvelope processes one inbound envelope. A nil return acknowledges the
// message; a non-nil return leaves redelivery to the messaging collaborator.
// Envelopes of other types are logged and acknowledged without error.
func (h *OrderEventHandler) HandleEnvelope(ctx context.Context, raw []byte) error {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if env.Type != OrderEventType {
		h.logger.Warn("Ignoring message type", zap.String("type", env.Type), zap.String("message_id", env.ID))
		return nil
	}

	order, err := models.DecodePaymentOrderMessage(env.Data)
	if err != nil {
		return err
	}

	h.logger.Info("Processing payment order",
		zap.String("order_id", order.OrderID),
		zap.String("message_id", env.ID),
	)

	result, err := h.payments.ProcessPayment(ctx, ProcessPaymentInput{
		OrderID:     order.OrderID,
		BuyerID:     order.UserID,
		Amount:      order.Amount,
		Method:      models.PaymentMethod(order.PaymentMethod),
		Description: order.Description,
	})
	if err != nil {
		h.logger.Error("Failed to process payment order",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("Payment order processed",
		zap.String("order_id", order.OrderID),
		zap.String("payment_id", result.PaymentID.String()),
		zap.String("status", string(result.Status)),
	)
	h.publishResult(ctx, order, result)
	return nil
}

// publishResult emits a payment event for downstream services. Publish
// failures are logged only; the payment record is already durable.
func (h *OrderEventHandler) publishResult(ctx context.Context, order *models.PaymentOrderMessage, result *ProcessPaymentResult) {
	if h.publisher == nil {
		return
	}

	event := models.PaymentEvent{
		PaymentID: result.PaymentID.String(),
		OrderID:   order.OrderID,
		BuyerID:   order.UserID,
		Status:    string(result.Status),
		Amount:    order.Amount,
		Message:   result.Message,
		Timestamp: time.Now().UTC(),
	}
	eventType := "payment_" + string(result.Status)

	if err := h.publisher.Publish(ctx, eventType, order.OrderID, event); err != nil {
		h.logger.Warn("Failed to publish payment event",
			zap.String("order_id", order.OrderID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
