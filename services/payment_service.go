package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rocket-Marketplace/payments-service/apperrors"
	"github.com/Rocket-Marketplace/payments-service/config"
	"github.com/Rocket-Marketplace/payments-service/models"
	"github.com/Rocket-Marketplace/payments-service/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ProcessPaymentInput struct {
	OrderID     string
	BuyerID     string
	Amount      decimal.Decimal
	Currency    string
	Method      models.PaymentMethod
	Description string
}

type ProcessPaymentResult struct {
	PaymentID uuid.UUID            `json:"paymentId"`
	Status    models.PaymentStatus `json:"status"`
	Message   string               `json:"message,omitempty"`
}

type PaymentStats struct {
	TotalPayments      int64           `json:"totalPayments"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	SuccessfulPayments int64           `json:"successfulPayments"`
	FailedPayments     int64           `json:"failedPayments"`
	PendingPayments    int64           `json:"pendingPayments"`
}

// PaymentService drives the payment lifecycle. It is the sole mutator of
// payment status and gateway-derived fields.
type PaymentService struct {
	repo            repository.PaymentRepository
	gateway         GatewayClient
	defaultCurrency string
	gatewayTimeout  time.Duration
	logger          *zap.Logger
}

func NewPaymentService(repo repository.PaymentRepository, gateway GatewayClient, cfg *config.Config, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:            repo,
		gateway:         gateway,
		defaultCurrency: cfg.DefaultCurrency,
		gatewayTimeout:  cfg.GatewayTimeout,
		logger:          logger,
	}
}

// ProcessPayment creates a pending payment for the order, charges the gateway
// and persists the outcome. A gateway error still leaves a persisted failed
// record behind before being returned to the caller.
func (s *PaymentService) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*ProcessPaymentResult, error) {
	existing, err := s.repo.FindByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Status == models.StatusCompleted {
			return nil, apperrors.ErrAlreadyProcessed
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Payment for order %s", input.OrderID)
	}

	payment := &models.Payment{
		ID:            uuid.New(),
		OrderID:       input.OrderID,
		BuyerID:       input.BuyerID,
		Amount:        input.Amount,
		Currency:      currency,
		PaymentMethod: input.Method,
		Status:        models.StatusPending,
		Description:   description,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	charge, err := s.gateway.Charge(gctx, ChargeRequest{
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Method:      payment.PaymentMethod,
		Description: payment.Description,
		BuyerID:     payment.BuyerID,
	})
	if err != nil {
		now := time.Now()
		msg := err.Error()
		payment.Status = models.StatusFailed
		payment.FailedAt = &now
		payment.ErrorMessage = &msg
		if saveErr := s.repo.Save(ctx, payment); saveErr != nil {
			s.logger.Error("Failed to persist failed payment",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(saveErr),
			)
		}
		return nil, err
	}

	now := time.Now()
	externalID := charge.ExternalID
	payment.ExternalPaymentID = &externalID
	payment.Status = charge.Status
	payment.ProcessingFee = charge.ProcessingFee
	payment.GatewayResponse = datatypes.JSON(charge.Raw)
	payment.ProcessedAt = &now
	if charge.Status == models.StatusFailed {
		payment.FailedAt = &now
		if charge.Message != "" {
			msg := charge.Message
			payment.ErrorMessage = &msg
		}
	}

	if err := s.repo.Save(ctx, payment); err != nil {
		// A concurrent processPayment for the same order won the completed
		// slot; the store constraint is the authority (see the unique index on
		// models.Payment), so surface the race as the duplicate outcome.
		if errors.Is(err, apperrors.ErrDuplicateCompletedPayment) {
			return nil, apperrors.Wrap(apperrors.ErrAlreadyProcessed, err)
		}
		return nil, err
	}

	s.logger.Info("Payment processed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID),
		zap.String("status", string(payment.Status)),
	)
	return &ProcessPaymentResult{
		PaymentID: payment.ID,
		Status:    payment.Status,
		Message:   charge.Message,
	}, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *PaymentService) GetPaymentsByOrder(ctx context.Context, orderID string) ([]models.Payment, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}

func (s *PaymentService) GetPaymentsByBuyer(ctx context.Context, buyerID string) ([]models.Payment, error) {
	return s.repo.FindByBuyerID(ctx, buyerID)
}

// RefundPayment applies a partial or full refund to a completed payment.
// A nil or non-positive amount refunds the full remaining balance. No state is
// persisted when the gateway refuses the refund.
func (s *PaymentService) RefundPayment(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, reason string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status != models.StatusCompleted {
		return nil, apperrors.ErrInvalidState
	}
	if payment.RefundAmount.GreaterThanOrEqual(payment.Amount) {
		return nil, apperrors.ErrAlreadyRefunded
	}

	remaining := payment.RefundableBalance()
	effective := remaining
	if amount != nil && amount.IsPositive() {
		effective = *amount
	}
	if effective.GreaterThan(remaining) {
		return nil, apperrors.ErrRefundExceedsBalance
	}

	if payment.ExternalPaymentID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrRefundFailed, "Refund failed: payment has no gateway reference")
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	if _, err := s.gateway.Refund(gctx, *payment.ExternalPaymentID, &effective); err != nil {
		return nil, err
	}

	payment.RefundAmount = payment.RefundAmount.Add(effective)
	payment.RefundReason = &reason
	if payment.RefundAmount.GreaterThanOrEqual(payment.Amount) {
		payment.Status = models.StatusRefunded
	}

	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("Payment refunded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("refund_amount", effective.String()),
		zap.String("status", string(payment.Status)),
	)
	return payment, nil
}

// UpdatePaymentStatus is an administrative override. It deliberately performs
// no transition-legality checks; operators use it to correct records.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payment.Status = status
	now := time.Now()
	switch status {
	case models.StatusCompleted:
		payment.ProcessedAt = &now
	case models.StatusFailed:
		payment.FailedAt = &now
	}

	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) GetPaymentStats(ctx context.Context) (*PaymentStats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalAmount, err := s.repo.SumAmount(ctx)
	if err != nil {
		return nil, err
	}
	successful, err := s.repo.CountByStatus(ctx, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	failed, err := s.repo.CountByStatus(ctx, models.StatusFailed)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.CountByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, err
	}

	return &PaymentStats{
		TotalPayments:      total,
		TotalAmount:        totalAmount,
		SuccessfulPayments: successful,
		FailedPayments:     failed,
		PendingPayments:    pending,
	}, nil
}
