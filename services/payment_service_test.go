package services

import (
	"context"
	"testing"
	"time"

	"github.com/Rocket-Marketplace/payments-service/apperrors"
	"github.com/Rocket-Marketplace/payments-service/config"
	"github.com/Rocket-Marketplace/payments-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock repository ---

type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepo) FindByOrderID(ctx context.Context, orderID string) ([]models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockPaymentRepo) FindByBuyerID(ctx context.Context, buyerID string) ([]models.Payment, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockPaymentRepo) Save(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepo) CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepo) SumAmount(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// --- Mock gateway ---

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChargeResult), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, externalID string, amount *decimal.Decimal) (*RefundResult, error) {
	args := m.Called(ctx, externalID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RefundResult), args.Error(1)
}

func newTestService(repo *MockPaymentRepo, gateway *MockGateway) *PaymentService {
	cfg := &config.Config{
		DefaultCurrency: "BRL",
		GatewayTimeout:  5 * time.Second,
	}
	return NewPaymentService(repo, gateway, cfg, zap.NewNop())
}

func completedPayment(amount string) *models.Payment {
	externalID := "pi_123"
	return &models.Payment{
		ID:                uuid.New(),
		OrderID:           "order-1",
		BuyerID:           "buyer-1",
		Amount:            decimal.RequireFromString(amount),
		Currency:          "BRL",
		PaymentMethod:     models.MethodCreditCard,
		Status:            models.StatusCompleted,
		ExternalPaymentID: &externalID,
	}
}

// --- ProcessPayment ---

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("successful pix charge ends completed", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		repo.On("FindByOrderID", mock.Anything, "O1").Return([]models.Payment{}, nil).Once()
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Payment")).Return(nil).Once()
		gateway.On("Charge", mock.Anything, mock.AnythingOfType("services.ChargeRequest")).Return(&ChargeResult{
			ExternalID:    "pi_abc",
			Status:        models.StatusCompleted,
			ProcessingFee: decimal.RequireFromString("1.50"),
			Raw:           []byte(`{"id":"pi_abc","status":"succeeded"}`),
		}, nil).Once()

		var saved *models.Payment
		repo.On("Save", mock.Anything, mock.AnythingOfType("*models.Payment")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Payment) }).
			Return(nil).Once()

		result, err := svc.ProcessPayment(ctx, ProcessPaymentInput{
			OrderID: "O1",
			BuyerID: "B1",
			Amount:  decimal.RequireFromString("99.99"),
			Method:  models.MethodPix,
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, result.Status)

		require.NotNil(t, saved)
		assert.Equal(t, "O1", saved.OrderID)
		assert.Equal(t, "B1", saved.BuyerID)
		assert.Equal(t, models.MethodPix, saved.PaymentMethod)
		assert.True(t, saved.Amount.Equal(decimal.RequireFromString("99.99")))
		assert.Equal(t, "BRL", saved.Currency)
		assert.Equal(t, "Payment for order O1", saved.Description)
		require.NotNil(t, saved.ExternalPaymentID)
		assert.Equal(t, "pi_abc", *saved.ExternalPaymentID)
		assert.NotNil(t, saved.ProcessedAt)
		assert.Nil(t, saved.FailedAt)

		repo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("duplicate completed order is rejected before charging", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		repo.On("FindByOrderID", mock.Anything, "O1").
			Return([]models.Payment{*completedPayment("50.00")}, nil).Once()

		_, err := svc.ProcessPayment(ctx, ProcessPaymentInput{
			OrderID: "O1",
			BuyerID: "B1",
			Amount:  decimal.RequireFromString("50.00"),
			Method:  models.MethodCreditCard,
		})

		assert.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	})

	t.Run("prior failed attempt does not block a new one", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		failed := completedPayment("50.00")
		failed.Status = models.StatusFailed
		repo.On("FindByOrderID", mock.Anything, "O1").Return([]models.Payment{*failed}, nil).Once()
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Payment")).Return(nil).Once()
		gateway.On("Charge", mock.Anything, mock.Anything).Return(&ChargeResult{
			ExternalID: "pi_retry",
			Status:     models.StatusCompleted,
		}, nil).Once()
		repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := svc.ProcessPayment(ctx, ProcessPaymentInput{
			OrderID: "O1",
			BuyerID: "B1",
			Amount:  decimal.RequireFromString("50.00"),
			Method:  models.MethodCreditCard,
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, result.Status)
		repo.AssertExpectations(t)
	})

	t.Run("gateway error persists a failed record and is re-raised", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		repo.On("FindByOrderID", mock.Anything, "O1").Return([]models.Payment{}, nil).Once()
		repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		gateway.On("Charge", mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrGatewayUnavailable).Once()

		var saved *models.Payment
		repo.On("Save", mock.Anything, mock.AnythingOfType("*models.Payment")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Payment) }).
			Return(nil).Once()

		_, err := svc.ProcessPayment(ctx, ProcessPaymentInput{
			OrderID: "O1",
			BuyerID: "B1",
			Amount:  decimal.RequireFromString("10.00"),
			Method:  models.MethodBoleto,
		})

		assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
		require.NotNil(t, saved)
		assert.Equal(t, models.StatusFailed, saved.Status)
		assert.NotNil(t, saved.FailedAt)
		require.NotNil(t, saved.ErrorMessage)
		assert.NotEmpty(t, *saved.ErrorMessage)
		repo.AssertExpectations(t)
	})

	t.Run("mapped failed status stamps failedAt and errorMessage", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		repo.On("FindByOrderID", mock.Anything, "O1").Return([]models.Payment{}, nil).Once()
		repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		gateway.On("Charge", mock.Anything, mock.Anything).Return(&ChargeResult{
			ExternalID: "pi_failed",
			Status:     models.StatusFailed,
			Message:    "card declined",
		}, nil).Once()

		var saved *models.Payment
		repo.On("Save", mock.Anything, mock.AnythingOfType("*models.Payment")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Payment) }).
			Return(nil).Once()

		result, err := svc.ProcessPayment(ctx, ProcessPaymentInput{
			OrderID: "O1",
			BuyerID: "B1",
			Amount:  decimal.RequireFromString("10.00"),
			Method:  models.MethodCreditCard,
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, result.Status)
		require.NotNil(t, saved)
		assert.NotNil(t, saved.FailedAt)
		require.NotNil(t, saved.ErrorMessage)
		assert.Equal(t, "card declined", *saved.ErrorMessage)
	})

	t.Run("losing a completed-slot race surfaces as already processed", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		repo.On("FindByOrderID", mock.Anything, "O1").Return([]models.Payment{}, nil).Once()
		repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		gateway.On("Charge", mock.Anything, mock.Anything).Return(&ChargeResult{
			ExternalID: "pi_race",
			Status:     models.StatusCompleted,
		}, nil).Once()
		repo.On("Save", mock.Anything, mock.Anything).
			Return(apperrors.ErrDuplicateCompletedPayment).Once()

		_, err := svc.ProcessPayment(ctx, ProcessPaymentInput{
			OrderID: "O1",
			BuyerID: "B1",
			Amount:  decimal.RequireFromString("10.00"),
			Method:  models.MethodCreditCard,
		})

		assert.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)
	})

	t.Run("explicit currency and description are kept", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		repo.On("FindByOrderID", mock.Anything, "O1").Return([]models.Payment{}, nil).Once()

		var created *models.Payment
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Payment")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*models.Payment) }).
			Return(nil).Once()
		gateway.On("Charge", mock.Anything, mock.Anything).Return(&ChargeResult{
			ExternalID: "pi_usd",
			Status:     models.StatusCompleted,
		}, nil).Once()
		repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := svc.ProcessPayment(ctx, ProcessPaymentInput{
			OrderID:     "O1",
			BuyerID:     "B1",
			Amount:      decimal.RequireFromString("10.00"),
			Currency:    "USD",
			Method:      models.MethodPaypal,
			Description: "gift order",
		})

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "USD", created.Currency)
		assert.Equal(t, "gift order", created.Description)
	})
}

// --- RefundPayment ---

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("full refund of completed payment", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		payment := completedPayment("100.00")
		repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()
		gateway.On("Refund", mock.Anything, "pi_123", mock.AnythingOfType("*decimal.Decimal")).
			Return(&RefundResult{Status: "succeeded"}, nil).Once()
		repo.On("Save", mock.Anything, payment).Return(nil).Once()

		updated, err := svc.RefundPayment(ctx, payment.ID, nil, "customer request")

		require.NoError(t, err)
		assert.True(t, updated.RefundAmount.Equal(decimal.RequireFromString("100.00")))
		assert.Equal(t, models.StatusRefunded, updated.Status)
		require.NotNil(t, updated.RefundReason)
		assert.Equal(t, "customer request", *updated.RefundReason)
		repo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("partial refunds accumulate monotonically", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		payment := completedPayment("100.00")
		repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		gateway.On("Refund", mock.Anything, "pi_123", mock.Anything).
			Return(&RefundResult{Status: "succeeded"}, nil)
		repo.On("Save", mock.Anything, payment).Return(nil)

		first := decimal.RequireFromString("30.00")
		updated, err := svc.RefundPayment(ctx, payment.ID, &first, "damaged item")
		require.NoError(t, err)
		assert.True(t, updated.RefundAmount.Equal(first))
		assert.Equal(t, models.StatusCompleted, updated.Status)

		second := decimal.RequireFromString("70.00")
		updated, err = svc.RefundPayment(ctx, payment.ID, &second, "remaining balance")
		require.NoError(t, err)
		assert.True(t, updated.RefundAmount.Equal(decimal.RequireFromString("100.00")))
		assert.Equal(t, models.StatusRefunded, updated.Status)
	})

	t.Run("only completed payments can be refunded", func(t *testing.T) {
		for _, status := range []models.PaymentStatus{
			models.StatusPending, models.StatusProcessing, models.StatusFailed,
			models.StatusCancelled, models.StatusRefunded,
		} {
			repo := new(MockPaymentRepo)
			gateway := new(MockGateway)
			svc := newTestService(repo, gateway)

			payment := completedPayment("100.00")
			payment.Status = status
			repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()

			_, err := svc.RefundPayment(ctx, payment.ID, nil, "any reason")

			assert.ErrorIs(t, err, apperrors.ErrInvalidState, "status %s", status)
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("fully refunded payment cannot be refunded again", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		payment := completedPayment("100.00")
		payment.RefundAmount = decimal.RequireFromString("100.00")
		repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()

		_, err := svc.RefundPayment(ctx, payment.ID, nil, "again")

		assert.ErrorIs(t, err, apperrors.ErrAlreadyRefunded)
	})

	t.Run("refund exceeding remaining balance is rejected", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		payment := completedPayment("100.00")
		payment.RefundAmount = decimal.RequireFromString("80.00")
		repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()

		amount := decimal.RequireFromString("30.00")
		_, err := svc.RefundPayment(ctx, payment.ID, &amount, "too much")

		assert.ErrorIs(t, err, apperrors.ErrRefundExceedsBalance)
		gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway refund failure leaves the record untouched", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		payment := completedPayment("100.00")
		repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()
		gateway.On("Refund", mock.Anything, "pi_123", mock.Anything).
			Return(nil, apperrors.ErrRefundFailed).Once()

		_, err := svc.RefundPayment(ctx, payment.ID, nil, "declined")

		assert.ErrorIs(t, err, apperrors.ErrRefundFailed)
		assert.True(t, payment.RefundAmount.IsZero())
		assert.Equal(t, models.StatusCompleted, payment.Status)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown payment id", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, gateway)

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, apperrors.ErrPaymentNotFound).Once()

		_, err := svc.RefundPayment(ctx, id, nil, "missing")

		assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
	})
}

// --- UpdatePaymentStatus ---

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("completed stamps processedAt", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		svc := newTestService(repo, new(MockGateway))

		payment := completedPayment("10.00")
		payment.Status = models.StatusPending
		repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()
		repo.On("Save", mock.Anything, payment).Return(nil).Once()

		updated, err := svc.UpdatePaymentStatus(ctx, payment.ID, models.StatusCompleted)

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, updated.Status)
		assert.NotNil(t, updated.ProcessedAt)
	})

	t.Run("failed stamps failedAt", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		svc := newTestService(repo, new(MockGateway))

		payment := completedPayment("10.00")
		payment.Status = models.StatusPending
		repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()
		repo.On("Save", mock.Anything, payment).Return(nil).Once()

		updated, err := svc.UpdatePaymentStatus(ctx, payment.ID, models.StatusFailed)

		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, updated.Status)
		assert.NotNil(t, updated.FailedAt)
	})

	t.Run("no transition guards apply", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		svc := newTestService(repo, new(MockGateway))

		payment := completedPayment("10.00")
		payment.Status = models.StatusPending
		repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()
		repo.On("Save", mock.Anything, payment).Return(nil).Once()

		updated, err := svc.UpdatePaymentStatus(ctx, payment.ID, models.StatusRefunded)

		require.NoError(t, err)
		assert.Equal(t, models.StatusRefunded, updated.Status)
	})
}

// --- GetPaymentStats ---

func TestGetPaymentStats(t *testing.T) {
	repo := new(MockPaymentRepo)
	svc := newTestService(repo, new(MockGateway))

	repo.On("Count", mock.Anything).Return(int64(10), nil).Once()
	repo.On("SumAmount", mock.Anything).Return(decimal.RequireFromString("1234.56"), nil).Once()
	repo.On("CountByStatus", mock.Anything, models.StatusCompleted).Return(int64(6), nil).Once()
	repo.On("CountByStatus", mock.Anything, models.StatusFailed).Return(int64(3), nil).Once()
	repo.On("CountByStatus", mock.Anything, models.StatusPending).Return(int64(1), nil).Once()

	stats, err := svc.GetPaymentStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalPayments)
	assert.True(t, stats.TotalAmount.Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, int64(6), stats.SuccessfulPayments)
	assert.Equal(t, int64(3), stats.FailedPayments)
	assert.Equal(t, int64(1), stats.PendingPayments)
	repo.AssertExpectations(t)
}
