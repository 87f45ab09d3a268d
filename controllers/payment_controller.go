package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Rocket-Marketplace/payments-service/apperrors"
	"github.com/Rocket-Marketplace/payments-service/models"
	"github.com/Rocket-Marketplace/payments-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentLifecycle is the engine surface the HTTP layer depends on.
type PaymentLifecycle interface {
	ProcessPayment(ctx context.Context, input services.ProcessPaymentInput) (*services.ProcessPaymentResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetPaymentsByOrder(ctx context.Context, orderID string) ([]models.Payment, error)
	GetPaymentsByBuyer(ctx context.Context, buyerID string) ([]models.Payment, error)
	RefundPayment(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, reason string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (*models.Payment, error)
	GetPaymentStats(ctx context.Context) (*services.PaymentStats, error)
}

type PaymentController struct {
	Payments PaymentLifecycle
	Logger   *zap.Logger
}

func NewPaymentController(payments PaymentLifecycle, logger *zap.Logger) *PaymentController {
	return &PaymentController{Payments: payments, Logger: logger}
}

type processPaymentRequest struct {
	OrderID       string          `json:"orderId" binding:"required"`
	BuyerID       string          `json:"buyerId" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"paymentMethod" binding:"required"`
	Description   string          `json:"description"`
}

// ProcessPayment charges the gateway for an order and returns the resulting
// payment id and status.
func (pc *PaymentController) ProcessPayment(c *gin.Context) {
	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if !models.PaymentMethod(req.PaymentMethod).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
		return
	}

	result, err := pc.Payments.ProcessPayment(c.Request.Context(), services.ProcessPaymentInput{
		OrderID:     req.OrderID,
		BuyerID:     req.BuyerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      models.PaymentMethod(req.PaymentMethod),
		Description: req.Description,
	})
	if err != nil {
		pc.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (pc *PaymentController) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	payment, err := pc.Payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		pc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (pc *PaymentController) GetPaymentsByOrder(c *gin.Context) {
	payments, err := pc.Payments.GetPaymentsByOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		pc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (pc *PaymentController) GetPaymentsByBuyer(c *gin.Context) {
	payments, err := pc.Payments.GetPaymentsByBuyer(c.Request.Context(), c.Param("buyerId"))
	if err != nil {
		pc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

type refundPaymentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" binding:"required"`
}

// RefundPayment applies a partial or full refund to a completed payment.
func (pc *PaymentController) RefundPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req refundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
		return
	}

	payment, err := pc.Payments.RefundPayment(c.Request.Context(), id, req.Amount, req.Reason)
	if err != nil {
		pc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdatePaymentStatus is the administrative status override endpoint.
func (pc *PaymentController) UpdatePaymentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := models.PaymentStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment status"})
		return
	}

	payment, err := pc.Payments.UpdatePaymentStatus(c.Request.Context(), id, status)
	if err != nil {
		pc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (pc *PaymentController) GetPaymentStats(c *gin.Context) {
	stats, err := pc.Payments.GetPaymentStats(c.Request.Context())
	if err != nil {
		pc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// respondError maps application errors to their HTTP status; anything
// unrecognized becomes a 500 without leaking internals.
func (pc *PaymentController) respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message, "kind": appErr.Kind})
		return
	}

	pc.Logger.Error("Unhandled error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
