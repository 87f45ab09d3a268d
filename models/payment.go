package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusCompleted  PaymentStatus = "completed"
	StatusFailed     PaymentStatus = "failed"
	StatusCancelled  PaymentStatus = "cancelled"
	StatusRefunded   PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
	MethodPix        PaymentMethod = "pix"
	MethodBoleto     PaymentMethod = "boleto"
	MethodPaypal     PaymentMethod = "paypal"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCreditCard, MethodDebitCard, MethodPix, MethodBoleto, MethodPaypal:
		return true
	}
	return false
}

// Payment is one attempt to collect money for one order. The partial unique
// index on order_id is the authority for the at-most-one-completed-payment
// invariant; the in-service check before charging is only a fast path.
type Payment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID           string          `gorm:"type:varchar(64);index;not null;uniqueIndex:uniq_completed_order,where:status = 'completed'" json:"orderId"`
	BuyerID           string          `gorm:"type:varchar(64);index;not null" json:"buyerId"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod     PaymentMethod   `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	Status            PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Description       string          `gorm:"type:varchar(500)" json:"description,omitempty"`
	ExternalPaymentID *string         `gorm:"type:varchar(255);uniqueIndex" json:"externalPaymentId,omitempty"`
	GatewayResponse   datatypes.JSON  `gorm:"type:jsonb" json:"gatewayResponse,omitempty"`
	ErrorMessage      *string         `gorm:"type:text" json:"errorMessage,omitempty"`
	ProcessingFee     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"processingFee"`
	RefundAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"refundAmount"`
	RefundReason      *string         `gorm:"type:text" json:"refundReason,omitempty"`
	ProcessedAt       *time.Time      `json:"processedAt,omitempty"`
	FailedAt          *time.Time      `json:"failedAt,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// RefundableBalance returns how much of the amount has not been refunded yet.
func (p *Payment) RefundableBalance() decimal.Decimal {
	return p.Amount.Sub(p.RefundAmount)
}
