package apperrors

import (
	"fmt"
	"net/http"
)

// Error represents an application error with a stable machine-readable kind
// and an HTTP status code it maps to at the API boundary.
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so errors.Is works against the
// sentinel values below even after wrapping with a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New creates a new Error
func New(code int, kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error) *Error {
	e := *base
	e.Err = err
	return &e
}

// WithMessage returns a copy of base with a more specific message.
func WithMessage(base *Error, message string) *Error {
	e := *base
	e.Message = message
	return &e
}

// Payment lifecycle error types
var (
	ErrAlreadyProcessed = New(http.StatusConflict, "already_processed", "Payment already processed for this order", nil)
	ErrPaymentNotFound  = New(http.StatusNotFound, "payment_not_found", "Payment not found", nil)
	ErrInvalidState     = New(http.StatusBadRequest, "invalid_state", "Only completed payments can be refunded", nil)
)

// Refund error types
var (
	ErrAlreadyRefunded      = New(http.StatusBadRequest, "already_refunded", "Payment already fully refunded", nil)
	ErrRefundExceedsBalance = New(http.StatusBadRequest, "refund_exceeds_balance", "Refund amount exceeds available amount", nil)
	ErrRefundFailed         = New(http.StatusBadRequest, "refund_failed", "Refund failed", nil)
)

// Gateway error types
var (
	ErrGatewayRejected    = New(http.StatusBadRequest, "gateway_rejected", "Payment rejected by gateway", nil)
	ErrGatewayUnavailable = New(http.StatusServiceUnavailable, "gateway_unavailable", "Payment gateway error", nil)
	ErrUnsupportedMethod  = New(http.StatusBadRequest, "unsupported_method", "Unsupported payment method", nil)
)

// Store error types
var (
	ErrDuplicateCompletedPayment = New(http.StatusConflict, "duplicate_completed_payment", "A completed payment already exists for this order", nil)
)
