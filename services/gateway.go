package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Rocket-Marketplace/payments-service/apperrors"
	"github.com/Rocket-Marketplace/payments-service/config"
	"github.com/Rocket-Marketplace/payments-service/models"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/refund"
	"go.uber.org/zap"
)

// ChargeRequest describes one charge attempt against the gateway.
type ChargeRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Method      models.PaymentMethod
	Description string
	BuyerID     string
}

// ChargeResult is the gateway outcome mapped into the internal vocabulary.
type ChargeResult struct {
	ExternalID    string
	Status        models.PaymentStatus
	Message       string
	ProcessingFee decimal.Decimal
	Raw           json.RawMessage // opaque gateway payload, stored for audit
}

type RefundResult struct {
	Status  string
	Message string
}

// GatewayClient executes charges and refunds against the payment gateway.
// Implementations hold no state between calls.
type GatewayClient interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, externalID string, amount *decimal.Decimal) (*RefundResult, error)
}

type stripeGateway struct {
	defaultCurrency string
	logger          *zap.Logger
}

func NewStripeGateway(cfg *config.Config, logger *zap.Logger) GatewayClient {
	stripe.Key = cfg.StripeSecretKey
	return &stripeGateway{
		defaultCurrency: cfg.DefaultCurrency,
		logger:          logger,
	}
}

func (g *stripeGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	params, err := g.buildChargeParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, classifyChargeError(err)
	}

	result := &ChargeResult{
		ExternalID:    pi.ID,
		Status:        mapGatewayStatus(string(pi.Status)),
		ProcessingFee: decimal.NewFromInt(pi.ApplicationFeeAmount).Shift(-2),
	}
	if pi.LastPaymentError != nil {
		result.Message = pi.LastPaymentError.Msg
	}
	result.Raw, _ = json.Marshal(map[string]interface{}{
		"id":       pi.ID,
		"status":   string(pi.Status),
		"amount":   pi.Amount,
		"currency": string(pi.Currency),
		"message":  result.Message,
	})

	g.logger.Info("Gateway charge executed",
		zap.String("external_id", pi.ID),
		zap.String("gateway_status", string(pi.Status)),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

func (g *stripeGateway) Refund(ctx context.Context, externalID string, amount *decimal.Decimal) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(externalID),
	}
	// Omitting the amount refunds the full remaining balance on the gateway side.
	if amount != nil {
		params.Amount = stripe.Int64(toMinorUnits(*amount))
	}
	params.Context = ctx

	ref, err := refund.New(params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRefundFailed, err)
	}

	g.logger.Info("Gateway refund executed",
		zap.String("external_id", externalID),
		zap.String("refund_id", ref.ID),
		zap.String("refund_status", string(ref.Status)),
	)
	return &RefundResult{
		Status:  string(ref.Status),
		Message: string(ref.FailureReason),
	}, nil
}

// buildChargeParams builds the method-specific gateway request. An unsupported
// method fails here, before any network call.
func (g *stripeGateway) buildChargeParams(req ChargeRequest) (*stripe.PaymentIntentParams, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.defaultCurrency
	}
	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Payment for buyer %s", req.BuyerID)
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(toMinorUnits(req.Amount)),
		Currency:    stripe.String(strings.ToLower(currency)),
		Description: stripe.String(description),
		Confirm:     stripe.Bool(true),
	}

	switch req.Method {
	case models.MethodCreditCard:
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
		params.PaymentMethod = stripe.String("pm_card_visa")
	case models.MethodDebitCard:
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
		params.PaymentMethod = stripe.String("pm_card_visa_debit")
	case models.MethodPix:
		params.PaymentMethodTypes = stripe.StringSlice([]string{"pix"})
	case models.MethodBoleto:
		params.PaymentMethodTypes = stripe.StringSlice([]string{"boleto"})
	case models.MethodPaypal:
		params.PaymentMethodTypes = stripe.StringSlice([]string{"paypal"})
	default:
		return nil, apperrors.WithMessage(apperrors.ErrUnsupportedMethod,
			fmt.Sprintf("Unsupported payment method: %s", req.Method))
	}

	return params, nil
}

// classifyChargeError splits gateway failures into caller-attributable
// rejections and retryable availability errors.
func classifyChargeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.HTTPStatusCode {
		case http.StatusPaymentRequired:
			return apperrors.Wrap(
				apperrors.WithMessage(apperrors.ErrGatewayRejected, "Payment failed: Insufficient funds"), err)
		case http.StatusBadRequest:
			return apperrors.Wrap(
				apperrors.WithMessage(apperrors.ErrGatewayRejected, "Payment failed: Invalid payment method"), err)
		}
	}
	return apperrors.Wrap(apperrors.ErrGatewayUnavailable, err)
}

// mapGatewayStatus maps the gateway status vocabulary into the internal one.
func mapGatewayStatus(gatewayStatus string) models.PaymentStatus {
	switch gatewayStatus {
	case "succeeded":
		return models.StatusCompleted
	case "pending":
		return models.StatusProcessing
	case "failed":
		return models.StatusFailed
	case "canceled":
		return models.StatusCancelled
	default:
		return models.StatusPending
	}
}

// toMinorUnits converts a 2-decimal amount to integer minor units for the wire.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
