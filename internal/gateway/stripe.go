package gateway

import (
	"context"
	"errors"
	"fmt"

	"payment-service/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// Error is the normalized failure of a charge attempt. Processor-side
// rejections and transport failures both map to it.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("payment processing failed: %s", e.Reason)
}

// Config holds the processor credentials and currency, passed in
// explicitly so the adapter carries no ambient global state.
type Config struct {
	APIKey   string
	Currency string
}

// StripeGateway charges customers through Stripe PaymentIntents.
type StripeGateway struct {
	api      *client.API
	currency string
	logger   *zap.Logger
}

// NewStripeGateway creates a Stripe gateway from explicit configuration
func NewStripeGateway(cfg Config) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &StripeGateway{
		api:      api,
		currency: currency,
		logger:   util.GetLogger(),
	}
}

// Charge creates a PaymentIntent for the given amount and returns its id.
// A single attempt maps to a single Stripe call; no retries. Any failure
// comes back as *Error.
func (g *StripeGateway) Charge(ctx context.Context, amount decimal.Decimal, orderID string) (string, error) {
	g.logger.Info("Creating Stripe payment intent",
		zap.String("order_id", orderID),
		zap.String("amount", amount.String()))

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(amount)),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	// Order id travels as metadata for processor-side reconciliation.
	params.AddMetadata("order_id", orderID)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		reason := err.Error()
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			reason = stripeErr.Msg
		}
		g.logger.Error("Stripe payment failed",
			zap.String("order_id", orderID),
			zap.String("reason", reason))
		return "", &Error{Reason: reason}
	}

	g.logger.Info("Stripe payment intent created",
		zap.String("order_id", orderID),
		zap.String("payment_intent_id", intent.ID))

	return intent.ID, nil
}

// MinorUnits converts a decimal amount to the processor's smallest
// currency unit (cents for USD). Multiplication by 100 with truncation is
// exact for 2-decimal inputs.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
