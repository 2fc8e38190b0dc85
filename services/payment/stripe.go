package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway implements Gateway over an explicitly constructed Stripe
// client. The client is injected; no package-level stripe.Key is set.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a gateway around a dedicated Stripe client.
func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// CreatePaymentIntent authorizes a charge with an application fee routed
// to the provider's connected account.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:               stripe.Params{Context: ctx},
		Amount:               stripe.Int64(req.Amount.Amount),
		Currency:             stripe.String(strings.ToLower(req.Amount.Currency)),
		ApplicationFeeAmount: stripe.Int64(req.PlatformFee.Amount),
	}
	if req.DestinationAccount != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(req.DestinationAccount),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// GetPaymentIntent fetches an existing intent.
func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	pi, err := g.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// CreateRefund reverses a captured payment.
func (g *StripeGateway) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(req.PaymentIntentID),
	}
	if req.Amount != nil {
		params.Amount = stripe.Int64(req.Amount.Amount)
	}
	// Stripe only accepts its own reason enum; free-text reasons travel
	// as metadata.
	switch req.Reason {
	case "", string(stripe.RefundReasonRequestedByCustomer), string(stripe.RefundReasonDuplicate), string(stripe.RefundReasonFraudulent):
		if req.Reason != "" {
			params.Reason = stripe.String(req.Reason)
		}
	default:
		params.AddMetadata("reason", req.Reason)
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Refund{ID: r.ID, Status: string(r.Status)}, nil
}

// CreateTransfer moves a payout to the provider's connected account.
func (g *StripeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	params := &stripe.TransferParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(req.Amount.Amount),
		Currency:    stripe.String(strings.ToLower(req.Amount.Currency)),
		Destination: stripe.String(req.DestinationAccount),
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	t, err := g.api.Transfers.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Transfer{ID: t.ID}, nil
}

func mapStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		// Network-level failure; retryable.
		return &GatewayError{Code: "network", Transient: true, cause: err}
	}
	ge := &GatewayError{Code: string(se.Type), cause: err}
	switch {
	case se.Type == stripe.ErrorTypeIdempotency:
		ge.IdempotencyConflict = true
	case se.Type == stripe.ErrorTypeAPI, se.HTTPStatusCode >= 500, se.HTTPStatusCode == 429:
		ge.Transient = true
	}
	return ge
}
