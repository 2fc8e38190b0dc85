package payment

import (
	"context"
	"errors"
	"fmt"

	"bookify/models"
)

// PaymentIntent is the gateway-agnostic view of a payment authorization.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Status       string `json:"status"`
}

// Refund references a gateway refund resource.
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Transfer references a gateway payout transfer resource.
type Transfer struct {
	ID string `json:"id"`
}

// PaymentIntentRequest carries everything needed to authorize a charge
// with the platform fee split to the provider's account.
type PaymentIntentRequest struct {
	Amount             models.Money
	PlatformFee        models.Money
	DestinationAccount string
	IdempotencyKey     string
	Metadata           map[string]string
}

// RefundRequest reverses a captured payment, fully when Amount is nil.
type RefundRequest struct {
	PaymentIntentID string
	Amount          *models.Money
	Reason          string
	IdempotencyKey  string
}

// TransferRequest moves a payout to the provider's account.
type TransferRequest struct {
	Amount             models.Money
	DestinationAccount string
	IdempotencyKey     string
}

// Gateway is the external payment collaborator. Implementations must
// never be called without a previously durable idempotency key; the
// orchestrator owns that discipline.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
}

// GatewayError classifies gateway failures for the retry loop.
type GatewayError struct {
	Code string
	// Transient marks failures worth retrying with backoff.
	Transient bool
	// IdempotencyConflict marks the gateway's "this key was already
	// used" response, treated as already-succeeded.
	IdempotencyConflict bool
	cause               error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error (%s): %v", e.Code, e.cause)
}

func (e *GatewayError) Unwrap() error { return e.cause }

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Transient
}

// IsIdempotencyConflict reports the gateway's duplicate-key response.
func IsIdempotencyConflict(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.IdempotencyConflict
}
