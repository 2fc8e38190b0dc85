package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	idempotencyRepo "bookify/database/repository/idempotency"
	"bookify/models"

	"go.uber.org/zap"
)

// Operation names feeding the idempotency key.
const (
	OpPaymentIntent = "payment_intent"
	OpRefund        = "refund"
	OpTransfer      = "transfer"
)

const maxGatewayAttempts = 3

// ErrOperationInFlight is returned when another caller holds the pending
// ledger record for the same key.
var ErrOperationInFlight = errors.New("payment operation already in flight")

// Orchestrator wraps gateway calls with a durable idempotency-key ledger
// and bounded retry. A retried request first consults the ledger and
// returns the previously obtained resource instead of re-issuing the
// gateway call.
type Orchestrator struct {
	Gateway Gateway
	Ledger  idempotencyRepo.Ledger
	Logger  *zap.Logger

	// Backoff maps a 1-based attempt number to the sleep before the next
	// try. Overridable in tests; defaults to 1s, 2s, 4s.
	Backoff func(attempt int) time.Duration
}

// NewOrchestrator builds an orchestrator with exponential backoff.
func NewOrchestrator(gateway Gateway, ledger idempotencyRepo.Ledger, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Gateway: gateway,
		Ledger:  ledger,
		Logger:  logger,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<(attempt-1)) * time.Second
		},
	}
}

// DeriveKey produces the deterministic idempotency key for an operation.
func DeriveKey(operation, bookingID string, amount models.Money, extra string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s|%s",
		operation, bookingID, amount.Amount, amount.Currency, extra)))
	return hex.EncodeToString(sum[:])
}

// CreatePaymentIntentWithIdempotency authorizes the booking's total with
// the platform fee split, at most once per (booking, amount).
func (o *Orchestrator) CreatePaymentIntentWithIdempotency(ctx context.Context, b *models.Booking, destinationAccount string) (*PaymentIntent, error) {
	key := DeriveKey(OpPaymentIntent, b.ID, b.TotalAmount, destinationAccount)

	if resolved, resource, err := o.checkExisting(ctx, key); err != nil {
		return nil, err
	} else if resolved {
		return o.Gateway.GetPaymentIntent(ctx, resource)
	}

	req := PaymentIntentRequest{
		Amount:             b.TotalAmount,
		PlatformFee:        b.PlatformFee,
		DestinationAccount: destinationAccount,
		IdempotencyKey:     key,
		Metadata: map[string]string{
			"booking_id":        b.ID,
			"confirmation_code": b.ConfirmationCode,
		},
	}
	var intent *PaymentIntent
	err := o.callWithRetry(ctx, key, func(ctx context.Context) (string, error) {
		var err error
		intent, err = o.Gateway.CreatePaymentIntent(ctx, req)
		if err != nil {
			return "", err
		}
		return intent.ID, nil
	}, func(ctx context.Context) (string, error) {
		// Idempotency conflict: the key was spent by a concurrent
		// caller; recover the resource from the ledger.
		rec, err := o.Ledger.Get(ctx, key)
		if err != nil || rec.ResourceID == "" {
			return "", fmt.Errorf("idempotency conflict with unresolved ledger record")
		}
		intent, err = o.Gateway.GetPaymentIntent(ctx, rec.ResourceID)
		if err != nil {
			return "", err
		}
		return intent.ID, nil
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// RefundWithIdempotency reverses the booking's captured payment. A nil
// amount refunds in full.
func (o *Orchestrator) RefundWithIdempotency(ctx context.Context, b *models.Booking, amount *models.Money, reason string) (*Refund, error) {
	refundAmount := b.TotalAmount
	if amount != nil {
		refundAmount = *amount
	}
	key := DeriveKey(OpRefund, b.ID, refundAmount, b.PaymentIntentID)

	if resolved, resource, err := o.checkExisting(ctx, key); err != nil {
		return nil, err
	} else if resolved {
		return &Refund{ID: resource, Status: "succeeded"}, nil
	}

	req := RefundRequest{
		PaymentIntentID: b.PaymentIntentID,
		Amount:          amount,
		Reason:          reason,
		IdempotencyKey:  key,
	}
	var refund *Refund
	err := o.callWithRetry(ctx, key, func(ctx context.Context) (string, error) {
		var err error
		refund, err = o.Gateway.CreateRefund(ctx, req)
		if err != nil {
			return "", err
		}
		return refund.ID, nil
	}, func(ctx context.Context) (string, error) {
		rec, err := o.Ledger.Get(ctx, key)
		if err != nil || rec.ResourceID == "" {
			return "", fmt.Errorf("idempotency conflict with unresolved ledger record")
		}
		refund = &Refund{ID: rec.ResourceID, Status: "succeeded"}
		return refund.ID, nil
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// TransferWithIdempotency pays out the provider share once per booking.
func (o *Orchestrator) TransferWithIdempotency(ctx context.Context, b *models.Booking, destinationAccount string) (*Transfer, error) {
	key := DeriveKey(OpTransfer, b.ID, b.ProviderPayout, destinationAccount)

	if resolved, resource, err := o.checkExisting(ctx, key); err != nil {
		return nil, err
	} else if resolved {
		return &Transfer{ID: resource}, nil
	}

	req := TransferRequest{
		Amount:             b.ProviderPayout,
		DestinationAccount: destinationAccount,
		IdempotencyKey:     key,
	}
	var transfer *Transfer
	err := o.callWithRetry(ctx, key, func(ctx context.Context) (string, error) {
		var err error
		transfer, err = o.Gateway.CreateTransfer(ctx, req)
		if err != nil {
			return "", err
		}
		return transfer.ID, nil
	}, func(ctx context.Context) (string, error) {
		rec, err := o.Ledger.Get(ctx, key)
		if err != nil || rec.ResourceID == "" {
			return "", fmt.Errorf("idempotency conflict with unresolved ledger record")
		}
		transfer = &Transfer{ID: rec.ResourceID}
		return transfer.ID, nil
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// checkExisting consults the ledger before any gateway traffic and
// reserves the key when it is free. Returns (true, resourceID, nil) when
// a completed record already holds the resource.
func (o *Orchestrator) checkExisting(ctx context.Context, key string) (bool, string, error) {
	rec, err := o.Ledger.Get(ctx, key)
	switch {
	case err == nil:
		switch rec.Status {
		case idempotencyRepo.StatusCompleted:
			return true, rec.ResourceID, nil
		case idempotencyRepo.StatusPending:
			return false, "", ErrOperationInFlight
		default:
			// A failed record permits a fresh attempt under the same key.
			return false, "", nil
		}
	case errors.Is(err, idempotencyRepo.ErrNotFound):
		reserve := &idempotencyRepo.Record{
			Key:       key,
			Status:    idempotencyRepo.StatusPending,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if rerr := o.Ledger.Reserve(ctx, reserve); rerr != nil {
			if errors.Is(rerr, idempotencyRepo.ErrKeyExists) {
				// Lost the race; the winner's record governs.
				return false, "", ErrOperationInFlight
			}
			return false, "", fmt.Errorf("failed to reserve idempotency key: %w", rerr)
		}
		return false, "", nil
	default:
		return false, "", fmt.Errorf("idempotency ledger lookup failed: %w", err)
	}
}

// callWithRetry drives the gateway call with bounded exponential backoff,
// resolving the ledger record exactly once with the final outcome.
func (o *Orchestrator) callWithRetry(ctx context.Context, key string, call func(context.Context) (string, error), onIdempotencyConflict func(context.Context) (string, error)) error {
	var lastErr error
	attempt := 1
	for ; attempt <= maxGatewayAttempts; attempt++ {
		resourceID, err := call(ctx)
		if err == nil {
			return o.resolve(ctx, key, idempotencyRepo.StatusCompleted, resourceID, "", attempt)
		}
		if IsIdempotencyConflict(err) {
			// Gateway says the key already succeeded elsewhere.
			resourceID, rerr := onIdempotencyConflict(ctx)
			if rerr != nil {
				lastErr = rerr
				break
			}
			return o.resolve(ctx, key, idempotencyRepo.StatusCompleted, resourceID, "", attempt)
		}
		lastErr = err
		if !IsTransient(err) {
			break
		}
		if attempt < maxGatewayAttempts {
			o.Logger.Warn("transient gateway failure, retrying",
				zap.Int("attempt", attempt), zap.Error(err))
			select {
			case <-time.After(o.Backoff(attempt)):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = maxGatewayAttempts
			}
		}
	}
	if attempt > maxGatewayAttempts {
		attempt = maxGatewayAttempts
	}
	if rerr := o.resolve(ctx, key, idempotencyRepo.StatusFailed, "", lastErr.Error(), attempt); rerr != nil {
		o.Logger.Error("failed to record gateway failure", zap.Error(rerr))
	}
	return lastErr
}

func (o *Orchestrator) resolve(ctx context.Context, key, status, resourceID, lastError string, attempts int) error {
	if err := o.Ledger.Resolve(ctx, key, status, resourceID, lastError, attempts); err != nil {
		return fmt.Errorf("failed to resolve idempotency key: %w", err)
	}
	return nil
}
