package idempotencyRepo

import (
	"context"
	"errors"
	"time"
)

// Key record statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	// ErrKeyExists is returned when a reservation loses the uniqueness
	// race; the caller should read the winner's record instead.
	ErrKeyExists = errors.New("idempotency key already reserved")
	ErrNotFound  = errors.New("idempotency key not found")
)

// Record is a durable idempotency ledger entry. It is persisted with
// status pending before the gateway call and resolved exactly once.
type Record struct {
	Key        string    `bson:"key" json:"key"`
	Operation  string    `bson:"operation" json:"operation"` // payment_intent | refund | transfer
	BookingID  string    `bson:"booking_id" json:"bookingId"`
	Status     string    `bson:"status" json:"status"`
	ResourceID string    `bson:"resource_id,omitempty" json:"resourceId,omitempty"`
	Attempts   int       `bson:"attempts" json:"attempts"`
	LastError  string    `bson:"last_error,omitempty" json:"lastError,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

// Ledger is the durable idempotency-key store. A unique constraint on the
// key makes concurrent duplicate submissions converge on one winner.
type Ledger interface {
	// Reserve inserts a pending record; ErrKeyExists if the key is taken.
	Reserve(ctx context.Context, rec *Record) error
	Get(ctx context.Context, key string) (*Record, error)
	// Resolve marks the record completed or failed with the gateway
	// resource id and attempt count.
	Resolve(ctx context.Context, key, status, resourceID, lastError string, attempts int) error
}
