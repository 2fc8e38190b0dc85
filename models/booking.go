package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CancelParty identifies who triggered a cancellation.
type CancelParty string

const (
	CancelledByCustomer CancelParty = "customer"
	CancelledByProvider CancelParty = "provider"
	CancelledBySystem   CancelParty = "system"
)

// FeeBreakdown is the deterministic money split produced by the fee
// calculator. PlatformFee + ProviderPayout always equals TotalAmount.
type FeeBreakdown struct {
	TotalAmount    Money `bson:"total_amount" json:"totalAmount"`
	PlatformFee    Money `bson:"platform_fee" json:"platformFee"`
	ProviderPayout Money `bson:"provider_payout" json:"providerPayout"`
}

// Booking is the aggregate root for the reservation lifecycle. All state
// changes flow through its transition methods; fields are never assigned
// from outside after creation.
type Booking struct {
	ID                 string            `bson:"id" json:"id"`
	CustomerID         string            `bson:"customer_id" json:"customerId"`
	ProviderID         string            `bson:"provider_id" json:"providerId"`
	ServiceDetails     ServiceDetails    `bson:"service_details" json:"serviceDetails"`
	TimeSlot           TimeSlot          `bson:"time_slot" json:"timeSlot"`
	TotalAmount        Money             `bson:"total_amount" json:"totalAmount"`
	PlatformFee        Money             `bson:"platform_fee" json:"platformFee"`
	ProviderPayout     Money             `bson:"provider_payout" json:"providerPayout"`
	Status             BookingStatus     `bson:"status" json:"status"`
	CustomerNotes      string            `bson:"customer_notes,omitempty" json:"customerNotes,omitempty"`
	ProviderNotes      string            `bson:"provider_notes,omitempty" json:"providerNotes,omitempty"`
	CancellationReason string            `bson:"cancellation_reason,omitempty" json:"cancellationReason,omitempty"`
	CancelledBy        CancelParty       `bson:"cancelled_by,omitempty" json:"cancelledBy,omitempty"`
	PaymentIntentID    string            `bson:"payment_intent_id,omitempty" json:"paymentIntentId,omitempty"`
	ConfirmationCode   string            `bson:"confirmation_code" json:"confirmationCode"`
	Metadata           map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Version            int64             `bson:"version" json:"version"`
	CreatedAt          time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `bson:"updated_at" json:"updatedAt"`

	pendingEvents []DomainEvent
}

var (
	ErrCustomerIDRequired  = errors.New("booking: customer id required")
	ErrProviderIDRequired  = errors.New("booking: provider id required")
	ErrSelfBooking         = errors.New("booking: customer and provider must differ")
	ErrFeeSplitInvalid     = errors.New("booking: platform fee plus payout must equal total")
	ErrNotCancellable      = errors.New("booking: not cancellable in current status")
	ErrPaymentRefRequired  = errors.New("booking: payment intent reference required")
	ErrPaymentRefMissing   = errors.New("booking: no payment intent on record")
	ErrInvalidCancelParty  = errors.New("booking: cancelledBy must be customer, provider or system")
	ErrCancelReasonMissing = errors.New("booking: cancellation reason required")
)

const confirmationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ConfirmationCodeLength is the customer-facing lookup code size.
const ConfirmationCodeLength = 8

// GenerateConfirmationCode produces an 8-character [A-Z0-9] code from
// crypto/rand.
func GenerateConfirmationCode() (string, error) {
	buf := make([]byte, ConfirmationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("booking: confirmation code generation failed: %w", err)
	}
	out := make([]byte, ConfirmationCodeLength)
	for i, b := range buf {
		out[i] = confirmationCodeAlphabet[int(b)%len(confirmationCodeAlphabet)]
	}
	return string(out), nil
}

// NewBooking builds a booking in INITIATED state. Fees are computed by the
// caller (fee calculator) and validated here against the split invariant.
func NewBooking(customerID, providerID string, svc ServiceDetails, slot TimeSlot, fees FeeBreakdown, customerNotes string, now time.Time) (*Booking, error) {
	if customerID == "" {
		return nil, ErrCustomerIDRequired
	}
	if providerID == "" {
		return nil, ErrProviderIDRequired
	}
	if customerID == providerID {
		return nil, ErrSelfBooking
	}
	if err := validateFeeSplit(fees); err != nil {
		return nil, err
	}
	code, err := GenerateConfirmationCode()
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	b := &Booking{
		ID:               uuid.NewString(),
		CustomerID:       customerID,
		ProviderID:       providerID,
		ServiceDetails:   svc,
		TimeSlot:         slot,
		TotalAmount:      fees.TotalAmount,
		PlatformFee:      fees.PlatformFee,
		ProviderPayout:   fees.ProviderPayout,
		Status:           StatusInitiated,
		CustomerNotes:    customerNotes,
		ConfirmationCode: code,
		Metadata:         map[string]string{},
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.record(BookingCreated{
		baseEvent:        b.eventBase(now),
		CustomerID:       customerID,
		ProviderID:       providerID,
		ConfirmationCode: code,
		TotalAmount:      fees.TotalAmount,
	})
	return b, nil
}

func validateFeeSplit(fees FeeBreakdown) error {
	sum, err := fees.PlatformFee.Add(fees.ProviderPayout)
	if err != nil {
		return err
	}
	if !sum.Equals(fees.TotalAmount) {
		return ErrFeeSplitInvalid
	}
	return nil
}

// Validate re-checks aggregate invariants; called by the application
// service before every persist.
func (b *Booking) Validate() error {
	if b.ID == "" {
		return errors.New("booking: id required")
	}
	if !b.Status.IsValid() {
		return fmt.Errorf("booking: unknown status %q", b.Status)
	}
	if len(b.ConfirmationCode) != ConfirmationCodeLength {
		return errors.New("booking: malformed confirmation code")
	}
	return validateFeeSplit(FeeBreakdown{
		TotalAmount:    b.TotalAmount,
		PlatformFee:    b.PlatformFee,
		ProviderPayout: b.ProviderPayout,
	})
}

// RequestProviderApproval moves INITIATED -> PENDING_PROVIDER.
func (b *Booking) RequestProviderApproval(now time.Time) error {
	return b.transition(StatusPendingProvider, now)
}

// AcceptByProvider moves PENDING_PROVIDER -> ACCEPTED and records any
// provider notes.
func (b *Booking) AcceptByProvider(notes string, now time.Time) error {
	if err := b.transition(StatusAccepted, now); err != nil {
		return err
	}
	if notes != "" {
		b.ProviderNotes = notes
	}
	b.record(BookingConfirmed{baseEvent: b.eventBase(now), ProviderID: b.ProviderID})
	return nil
}

// RejectByProvider moves PENDING_PROVIDER -> REJECTED, recording the
// reason and the acting party.
func (b *Booking) RejectByProvider(reason string, now time.Time) error {
	if reason == "" {
		return ErrCancelReasonMissing
	}
	if err := b.transition(StatusRejected, now); err != nil {
		return err
	}
	b.CancellationReason = reason
	b.CancelledBy = CancelledByProvider
	b.record(BookingRejected{baseEvent: b.eventBase(now), Reason: reason})
	return nil
}

// InitiatePayment moves ACCEPTED -> PAYMENT_PENDING and stores the gateway
// reference.
func (b *Booking) InitiatePayment(paymentIntentID string, now time.Time) error {
	if paymentIntentID == "" {
		return ErrPaymentRefRequired
	}
	if err := b.transition(StatusPaymentPending, now); err != nil {
		return err
	}
	b.PaymentIntentID = paymentIntentID
	return nil
}

// ConfirmPayment moves PAYMENT_PENDING -> PAYMENT_SUCCEEDED. Requires a
// stored payment reference.
func (b *Booking) ConfirmPayment(now time.Time) error {
	if b.PaymentIntentID == "" {
		return ErrPaymentRefMissing
	}
	if err := b.transition(StatusPaymentSucceeded, now); err != nil {
		return err
	}
	b.record(BookingPaymentProcessed{
		baseEvent:       b.eventBase(now),
		Amount:          b.TotalAmount,
		PlatformFee:     b.PlatformFee,
		ProviderPayout:  b.ProviderPayout,
		PaymentIntentID: b.PaymentIntentID,
	})
	return nil
}

// HandlePaymentFailure moves PAYMENT_PENDING -> PAYMENT_FAILED. The
// booking stays retryable via RetryPayment.
func (b *Booking) HandlePaymentFailure(now time.Time) error {
	return b.transition(StatusPaymentFailed, now)
}

// RetryPayment moves PAYMENT_FAILED back to PAYMENT_PENDING with a fresh
// gateway reference.
func (b *Booking) RetryPayment(paymentIntentID string, now time.Time) error {
	if paymentIntentID == "" {
		return ErrPaymentRefRequired
	}
	if err := b.transition(StatusPaymentPending, now); err != nil {
		return err
	}
	b.PaymentIntentID = paymentIntentID
	return nil
}

// Complete moves PAYMENT_SUCCEEDED -> COMPLETED.
func (b *Booking) Complete(now time.Time) error {
	if err := b.transition(StatusCompleted, now); err != nil {
		return err
	}
	b.record(BookingCompleted{baseEvent: b.eventBase(now), ProviderID: b.ProviderID})
	return nil
}

// MarkNoShow resolves a paid, past-due booking where the customer never
// showed up. A provider decision, never applied by implicit expiry.
func (b *Booking) MarkNoShow(now time.Time) error {
	if err := b.transition(StatusNoShow, now); err != nil {
		return err
	}
	b.record(BookingNoShow{baseEvent: b.eventBase(now), ProviderID: b.ProviderID})
	return nil
}

// Cancel moves any cancellable status to CANCELLED. Refund eligibility is
// computed from the status before the transition.
func (b *Booking) Cancel(reason string, by CancelParty, now time.Time) error {
	if reason == "" {
		return ErrCancelReasonMissing
	}
	switch by {
	case CancelledByCustomer, CancelledByProvider, CancelledBySystem:
	default:
		return ErrInvalidCancelParty
	}
	if !b.CanBeCancelled() {
		return ErrNotCancellable
	}
	refundable := b.ShouldRefund(now)
	if err := b.transition(StatusCancelled, now); err != nil {
		return err
	}
	b.CancellationReason = reason
	b.CancelledBy = by

	ev := BookingCancelled{baseEvent: b.eventBase(now), Reason: reason, CancelledBy: string(by)}
	if refundable {
		refund := b.TotalAmount
		ev.RefundAmount = &refund
	}
	b.record(ev)
	return nil
}

// CanBeCancelled reports whether the current status permits cancellation.
func (b *Booking) CanBeCancelled() bool {
	switch b.Status {
	case StatusInitiated, StatusPendingProvider, StatusAccepted, StatusPaymentPending, StatusPaymentSucceeded:
		return true
	}
	return false
}

// ShouldRefund reports whether cancelling now entitles the customer to a
// full refund: payment captured and the slot has not started yet.
func (b *Booking) ShouldRefund(now time.Time) bool {
	return b.Status == StatusPaymentSucceeded && b.TimeSlot.IsFuture(now)
}

// IsUpcoming reports a future slot in an active confirmed status.
func (b *Booking) IsUpcoming(now time.Time) bool {
	if !b.TimeSlot.IsFuture(now) {
		return false
	}
	return b.Status == StatusAccepted || b.Status == StatusPaymentSucceeded
}

// IsPastDue reports a slot that ended without the booking reaching a
// terminal status.
func (b *Booking) IsPastDue(now time.Time) bool {
	if !b.TimeSlot.HasEnded(now) {
		return false
	}
	return !b.Status.IsTerminal()
}

// PendingEvents returns the events recorded since the last drain.
func (b *Booking) PendingEvents() []DomainEvent {
	return b.pendingEvents
}

// DrainEvents returns and clears the recorded events. Called by the
// application service after a successful persist.
func (b *Booking) DrainEvents() []DomainEvent {
	evs := b.pendingEvents
	b.pendingEvents = nil
	return evs
}

// transition applies a legal status move, bumping the version exactly
// once. On an illegal move the aggregate is left untouched.
func (b *Booking) transition(target BookingStatus, now time.Time) error {
	next, err := b.Status.TransitionTo(target)
	if err != nil {
		return err
	}
	b.Status = next
	b.Version++
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) record(ev DomainEvent) {
	b.pendingEvents = append(b.pendingEvents, ev)
}

func (b *Booking) eventBase(now time.Time) baseEvent {
	return baseEvent{BookingID: b.ID, Version: b.Version, At: now.UTC()}
}
