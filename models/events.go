package models

import "time"

// DomainEvent is implemented by every booking lifecycle event. Events are
// recorded on the aggregate during mutation and drained by the application
// service after a successful persist.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	AggregateVersion() int64
	OccurredAt() time.Time
}

// EventEnvelope is the wire form handed to the dispatcher: event name,
// booking id, monotonic version tag and an ISO-8601 timestamp plus the
// raw payload.
type EventEnvelope struct {
	Name       string      `json:"name"`
	BookingID  string      `json:"bookingId"`
	Version    int64       `json:"version"`
	OccurredAt string      `json:"occurredAt"` // RFC 3339
	Payload    DomainEvent `json:"payload"`
}

// NewEnvelope wraps a domain event for publication.
func NewEnvelope(ev DomainEvent) EventEnvelope {
	return EventEnvelope{
		Name:       ev.EventName(),
		BookingID:  ev.AggregateID(),
		Version:    ev.AggregateVersion(),
		OccurredAt: ev.OccurredAt().UTC().Format(time.RFC3339),
		Payload:    ev,
	}
}

type baseEvent struct {
	BookingID string    `json:"bookingId"`
	Version   int64     `json:"version"`
	At        time.Time `json:"at"`
}

func (e baseEvent) AggregateID() string     { return e.BookingID }
func (e baseEvent) AggregateVersion() int64 { return e.Version }
func (e baseEvent) OccurredAt() time.Time   { return e.At }

// BookingCreated fires when a booking enters the system.
type BookingCreated struct {
	baseEvent
	CustomerID       string `json:"customerId"`
	ProviderID       string `json:"providerId"`
	ConfirmationCode string `json:"confirmationCode"`
	TotalAmount      Money  `json:"totalAmount"`
}

func (BookingCreated) EventName() string { return "booking.created" }

// BookingConfirmed fires when the provider accepts.
type BookingConfirmed struct {
	baseEvent
	ProviderID string `json:"providerId"`
}

func (BookingConfirmed) EventName() string { return "booking.confirmed" }

// BookingRejected fires when the provider declines.
type BookingRejected struct {
	baseEvent
	Reason string `json:"reason"`
}

func (BookingRejected) EventName() string { return "booking.rejected" }

// BookingPaymentProcessed fires when a payment is captured, carrying the
// full money split.
type BookingPaymentProcessed struct {
	baseEvent
	Amount          Money  `json:"amount"`
	PlatformFee     Money  `json:"platformFee"`
	ProviderPayout  Money  `json:"providerPayout"`
	PaymentIntentID string `json:"paymentIntentId"`
}

func (BookingPaymentProcessed) EventName() string { return "booking.payment.processed" }

// BookingCancelled fires on cancellation. RefundAmount is non-nil only
// when the cancellation is refund-eligible.
type BookingCancelled struct {
	baseEvent
	Reason       string `json:"reason"`
	CancelledBy  string `json:"cancelledBy"`
	RefundAmount *Money `json:"refundAmount,omitempty"`
}

func (BookingCancelled) EventName() string { return "booking.cancelled" }

// BookingCompleted fires when service delivery is confirmed.
type BookingCompleted struct {
	baseEvent
	ProviderID string `json:"providerId"`
}

func (BookingCompleted) EventName() string { return "booking.completed" }

// BookingNoShow fires when the provider resolves a paid booking as a
// customer no-show.
type BookingNoShow struct {
	baseEvent
	ProviderID string `json:"providerId"`
}

func (BookingNoShow) EventName() string { return "booking.noshow" }

// BookingReminder fires from the reminder worker ahead of an upcoming
// booking.
type BookingReminder struct {
	baseEvent
	ReminderType string `json:"reminderType"` // e.g. "24h", "1h"
}

func (BookingReminder) EventName() string { return "booking.reminder" }

// BookingConflictDetected fires when a creation attempt is rejected by
// the conflict detector.
type BookingConflictDetected struct {
	baseEvent
	ProviderID            string   `json:"providerId"`
	ConflictingBookingIDs []string `json:"conflictingBookingIds"`
}

func (BookingConflictDetected) EventName() string { return "booking.conflict.detected" }
