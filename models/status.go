package models

import "fmt"

// BookingStatus encodes the booking lifecycle state machine.
type BookingStatus string

const (
	StatusInitiated        BookingStatus = "INITIATED"
	StatusPendingProvider  BookingStatus = "PENDING_PROVIDER"
	StatusAccepted         BookingStatus = "ACCEPTED"
	StatusRejected         BookingStatus = "REJECTED"
	StatusPaymentPending   BookingStatus = "PAYMENT_PENDING"
	StatusPaymentFailed    BookingStatus = "PAYMENT_FAILED"
	StatusPaymentSucceeded BookingStatus = "PAYMENT_SUCCEEDED"
	StatusCompleted        BookingStatus = "COMPLETED"
	StatusCancelled        BookingStatus = "CANCELLED"
	StatusNoShow           BookingStatus = "NO_SHOW"
)

// statusTransitions is the full adjacency table. Terminal statuses map to
// an empty set.
var statusTransitions = map[BookingStatus][]BookingStatus{
	StatusInitiated:        {StatusPendingProvider, StatusCancelled},
	StatusPendingProvider:  {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:         {StatusPaymentPending, StatusCancelled},
	StatusRejected:         {},
	StatusPaymentPending:   {StatusPaymentSucceeded, StatusPaymentFailed, StatusCancelled},
	StatusPaymentFailed:    {StatusPaymentPending, StatusCancelled},
	StatusPaymentSucceeded: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted:        {},
	StatusCancelled:        {},
	StatusNoShow:           {},
}

// ConflictRelevantStatuses are the statuses that occupy a provider's
// calendar. Cancelled, rejected and no-show bookings do not block.
var ConflictRelevantStatuses = []BookingStatus{
	StatusAccepted,
	StatusPaymentPending,
	StatusPaymentSucceeded,
	StatusCompleted,
}

// TransitionError identifies an illegal state-machine move.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal booking transition %s -> %s", e.From, e.To)
}

// IsValid reports whether the status is a known lifecycle state.
func (s BookingStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether target appears in the adjacency table
// for s.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo returns the new status, or a *TransitionError if the move
// is not in the table. It never mutates in place.
func (s BookingStatus) TransitionTo(target BookingStatus) (BookingStatus, error) {
	if !s.CanTransitionTo(target) {
		return s, &TransitionError{From: s, To: target}
	}
	return target, nil
}

// AllowedTransitions returns a copy of the legal targets from s.
func (s BookingStatus) AllowedTransitions() []BookingStatus {
	out := make([]BookingStatus, len(statusTransitions[s]))
	copy(out, statusTransitions[s])
	return out
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s BookingStatus) IsTerminal() bool {
	return s.IsValid() && len(statusTransitions[s]) == 0
}

// RequiresPayment reports whether the booking is waiting for payment
// initiation.
func (s BookingStatus) RequiresPayment() bool {
	return s == StatusAccepted
}

// HasPaymentProcessed reports whether money has been captured for the
// booking.
func (s BookingStatus) HasPaymentProcessed() bool {
	return s == StatusPaymentSucceeded || s == StatusCompleted
}

// IsConflictRelevant reports whether the status counts toward occupying a
// provider's calendar.
func (s BookingStatus) IsConflictRelevant() bool {
	for _, c := range ConflictRelevantStatuses {
		if s == c {
			return true
		}
	}
	return false
}
