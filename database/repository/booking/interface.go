package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookify/models"
)

var (
	// ErrNotFound is returned when no booking matches the lookup key.
	ErrNotFound = errors.New("booking not found")
	// ErrVersionConflict is returned when an update carries a stale
	// version; the caller must re-fetch and retry.
	ErrVersionConflict = errors.New("booking version conflict")
	// ErrDuplicateConfirmationCode is returned when the unique index on
	// the confirmation code rejects an insert.
	ErrDuplicateConfirmationCode = errors.New("duplicate confirmation code")
)

// ConflictDetectedError is returned by the transactional write paths when
// the candidate slot overlaps existing conflict-relevant bookings.
type ConflictDetectedError struct {
	ConflictingIDs []string
}

func (e *ConflictDetectedError) Error() string {
	return fmt.Sprintf("time slot conflicts with %d existing booking(s)", len(e.ConflictingIDs))
}

// Writer is the narrow write contract. The conflict-checked variants run
// the overlap query and the write inside one transaction, closing the
// read-then-write double-booking race.
type Writer interface {
	// Save inserts a new booking without conflict checking. Used for
	// statuses that do not occupy the calendar.
	Save(ctx context.Context, b *models.Booking) error
	// SaveWithConflictCheck inserts the booking only if no
	// conflict-relevant booking overlaps its slot.
	SaveWithConflictCheck(ctx context.Context, b *models.Booking) error
	// Update persists a mutated aggregate, matching on the version the
	// caller read. A stale version yields ErrVersionConflict.
	Update(ctx context.Context, b *models.Booking, expectedVersion int64) error
	// UpdateWithConflictCheck is Update plus an overlap check excluding
	// the booking itself; used when transitioning into a
	// conflict-relevant status.
	UpdateWithConflictCheck(ctx context.Context, b *models.Booking, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
}

// Reader is the broad query contract. All list methods accept status
// filters, pagination and ordering via models.ListOptions.
type Reader interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindByConfirmationCode(ctx context.Context, code string) (*models.Booking, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error)
	FindByCustomerID(ctx context.Context, customerID string, opts models.ListOptions) ([]models.Booking, error)
	FindByProviderID(ctx context.Context, providerID string, opts models.ListOptions) ([]models.Booking, error)
	FindByStatus(ctx context.Context, status models.BookingStatus, opts models.ListOptions) ([]models.Booking, error)
	// FindByTimeSlot returns bookings of the provider whose slot
	// overlaps the given interval, regardless of status.
	FindByTimeSlot(ctx context.Context, providerID string, slot models.TimeSlot) ([]models.Booking, error)
	// FindConflicts returns conflict-relevant bookings of the provider
	// overlapping the candidate slot, excluding excludeID when non-empty.
	FindConflicts(ctx context.Context, providerID string, slot models.TimeSlot, excludeID string) ([]models.Booking, error)
	HasConflict(ctx context.Context, providerID string, slot models.TimeSlot, excludeID string) (bool, error)
	// FindUpcoming returns active bookings starting after now. An empty
	// providerID matches all providers.
	FindUpcoming(ctx context.Context, providerID string, now time.Time, opts models.ListOptions) ([]models.Booking, error)
	// FindPastDue returns bookings whose slot ended before now and whose
	// status is not terminal.
	FindPastDue(ctx context.Context, now time.Time, opts models.ListOptions) ([]models.Booking, error)
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
	// FindUnpaidBookings returns ACCEPTED bookings updated before the
	// cutoff; the unpaid sweep cancels them.
	FindUnpaidBookings(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
}

// Repository is the full contract; most collaborators should depend on
// Reader or Writer instead.
type Repository interface {
	Reader
	Writer
}
