package booking

import (
	"context"

	bookingRepo "bookify/database/repository/booking"
	"bookify/models"
)

// ConflictDetector answers whether a candidate slot collides with a
// provider's existing calendar. It is a read-side probe; the
// authoritative check runs inside the repository's transactional write
// paths.
type ConflictDetector interface {
	HasConflict(ctx context.Context, providerID string, slot models.TimeSlot, excludeBookingID string) (bool, error)
	FindConflicts(ctx context.Context, providerID string, slot models.TimeSlot, excludeBookingID string) ([]models.Booking, error)
}

// DefaultConflictDetector implements ConflictDetector over the booking
// read contract.
type DefaultConflictDetector struct {
	Repo bookingRepo.Reader
}

// HasConflict reports whether any conflict-relevant booking of the
// provider overlaps the candidate interval.
func (d *DefaultConflictDetector) HasConflict(ctx context.Context, providerID string, slot models.TimeSlot, excludeBookingID string) (bool, error) {
	return d.Repo.HasConflict(ctx, providerID, slot, excludeBookingID)
}

// FindConflicts returns the blocking bookings so callers can suggest
// alternatives.
func (d *DefaultConflictDetector) FindConflicts(ctx context.Context, providerID string, slot models.TimeSlot, excludeBookingID string) ([]models.Booking, error) {
	return d.Repo.FindConflicts(ctx, providerID, slot, excludeBookingID)
}
