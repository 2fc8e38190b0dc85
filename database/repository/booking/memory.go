package bookingRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"bookify/models"
)

// MemoryBookingRepo is an in-memory Repository used by tests and local
// runs. A global mutex guards the map; per-provider mutexes serialize the
// conflict-check-then-write section the same way the Mongo transaction
// does.
type MemoryBookingRepo struct {
	mu       sync.RWMutex
	bookings map[string]models.Booking

	provMu    sync.Mutex
	provLocks map[string]*sync.Mutex
}

// NewMemoryBookingRepo builds an empty in-memory repository.
func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{
		bookings:  make(map[string]models.Booking),
		provLocks: make(map[string]*sync.Mutex),
	}
}

func (repo *MemoryBookingRepo) providerLock(providerID string) *sync.Mutex {
	repo.provMu.Lock()
	defer repo.provMu.Unlock()
	l, ok := repo.provLocks[providerID]
	if !ok {
		l = &sync.Mutex{}
		repo.provLocks[providerID] = l
	}
	return l
}

// Save inserts a booking, enforcing confirmation-code uniqueness.
func (repo *MemoryBookingRepo) Save(_ context.Context, b *models.Booking) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.bookings {
		if existing.ConfirmationCode == b.ConfirmationCode {
			return ErrDuplicateConfirmationCode
		}
	}
	repo.bookings[b.ID] = *b
	return nil
}

// SaveWithConflictCheck inserts under the provider's lock after an
// overlap check.
func (repo *MemoryBookingRepo) SaveWithConflictCheck(ctx context.Context, b *models.Booking) error {
	lock := repo.providerLock(b.ProviderID)
	lock.Lock()
	defer lock.Unlock()

	conflicts, err := repo.FindConflicts(ctx, b.ProviderID, b.TimeSlot, "")
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictDetectedError{ConflictingIDs: bookingIDs(conflicts)}
	}
	return repo.Save(ctx, b)
}

// Update persists a mutation guarded by the optimistic version token.
func (repo *MemoryBookingRepo) Update(_ context.Context, b *models.Booking, expectedVersion int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	existing, ok := repo.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Version != expectedVersion {
		return ErrVersionConflict
	}
	repo.bookings[b.ID] = *b
	return nil
}

// UpdateWithConflictCheck is Update under the provider lock with an
// overlap re-check excluding the booking itself.
func (repo *MemoryBookingRepo) UpdateWithConflictCheck(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	lock := repo.providerLock(b.ProviderID)
	lock.Lock()
	defer lock.Unlock()

	conflicts, err := repo.FindConflicts(ctx, b.ProviderID, b.TimeSlot, b.ID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictDetectedError{ConflictingIDs: bookingIDs(conflicts)}
	}
	return repo.Update(ctx, b, expectedVersion)
}

// Delete removes a booking.
func (repo *MemoryBookingRepo) Delete(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(repo.bookings, id)
	return nil
}

// FindByID retrieves a booking by id.
func (repo *MemoryBookingRepo) FindByID(_ context.Context, id string) (*models.Booking, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	b, ok := repo.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// FindByConfirmationCode retrieves a booking by its lookup code.
func (repo *MemoryBookingRepo) FindByConfirmationCode(_ context.Context, code string) (*models.Booking, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	for _, b := range repo.bookings {
		if b.ConfirmationCode == code {
			out := b
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// FindByPaymentIntentID retrieves a booking by gateway reference.
func (repo *MemoryBookingRepo) FindByPaymentIntentID(_ context.Context, paymentIntentID string) (*models.Booking, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	for _, b := range repo.bookings {
		if b.PaymentIntentID == paymentIntentID && paymentIntentID != "" {
			out := b
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (repo *MemoryBookingRepo) filter(pred func(models.Booking) bool) []models.Booking {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var out []models.Booking
	for _, b := range repo.bookings {
		if pred(b) {
			out = append(out, b)
		}
	}
	return out
}

func statusIn(s models.BookingStatus, statuses []models.BookingStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func applyListOptions(bookings []models.Booking, opts models.ListOptions) []models.Booking {
	opts = opts.Normalize()
	sort.Slice(bookings, func(i, j int) bool {
		var less bool
		if opts.SortBy == models.SortByStartTime {
			less = bookings[i].TimeSlot.Start.Before(bookings[j].TimeSlot.Start)
		} else {
			less = bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
		}
		if opts.SortDesc {
			return !less
		}
		return less
	})
	if opts.Offset >= int64(len(bookings)) {
		return nil
	}
	bookings = bookings[opts.Offset:]
	if int64(len(bookings)) > opts.Limit {
		bookings = bookings[:opts.Limit]
	}
	return bookings
}

// FindByCustomerID lists a customer's bookings.
func (repo *MemoryBookingRepo) FindByCustomerID(_ context.Context, customerID string, opts models.ListOptions) ([]models.Booking, error) {
	out := repo.filter(func(b models.Booking) bool {
		return b.CustomerID == customerID && statusIn(b.Status, opts.Statuses)
	})
	return applyListOptions(out, opts), nil
}

// FindByProviderID lists a provider's bookings.
func (repo *MemoryBookingRepo) FindByProviderID(_ context.Context, providerID string, opts models.ListOptions) ([]models.Booking, error) {
	out := repo.filter(func(b models.Booking) bool {
		return b.ProviderID == providerID && statusIn(b.Status, opts.Statuses)
	})
	return applyListOptions(out, opts), nil
}

// FindByStatus lists bookings in a status.
func (repo *MemoryBookingRepo) FindByStatus(_ context.Context, status models.BookingStatus, opts models.ListOptions) ([]models.Booking, error) {
	out := repo.filter(func(b models.Booking) bool { return b.Status == status })
	return applyListOptions(out, opts), nil
}

// FindByTimeSlot lists overlapping bookings regardless of status.
func (repo *MemoryBookingRepo) FindByTimeSlot(_ context.Context, providerID string, slot models.TimeSlot) ([]models.Booking, error) {
	return repo.filter(func(b models.Booking) bool {
		return b.ProviderID == providerID && b.TimeSlot.Overlaps(slot)
	}), nil
}

// FindConflicts lists conflict-relevant overlapping bookings.
func (repo *MemoryBookingRepo) FindConflicts(_ context.Context, providerID string, slot models.TimeSlot, excludeID string) ([]models.Booking, error) {
	return repo.filter(func(b models.Booking) bool {
		return b.ProviderID == providerID &&
			b.ID != excludeID &&
			b.Status.IsConflictRelevant() &&
			b.TimeSlot.Overlaps(slot)
	}), nil
}

// HasConflict reports whether any conflict-relevant booking overlaps.
func (repo *MemoryBookingRepo) HasConflict(ctx context.Context, providerID string, slot models.TimeSlot, excludeID string) (bool, error) {
	conflicts, err := repo.FindConflicts(ctx, providerID, slot, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// FindUpcoming lists active future bookings.
func (repo *MemoryBookingRepo) FindUpcoming(_ context.Context, providerID string, now time.Time, opts models.ListOptions) ([]models.Booking, error) {
	if opts.SortBy == "" {
		opts.SortBy = models.SortByStartTime
	}
	out := repo.filter(func(b models.Booking) bool {
		if providerID != "" && b.ProviderID != providerID {
			return false
		}
		return b.IsUpcoming(now)
	})
	return applyListOptions(out, opts), nil
}

// FindPastDue lists unresolved bookings whose slot has ended.
func (repo *MemoryBookingRepo) FindPastDue(_ context.Context, now time.Time, opts models.ListOptions) ([]models.Booking, error) {
	out := repo.filter(func(b models.Booking) bool { return b.IsPastDue(now) })
	return applyListOptions(out, opts), nil
}

// CountByStatus tallies bookings per status.
func (repo *MemoryBookingRepo) CountByStatus(_ context.Context) ([]models.StatusCount, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	counts := make(map[models.BookingStatus]int64)
	for _, b := range repo.bookings {
		counts[b.Status]++
	}
	out := make([]models.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, models.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

// FindUnpaidBookings lists ACCEPTED bookings stale past the cutoff.
func (repo *MemoryBookingRepo) FindUnpaidBookings(_ context.Context, cutoff time.Time) ([]models.Booking, error) {
	return repo.filter(func(b models.Booking) bool {
		return b.Status == models.StatusAccepted && b.UpdatedAt.Before(cutoff)
	}), nil
}
