package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"bookify/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// overlapFilter is the half-open interval overlap predicate:
// existing.start < candidate.end AND existing.end > candidate.start.
func overlapFilter(providerID string, slot models.TimeSlot) bson.M {
	return bson.M{
		"provider_id":     providerID,
		"time_slot.start": bson.M{"$lt": slot.End},
		"time_slot.end":   bson.M{"$gt": slot.Start},
	}
}

func conflictFilter(providerID string, slot models.TimeSlot, excludeID string) bson.M {
	filter := overlapFilter(providerID, slot)
	filter["status"] = bson.M{"$in": models.ConflictRelevantStatuses}
	if excludeID != "" {
		filter["id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

func listFindOptions(opts models.ListOptions) *options.FindOptions {
	opts = opts.Normalize()
	sortField := "created_at"
	if opts.SortBy == models.SortByStartTime {
		sortField = "time_slot.start"
	}
	order := 1
	if opts.SortDesc {
		order = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: order}}).
		SetLimit(opts.Limit).
		SetSkip(opts.Offset)
}

func withStatusFilter(filter bson.M, statuses []models.BookingStatus) bson.M {
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return filter
}

func (repo *MongoBookingRepo) findMany(ctx context.Context, filter bson.M, findOpts *options.FindOptions) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := repo.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("booking query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Booking
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("booking decode failed: %w", err)
	}
	return out, nil
}

// FindByCustomerID lists a customer's bookings with optional status
// filter, pagination and ordering.
func (repo *MongoBookingRepo) FindByCustomerID(ctx context.Context, customerID string, opts models.ListOptions) ([]models.Booking, error) {
	filter := withStatusFilter(bson.M{"customer_id": customerID}, opts.Statuses)
	return repo.findMany(ctx, filter, listFindOptions(opts))
}

// FindByProviderID lists a provider's bookings.
func (repo *MongoBookingRepo) FindByProviderID(ctx context.Context, providerID string, opts models.ListOptions) ([]models.Booking, error) {
	filter := withStatusFilter(bson.M{"provider_id": providerID}, opts.Statuses)
	return repo.findMany(ctx, filter, listFindOptions(opts))
}

// FindByStatus lists bookings in a single status.
func (repo *MongoBookingRepo) FindByStatus(ctx context.Context, status models.BookingStatus, opts models.ListOptions) ([]models.Booking, error) {
	return repo.findMany(ctx, bson.M{"status": status}, listFindOptions(opts))
}

// FindByTimeSlot lists the provider's bookings overlapping the interval,
// regardless of status.
func (repo *MongoBookingRepo) FindByTimeSlot(ctx context.Context, providerID string, slot models.TimeSlot) ([]models.Booking, error) {
	return repo.findMany(ctx, overlapFilter(providerID, slot), nil)
}

// FindConflicts lists conflict-relevant bookings overlapping the
// candidate slot.
func (repo *MongoBookingRepo) FindConflicts(ctx context.Context, providerID string, slot models.TimeSlot, excludeID string) ([]models.Booking, error) {
	return repo.findMany(ctx, conflictFilter(providerID, slot, excludeID), nil)
}

// HasConflict reports whether any conflict-relevant booking overlaps the
// candidate slot.
func (repo *MongoBookingRepo) HasConflict(ctx context.Context, providerID string, slot models.TimeSlot, excludeID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := repo.coll.CountDocuments(ctx, conflictFilter(providerID, slot, excludeID), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("conflict count failed: %w", err)
	}
	return n > 0, nil
}

// FindUpcoming lists active bookings starting after now.
func (repo *MongoBookingRepo) FindUpcoming(ctx context.Context, providerID string, now time.Time, opts models.ListOptions) ([]models.Booking, error) {
	filter := bson.M{
		"time_slot.start": bson.M{"$gt": now},
		"status":          bson.M{"$in": []models.BookingStatus{models.StatusAccepted, models.StatusPaymentSucceeded}},
	}
	if providerID != "" {
		filter["provider_id"] = providerID
	}
	if opts.SortBy == "" {
		opts.SortBy = models.SortByStartTime
	}
	return repo.findMany(ctx, filter, listFindOptions(opts))
}

// FindPastDue lists bookings whose slot ended without reaching a
// terminal status.
func (repo *MongoBookingRepo) FindPastDue(ctx context.Context, now time.Time, opts models.ListOptions) ([]models.Booking, error) {
	filter := bson.M{
		"time_slot.end": bson.M{"$lt": now},
		"status": bson.M{"$nin": []models.BookingStatus{
			models.StatusCompleted, models.StatusCancelled, models.StatusRejected, models.StatusNoShow,
		}},
	}
	return repo.findMany(ctx, filter, listFindOptions(opts))
}

// CountByStatus tallies bookings per status.
func (repo *MongoBookingRepo) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("status count aggregation failed: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.StatusCount
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("status count decode failed: %w", err)
	}
	return out, nil
}

// FindUnpaidBookings lists ACCEPTED bookings not updated since the
// cutoff, for the unpaid sweep.
func (repo *MongoBookingRepo) FindUnpaidBookings(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status":     models.StatusAccepted,
		"updated_at": bson.M{"$lt": cutoff},
	}
	return repo.findMany(ctx, filter, nil)
}
