package bookingRepo

import (
	"context"
	"fmt"

	"bookify/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// SaveWithConflictCheck runs the conflict query and the insert inside one
// Mongo transaction, so two concurrent "no conflict" reads cannot both
// commit an overlapping booking.
func (repo *MongoBookingRepo) SaveWithConflictCheck(ctx context.Context, b *models.Booking) error {
	return repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		conflicts, err := repo.FindConflicts(sc, b.ProviderID, b.TimeSlot, "")
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictDetectedError{ConflictingIDs: bookingIDs(conflicts)}
		}
		if _, err := repo.coll.InsertOne(sc, b); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrDuplicateConfirmationCode
			}
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	})
}

// UpdateWithConflictCheck persists a transition into a conflict-relevant
// status, re-running the overlap check (excluding the booking itself) in
// the same transaction as the version-guarded write.
func (repo *MongoBookingRepo) UpdateWithConflictCheck(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	return repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		conflicts, err := repo.FindConflicts(sc, b.ProviderID, b.TimeSlot, b.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictDetectedError{ConflictingIDs: bookingIDs(conflicts)}
		}
		return repo.Update(sc, b, expectedVersion)
	})
}

func (repo *MongoBookingRepo) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	client := repo.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return err
	}
	return nil
}

func bookingIDs(bookings []models.Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}
