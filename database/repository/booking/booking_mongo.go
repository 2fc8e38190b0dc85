package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookify/database"
	"bookify/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements Repository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a booking repository over the shared
// Mongo client.
func NewMongoBookingRepo() *MongoBookingRepo {
	db := database.MongoClient.Database("bookify")
	return &MongoBookingRepo{coll: db.Collection("bookings")}
}

// EnsureIndexes creates the indexes the repository depends on: unique
// confirmation code, provider calendar lookups and payment references.
func (repo *MongoBookingRepo) EnsureIndexes(ctx context.Context) error {
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "confirmation_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "provider_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "time_slot.start", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "payment_intent_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

// Save inserts a new booking document.
func (repo *MongoBookingRepo) Save(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateConfirmationCode
		}
		return fmt.Errorf("failed to insert booking %s: %w", b.ID, err)
	}
	return nil
}

// Update replaces the booking document, matching on the version the
// caller read. A stale version yields ErrVersionConflict.
func (repo *MongoBookingRepo) Update(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": b.ID, "version": expectedVersion}
	res, err := repo.coll.ReplaceOne(ctx, filter, b)
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", b.ID, err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing document from a stale write.
		if err := repo.coll.FindOne(ctx, bson.M{"id": b.ID}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// Delete removes a booking document. Terminal bookings are normally kept
// as historical record; this exists for administrative cleanup.
func (repo *MongoBookingRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete booking %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *MongoBookingRepo) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := repo.coll.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("booking lookup failed: %w", err)
	}
	return &b, nil
}

// FindByID retrieves a booking by its internal id.
func (repo *MongoBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	return repo.findOne(ctx, bson.M{"id": id})
}

// FindByConfirmationCode retrieves a booking by the customer-facing code.
func (repo *MongoBookingRepo) FindByConfirmationCode(ctx context.Context, code string) (*models.Booking, error) {
	return repo.findOne(ctx, bson.M{"confirmation_code": code})
}

// FindByPaymentIntentID retrieves a booking by its gateway reference.
func (repo *MongoBookingRepo) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	return repo.findOne(ctx, bson.M{"payment_intent_id": paymentIntentID})
}
