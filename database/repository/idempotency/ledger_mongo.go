package idempotencyRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookify/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLedger implements Ledger using MongoDB with a unique index on key.
type MongoLedger struct {
	coll *mongo.Collection
}

// NewMongoLedger constructs an idempotency ledger over the shared Mongo
// client.
func NewMongoLedger() *MongoLedger {
	db := database.MongoClient.Database("bookify")
	return &MongoLedger{coll: db.Collection("idempotency_keys")}
}

// EnsureIndexes creates the unique key index.
func (l *MongoLedger) EnsureIndexes(ctx context.Context) error {
	_, err := l.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create idempotency index: %w", err)
	}
	return nil
}

// Reserve inserts a pending record.
func (l *MongoLedger) Reserve(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := l.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return nil
}

// Get retrieves a record by key.
func (l *MongoLedger) Get(ctx context.Context, key string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec Record
	if err := l.coll.FindOne(ctx, bson.M{"key": key}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	return &rec, nil
}

// Resolve marks the record's final status.
func (l *MongoLedger) Resolve(ctx context.Context, key, status, resourceID, lastError string, attempts int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":      status,
		"resource_id": resourceID,
		"last_error":  lastError,
		"attempts":    attempts,
		"updated_at":  time.Now().UTC(),
	}}
	res, err := l.coll.UpdateOne(ctx, bson.M{"key": key}, update)
	if err != nil {
		return fmt.Errorf("failed to resolve idempotency key: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
