package providerRepo

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

// MongoProviderRepo implements Repository using MongoDB.
type MongoProviderRepo struct {
	providerColl     *mongo.Collection
	availabilityColl *mongo.Collection
	blockedColl      *mongo.Collection
}

// NewMongoProviderRepo constructs a provider repository over the shared
// Mongo client.
func NewMongoProviderRepo() *MongoProviderRepo {
	db := database.MongoClient.Database("bookify")
	return &MongoProviderRepo{
		providerColl:     db.Collection("providers"),
		availabilityColl: db.Collection("availability"),
		blockedColl:      db.Collection("blocked"),
	}
}

// GetByID retrieves a provider document.
func (repo *MongoProviderRepo) GetByID(ctx context.Context, providerID string) (*models.Provider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Provider
	if err := repo.providerColl.FindOne(ctx, bson.M{"id": providerID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching provider %s: %w", providerID, err)
	}
	return &p, nil
}

// GetWeeklyAvailability retrieves the provider's recurring windows.
func (repo *MongoProviderRepo) GetWeeklyAvailability(ctx context.Context, providerID string) (*models.WeeklyAvailability, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var wa models.WeeklyAvailability
	if err := repo.availabilityColl.FindOne(ctx, bson.M{"provider_id": providerID}).Decode(&wa); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching availability for provider %s: %w", providerID, err)
	}
	return &wa, nil
}

// SetWeeklyAvailability upserts the provider's recurring windows.
func (repo *MongoProviderRepo) SetWeeklyAvailability(ctx context.Context, wa *models.WeeklyAvailability) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"provider_id": wa.ProviderID}
	_, err := repo.availabilityColl.ReplaceOne(ctx, filter, wa, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving availability for provider %s: %w", wa.ProviderID, err)
	}
	return nil
}

// ListBlockedWindows retrieves blocks in a date range.
func (repo *MongoProviderRepo) ListBlockedWindows(ctx context.Context, providerID, fromDate, toDate string) ([]models.BlockedWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"provider_id": providerID,
		"date":        bson.M{"$gte": fromDate, "$lte": toDate},
	}
	cursor, err := repo.blockedColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching blocked windows: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.BlockedWindow
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding blocked windows: %w", err)
	}
	return out, nil
}

// AddBlockedWindow records a new blocked span.
func (repo *MongoProviderRepo) AddBlockedWindow(ctx context.Context, bw *models.BlockedWindow) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.blockedColl.InsertOne(ctx, bw); err != nil {
		return fmt.Errorf("error inserting blocked window: %w", err)
	}
	return nil
}

// RemoveBlockedWindow deletes a block by id.
func (repo *MongoProviderRepo) RemoveBlockedWindow(ctx context.Context, blockID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.blockedColl.DeleteOne(ctx, bson.M{"block_id": blockID})
	if err != nil {
		return fmt.Errorf("error deleting blocked window %s: %w", blockID, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
