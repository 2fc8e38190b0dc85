package customerRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookify/database"
	"bookify/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("customer not found")

// Repository resolves customer identity and the guest flag that drives
// the guest surcharge.
type Repository interface {
	GetByID(ctx context.Context, customerID string) (*models.Customer, error)
}

// MongoCustomerRepo implements Repository using MongoDB.
type MongoCustomerRepo struct {
	coll *mongo.Collection
}

// NewMongoCustomerRepo constructs a customer repository over the shared
// Mongo client.
func NewMongoCustomerRepo() *MongoCustomerRepo {
	db := database.MongoClient.Database("bookify")
	return &MongoCustomerRepo{coll: db.Collection("customers")}
}

// GetByID retrieves a customer document.
func (repo *MongoCustomerRepo) GetByID(ctx context.Context, customerID string) (*models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Customer
	if err := repo.coll.FindOne(ctx, bson.M{"id": customerID}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching customer %s: %w", customerID, err)
	}
	return &c, nil
}

// MemoryCustomerRepo is the in-memory Repository used by tests.
type MemoryCustomerRepo struct {
	mu        sync.RWMutex
	customers map[string]models.Customer
}

// NewMemoryCustomerRepo builds an empty in-memory customer repository.
func NewMemoryCustomerRepo() *MemoryCustomerRepo {
	return &MemoryCustomerRepo{customers: make(map[string]models.Customer)}
}

// PutCustomer seeds a customer document.
func (repo *MemoryCustomerRepo) PutCustomer(c models.Customer) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.customers[c.ID] = c
}

// GetByID retrieves a customer.
func (repo *MemoryCustomerRepo) GetByID(_ context.Context, customerID string) (*models.Customer, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	c, ok := repo.customers[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}
