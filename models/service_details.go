package models

import (
	"errors"
	"fmt"
)

// Service duration bounds in minutes.
const (
	MinServiceDurationMinutes = 15
	MaxServiceDurationMinutes = 480
)

// ServiceDetails describes the purchased service. Immutable once attached
// to a booking.
type ServiceDetails struct {
	ServiceID   string `bson:"service_id" json:"serviceId"`
	Name        string `bson:"name" json:"name"`               // 1-100 chars
	Description string `bson:"description" json:"description"` // <= 500 chars
	Price       Money  `bson:"price" json:"price"`             // > 0
	Duration    int    `bson:"duration" json:"duration"`       // minutes, 15-480
	Category    string `bson:"category" json:"category"`
}

var (
	ErrServiceIDRequired  = errors.New("service: id required")
	ErrServiceNameLength  = errors.New("service: name must be 1-100 characters")
	ErrServiceDescLength  = errors.New("service: description must be at most 500 characters")
	ErrServicePriceNotPos = errors.New("service: price must be positive")
)

// NewServiceDetails validates and builds a ServiceDetails value.
func NewServiceDetails(serviceID, name, description string, price Money, durationMinutes int, category string) (ServiceDetails, error) {
	if serviceID == "" {
		return ServiceDetails{}, ErrServiceIDRequired
	}
	if len(name) < 1 || len(name) > 100 {
		return ServiceDetails{}, ErrServiceNameLength
	}
	if len(description) > 500 {
		return ServiceDetails{}, ErrServiceDescLength
	}
	if !price.IsPositive() {
		return ServiceDetails{}, ErrServicePriceNotPos
	}
	if durationMinutes < MinServiceDurationMinutes || durationMinutes > MaxServiceDurationMinutes {
		return ServiceDetails{}, fmt.Errorf("service: duration must be %d-%d minutes, got %d",
			MinServiceDurationMinutes, MaxServiceDurationMinutes, durationMinutes)
	}
	return ServiceDetails{
		ServiceID:   serviceID,
		Name:        name,
		Description: description,
		Price:       price,
		Duration:    durationMinutes,
		Category:    category,
	}, nil
}
