package providerRepo

import (
	"context"
	"errors"

	"bookify/models"
)

var ErrNotFound = errors.New("provider not found")

// Repository exposes the provider state the booking engine needs:
// identity/active status, the weekly recurring availability and explicit
// blocked windows.
type Repository interface {
	GetByID(ctx context.Context, providerID string) (*models.Provider, error)
	GetWeeklyAvailability(ctx context.Context, providerID string) (*models.WeeklyAvailability, error)
	SetWeeklyAvailability(ctx context.Context, wa *models.WeeklyAvailability) error
	// ListBlockedWindows returns blocks for the provider whose date falls
	// in [fromDate, toDate], dates formatted "2006-01-02".
	ListBlockedWindows(ctx context.Context, providerID, fromDate, toDate string) ([]models.BlockedWindow, error)
	AddBlockedWindow(ctx context.Context, bw *models.BlockedWindow) error
	RemoveBlockedWindow(ctx context.Context, blockID string) error
}
