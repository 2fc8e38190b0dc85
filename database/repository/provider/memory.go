package providerRepo

import (
	"context"
	"sync"

	"bookify/models"
)

// MemoryProviderRepo is the in-memory Repository used by tests.
type MemoryProviderRepo struct {
	mu           sync.RWMutex
	providers    map[string]models.Provider
	availability map[string]models.WeeklyAvailability
	blocked      map[string]models.BlockedWindow
}

// NewMemoryProviderRepo builds an empty in-memory provider repository.
func NewMemoryProviderRepo() *MemoryProviderRepo {
	return &MemoryProviderRepo{
		providers:    make(map[string]models.Provider),
		availability: make(map[string]models.WeeklyAvailability),
		blocked:      make(map[string]models.BlockedWindow),
	}
}

// PutProvider seeds a provider document.
func (repo *MemoryProviderRepo) PutProvider(p models.Provider) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.providers[p.ID] = p
}

// GetByID retrieves a provider.
func (repo *MemoryProviderRepo) GetByID(_ context.Context, providerID string) (*models.Provider, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	p, ok := repo.providers[providerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// GetWeeklyAvailability retrieves the recurring windows.
func (repo *MemoryProviderRepo) GetWeeklyAvailability(_ context.Context, providerID string) (*models.WeeklyAvailability, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	wa, ok := repo.availability[providerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &wa, nil
}

// SetWeeklyAvailability upserts the recurring windows.
func (repo *MemoryProviderRepo) SetWeeklyAvailability(_ context.Context, wa *models.WeeklyAvailability) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.availability[wa.ProviderID] = *wa
	return nil
}

// ListBlockedWindows retrieves blocks in a date range.
func (repo *MemoryProviderRepo) ListBlockedWindows(_ context.Context, providerID, fromDate, toDate string) ([]models.BlockedWindow, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var out []models.BlockedWindow
	for _, bw := range repo.blocked {
		if bw.ProviderID == providerID && bw.Date >= fromDate && bw.Date <= toDate {
			out = append(out, bw)
		}
	}
	return out, nil
}

// AddBlockedWindow records a blocked span.
func (repo *MemoryProviderRepo) AddBlockedWindow(_ context.Context, bw *models.BlockedWindow) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.blocked[bw.BlockID] = *bw
	return nil
}

// RemoveBlockedWindow deletes a block by id.
func (repo *MemoryProviderRepo) RemoveBlockedWindow(_ context.Context, blockID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.blocked[blockID]; !ok {
		return ErrNotFound
	}
	delete(repo.blocked, blockID)
	return nil
}
