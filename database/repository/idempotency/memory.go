package idempotencyRepo

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is the in-memory Ledger used by tests.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryLedger builds an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]Record)}
}

// Reserve inserts a pending record, enforcing key uniqueness.
func (l *MemoryLedger) Reserve(_ context.Context, rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[rec.Key]; ok {
		return ErrKeyExists
	}
	l.records[rec.Key] = *rec
	return nil
}

// Get retrieves a record by key.
func (l *MemoryLedger) Get(_ context.Context, key string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Resolve marks the record's final status.
func (l *MemoryLedger) Resolve(_ context.Context, key, status, resourceID, lastError string, attempts int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	rec.ResourceID = resourceID
	rec.LastError = lastError
	rec.Attempts = attempts
	rec.UpdatedAt = time.Now().UTC()
	l.records[key] = rec
	return nil
}
