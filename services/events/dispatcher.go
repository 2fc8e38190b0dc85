package events

import (
	"context"
	"sync"

	"bookify/models"
	"bookify/utils"

	"go.uber.org/zap"
)

// Dispatcher delivers booking domain events to external collaborators
// (payment, notification). Emission is decoupled from delivery: the
// application service drains aggregate events after a successful persist
// and hands the envelopes here.
type Dispatcher interface {
	Dispatch(ctx context.Context, envelope models.EventEnvelope) error
}

// DispatchAll publishes every drained event, logging and continuing on
// individual failures so a broker hiccup never rolls back a committed
// booking.
func DispatchAll(ctx context.Context, d Dispatcher, evs []models.DomainEvent) {
	for _, ev := range evs {
		if err := d.Dispatch(ctx, models.NewEnvelope(ev)); err != nil {
			utils.GetLogger().Error("event dispatch failed",
				zap.String("event", ev.EventName()),
				zap.String("booking", ev.AggregateID()),
				zap.Error(err))
		}
	}
}

// MemoryDispatcher collects envelopes in memory. Used by tests and as a
// fallback when no broker is configured.
type MemoryDispatcher struct {
	mu        sync.Mutex
	envelopes []models.EventEnvelope
}

// NewMemoryDispatcher builds an empty in-memory dispatcher.
func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

// Dispatch records the envelope.
func (d *MemoryDispatcher) Dispatch(_ context.Context, envelope models.EventEnvelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.envelopes = append(d.envelopes, envelope)
	return nil
}

// Envelopes returns a copy of everything dispatched so far.
func (d *MemoryDispatcher) Envelopes() []models.EventEnvelope {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.EventEnvelope, len(d.envelopes))
	copy(out, d.envelopes)
	return out
}
