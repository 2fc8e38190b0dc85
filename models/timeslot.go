package models

import (
	"errors"
	"fmt"
	"time"
)

// TimeSlot is an immutable half-open interval [Start, End) carrying the
// provider's IANA timezone.
type TimeSlot struct {
	Start    time.Time `bson:"start" json:"start"`
	End      time.Time `bson:"end" json:"end"`
	TimeZone string    `bson:"time_zone" json:"timeZone"` // e.g. "America/New_York"
}

var (
	ErrSlotEndNotAfterStart = errors.New("timeslot: end must be after start")
	ErrSlotZeroTime         = errors.New("timeslot: start and end are required")
)

// NewTimeSlot validates and builds a TimeSlot. An empty timezone defaults
// to UTC; an invalid one is rejected.
func NewTimeSlot(start, end time.Time, timeZone string) (TimeSlot, error) {
	if start.IsZero() || end.IsZero() {
		return TimeSlot{}, ErrSlotZeroTime
	}
	if !end.After(start) {
		return TimeSlot{}, ErrSlotEndNotAfterStart
	}
	if timeZone == "" {
		timeZone = "UTC"
	}
	if _, err := time.LoadLocation(timeZone); err != nil {
		return TimeSlot{}, fmt.Errorf("timeslot: invalid timezone %q: %w", timeZone, err)
	}
	return TimeSlot{Start: start.UTC(), End: end.UTC(), TimeZone: timeZone}, nil
}

// Overlaps reports whether two half-open intervals intersect:
// a.Start < b.End && a.End > b.Start.
func (ts TimeSlot) Overlaps(other TimeSlot) bool {
	return ts.Start.Before(other.End) && ts.End.After(other.Start)
}

// Duration returns the slot length.
func (ts TimeSlot) Duration() time.Duration {
	return ts.End.Sub(ts.Start)
}

// IsFuture reports whether the slot starts after now.
func (ts TimeSlot) IsFuture(now time.Time) bool {
	return ts.Start.After(now)
}

// HasEnded reports whether the slot end is in the past.
func (ts TimeSlot) HasEnded(now time.Time) bool {
	return ts.End.Before(now)
}

// Location resolves the slot's timezone. Falls back to UTC if the zone
// database entry is missing at runtime.
func (ts TimeSlot) Location() *time.Location {
	loc, err := time.LoadLocation(ts.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
