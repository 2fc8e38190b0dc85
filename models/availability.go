package models

import (
	"errors"
	"time"
)

// AvailabilityWindow is a recurring daily window in minutes from midnight,
// half-open [Start, End).
type AvailabilityWindow struct {
	Start int `bson:"start" json:"start"` // e.g. 540 for 9:00 AM
	End   int `bson:"end" json:"end"`     // e.g. 1020 for 5:00 PM
}

var ErrWindowEndNotAfterStart = errors.New("availability: window end must be after start")

// NewAvailabilityWindow validates minutes-from-midnight bounds.
func NewAvailabilityWindow(start, end int) (AvailabilityWindow, error) {
	if start < 0 || end > 24*60 {
		return AvailabilityWindow{}, errors.New("availability: window must fall within a single day")
	}
	if end <= start {
		return AvailabilityWindow{}, ErrWindowEndNotAfterStart
	}
	return AvailabilityWindow{Start: start, End: end}, nil
}

// Contains reports whether [start, end) fits entirely inside the window.
func (w AvailabilityWindow) Contains(start, end int) bool {
	return start >= w.Start && end <= w.End
}

// WeeklyAvailability maps weekdays to a provider's recurring windows. A
// weekday without an entry is fully unavailable.
type WeeklyAvailability struct {
	ProviderID string                                `bson:"provider_id" json:"providerId"`
	TimeZone   string                                `bson:"time_zone" json:"timeZone"`
	Windows    map[time.Weekday][]AvailabilityWindow `bson:"windows" json:"windows"`
}

// WindowsFor returns the recurring windows for a weekday.
func (wa WeeklyAvailability) WindowsFor(day time.Weekday) []AvailabilityWindow {
	return wa.Windows[day]
}

// BlockedWindow is a provider-declared unavailable span on a concrete
// date. A full-day block has FullDay set and ignores Start/End.
type BlockedWindow struct {
	BlockID    string    `bson:"block_id" json:"blockId"`
	ProviderID string    `bson:"provider_id" json:"providerId"`
	Date       string    `bson:"date" json:"date"` // "2006-01-02" in provider tz
	Start      int       `bson:"start" json:"start"`
	End        int       `bson:"end" json:"end"`
	FullDay    bool      `bson:"full_day" json:"fullDay"`
	Reason     string    `bson:"reason" json:"reason"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// Blocks reports whether the block intersects [start, end) minutes on the
// given date.
func (bw BlockedWindow) Blocks(date string, start, end int) bool {
	if bw.Date != date {
		return false
	}
	if bw.FullDay {
		return true
	}
	return bw.Start < end && bw.End > start
}

// AvailableSlot is a bookable candidate produced by the availability
// calculator.
type AvailableSlot struct {
	ProviderID string    `json:"providerId"`
	Date       string    `json:"date"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	TimeZone   string    `json:"timeZone"`
}

// Provider is the slice of provider state the booking engine needs:
// identity, active flag and payout destination. Profile data lives
// elsewhere.
type Provider struct {
	ID              string    `bson:"id" json:"id"`
	DisplayName     string    `bson:"display_name" json:"displayName"`
	Active          bool      `bson:"active" json:"active"`
	PayoutAccountID string    `bson:"payout_account_id" json:"payoutAccountId"`
	DefaultCurrency string    `bson:"default_currency" json:"defaultCurrency"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// Customer is the minimal customer projection: identity plus guest flag,
// which drives the guest surcharge.
type Customer struct {
	ID        string    `bson:"id" json:"id"`
	Guest     bool      `bson:"guest" json:"guest"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
