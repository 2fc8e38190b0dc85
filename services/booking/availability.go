package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bookingRepo "bookify/database/repository/booking"
	providerRepo "bookify/database/repository/provider"
	"bookify/models"
	"bookify/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	availabilityCacheTTL = 30 * time.Second
	dateLayout           = "2006-01-02"
)

// AvailabilityCalculator expands a provider's weekly recurring windows
// into discrete bookable slots, removing anything occupied by a booking
// or a blocked window.
type AvailabilityCalculator interface {
	CalculateAvailableSlots(ctx context.Context, providerID string, from, to time.Time, slotDuration time.Duration) ([]models.AvailableSlot, error)
	// InvalidateProvider drops cached availability after a calendar
	// mutation.
	InvalidateProvider(ctx context.Context, providerID string)
}

// DefaultAvailabilityCalculator implements AvailabilityCalculator. Cache
// is optional; a nil client disables caching.
type DefaultAvailabilityCalculator struct {
	Providers providerRepo.Repository
	Bookings  bookingRepo.Reader
	Cache     *redis.Client
}

// CalculateAvailableSlots walks each calendar day in [from, to], looks up
// that weekday's recurring windows in the provider's timezone, and emits
// fixed-duration slots that fit entirely inside a window and intersect no
// conflict-relevant booking or blocked window.
func (c *DefaultAvailabilityCalculator) CalculateAvailableSlots(ctx context.Context, providerID string, from, to time.Time, slotDuration time.Duration) ([]models.AvailableSlot, error) {
	if slotDuration < models.MinServiceDurationMinutes*time.Minute || slotDuration > models.MaxServiceDurationMinutes*time.Minute {
		return nil, NewError(CodeValidation, fmt.Sprintf("slot duration must be %d-%d minutes",
			models.MinServiceDurationMinutes, models.MaxServiceDurationMinutes))
	}
	if !to.After(from) {
		return nil, NewError(CodeValidation, "date range end must be after start")
	}

	if cached, ok := c.cacheGet(ctx, providerID, from, to, slotDuration); ok {
		return cached, nil
	}

	wa, err := c.Providers.GetWeeklyAvailability(ctx, providerID)
	if err != nil {
		if errors.Is(err, providerRepo.ErrNotFound) {
			return nil, nil // no availability configured
		}
		return nil, WrapError(CodeInfrastructure, "failed to load availability", err)
	}

	loc := time.UTC
	if wa.TimeZone != "" {
		if l, lerr := time.LoadLocation(wa.TimeZone); lerr == nil {
			loc = l
		}
	}

	rangeSlot, err := models.NewTimeSlot(from, to, wa.TimeZone)
	if err != nil {
		return nil, WrapError(CodeValidation, "invalid date range", err)
	}
	bookings, err := c.Bookings.FindConflicts(ctx, providerID, rangeSlot, "")
	if err != nil {
		return nil, WrapError(CodeInfrastructure, "failed to load existing bookings", err)
	}

	fromLocal := from.In(loc)
	toLocal := to.In(loc)
	blocks, err := c.Providers.ListBlockedWindows(ctx, providerID,
		fromLocal.Format(dateLayout), toLocal.Format(dateLayout))
	if err != nil {
		return nil, WrapError(CodeInfrastructure, "failed to load blocked windows", err)
	}

	var slots []models.AvailableSlot
	day := time.Date(fromLocal.Year(), fromLocal.Month(), fromLocal.Day(), 0, 0, 0, 0, loc)
	for !day.After(toLocal) {
		dateStr := day.Format(dateLayout)
		for _, window := range wa.WindowsFor(day.Weekday()) {
			stepMinutes := int(slotDuration / time.Minute)
			for start := window.Start; start+stepMinutes <= window.End; start += stepMinutes {
				end := start + stepMinutes
				absStart := day.Add(time.Duration(start) * time.Minute)
				absEnd := day.Add(time.Duration(end) * time.Minute)

				// Clip to the requested range.
				if absStart.Before(from) || absEnd.After(to) {
					continue
				}
				if c.slotBlocked(blocks, dateStr, start, end) {
					continue
				}
				if overlapsAny(bookings, absStart, absEnd) {
					continue
				}
				slots = append(slots, models.AvailableSlot{
					ProviderID: providerID,
					Date:       dateStr,
					Start:      absStart.UTC(),
					End:        absEnd.UTC(),
					TimeZone:   wa.TimeZone,
				})
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	c.cacheSet(ctx, providerID, from, to, slotDuration, slots)
	return slots, nil
}

func (c *DefaultAvailabilityCalculator) slotBlocked(blocks []models.BlockedWindow, date string, start, end int) bool {
	for _, bw := range blocks {
		if bw.Blocks(date, start, end) {
			return true
		}
	}
	return false
}

func overlapsAny(bookings []models.Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if b.TimeSlot.Start.Before(end) && b.TimeSlot.End.After(start) {
			return true
		}
	}
	return false
}

// Cached entries embed a per-provider epoch so invalidation is a single
// INCR rather than a key scan.

func (c *DefaultAvailabilityCalculator) epochKey(providerID string) string {
	return "availability:epoch:" + providerID
}

func (c *DefaultAvailabilityCalculator) cacheKey(ctx context.Context, providerID string, from, to time.Time, d time.Duration) string {
	epoch, _ := c.Cache.Get(ctx, c.epochKey(providerID)).Result()
	return fmt.Sprintf("availability:%s:%s:%d:%d:%d",
		providerID, epoch, from.Unix(), to.Unix(), int(d/time.Minute))
}

func (c *DefaultAvailabilityCalculator) cacheGet(ctx context.Context, providerID string, from, to time.Time, d time.Duration) ([]models.AvailableSlot, bool) {
	if c.Cache == nil {
		return nil, false
	}
	raw, err := c.Cache.Get(ctx, c.cacheKey(ctx, providerID, from, to, d)).Result()
	if err != nil {
		return nil, false
	}
	var slots []models.AvailableSlot
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (c *DefaultAvailabilityCalculator) cacheSet(ctx context.Context, providerID string, from, to time.Time, d time.Duration, slots []models.AvailableSlot) {
	if c.Cache == nil {
		return
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.Cache.Set(ctx, c.cacheKey(ctx, providerID, from, to, d), raw, availabilityCacheTTL).Err(); err != nil {
		utils.GetLogger().Warn("availability cache write failed", zap.Error(err))
	}
}

// InvalidateProvider bumps the provider's cache epoch, orphaning any
// cached ranges until their TTL expires.
func (c *DefaultAvailabilityCalculator) InvalidateProvider(ctx context.Context, providerID string) {
	if c.Cache == nil {
		return
	}
	if err := c.Cache.Incr(ctx, c.epochKey(providerID)).Err(); err != nil {
		utils.GetLogger().Warn("availability cache invalidation failed",
			zap.String("provider", providerID), zap.Error(err))
	}
}
