package booking

import (
	"context"
	"testing"
	"time"

	bookingRepo "bookify/database/repository/booking"
	providerRepo "bookify/database/repository/provider"
	"bookify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-10 is a Tuesday.
var tuesday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func newCalculator(t *testing.T) (*DefaultAvailabilityCalculator, *providerRepo.MemoryProviderRepo, *bookingRepo.MemoryBookingRepo) {
	t.Helper()
	provs := providerRepo.NewMemoryProviderRepo()
	bookings := bookingRepo.NewMemoryBookingRepo()
	calc := &DefaultAvailabilityCalculator{Providers: provs, Bookings: bookings}
	return calc, provs, bookings
}

func seedWeekly(t *testing.T, provs *providerRepo.MemoryProviderRepo, windows map[time.Weekday][]models.AvailabilityWindow) {
	t.Helper()
	require.NoError(t, provs.SetWeeklyAvailability(context.Background(), &models.WeeklyAvailability{
		ProviderID: "prov-1",
		TimeZone:   "UTC",
		Windows:    windows,
	}))
}

func seedAcceptedBooking(t *testing.T, bookings *bookingRepo.MemoryBookingRepo, start, end time.Time) *models.Booking {
	t.Helper()
	price := models.Money{Amount: 10000, Currency: "USD"}
	svc, err := models.NewServiceDetails("svc-1", "Deep Clean", "", price, 60, "cleaning")
	require.NoError(t, err)
	slot, err := models.NewTimeSlot(start, end, "UTC")
	require.NoError(t, err)
	fees := models.FeeBreakdown{
		TotalAmount:    price,
		PlatformFee:    models.Money{Amount: 1000, Currency: "USD"},
		ProviderPayout: models.Money{Amount: 9000, Currency: "USD"},
	}
	created := start.Add(-48 * time.Hour)
	b, err := models.NewBooking("cust-1", "prov-1", svc, slot, fees, "", created)
	require.NoError(t, err)
	require.NoError(t, b.RequestProviderApproval(created))
	require.NoError(t, b.AcceptByProvider("", created))
	require.NoError(t, bookings.Save(context.Background(), b))
	return b
}

func TestCalculateAvailableSlots(t *testing.T) {
	calc, provs, _ := newCalculator(t)
	seedWeekly(t, provs, map[time.Weekday][]models.AvailabilityWindow{
		time.Tuesday: {{Start: 540, End: 720}}, // 9:00-12:00
	})

	slots, err := calc.CalculateAvailableSlots(context.Background(), "prov-1",
		tuesday, tuesday.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, tuesday.Add(9*time.Hour), slots[0].Start)
	assert.Equal(t, tuesday.Add(10*time.Hour), slots[0].End)
	assert.Equal(t, "2026-03-10", slots[0].Date)
	assert.Equal(t, tuesday.Add(11*time.Hour), slots[2].Start)
}

func TestAvailabilityExcludesBookedSlots(t *testing.T) {
	calc, provs, bookings := newCalculator(t)
	seedWeekly(t, provs, map[time.Weekday][]models.AvailabilityWindow{
		time.Tuesday: {{Start: 540, End: 720}},
	})
	seedAcceptedBooking(t, bookings, tuesday.Add(10*time.Hour), tuesday.Add(11*time.Hour))

	slots, err := calc.CalculateAvailableSlots(context.Background(), "prov-1",
		tuesday, tuesday.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, tuesday.Add(9*time.Hour), slots[0].Start)
	assert.Equal(t, tuesday.Add(11*time.Hour), slots[1].Start)
}

func TestAvailabilityExcludesBlockedWindows(t *testing.T) {
	calc, provs, _ := newCalculator(t)
	seedWeekly(t, provs, map[time.Weekday][]models.AvailabilityWindow{
		time.Tuesday: {{Start: 540, End: 720}},
	})
	require.NoError(t, provs.AddBlockedWindow(context.Background(), &models.BlockedWindow{
		BlockID:    "blk-1",
		ProviderID: "prov-1",
		Date:       "2026-03-10",
		Start:      660, // 11:00
		End:        720,
	}))

	slots, err := calc.CalculateAvailableSlots(context.Background(), "prov-1",
		tuesday, tuesday.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	for _, s := range slots {
		assert.True(t, s.End.Before(tuesday.Add(11*time.Hour)) || s.End.Equal(tuesday.Add(11*time.Hour)))
	}
}

func TestAvailabilityFullDayBlock(t *testing.T) {
	calc, provs, _ := newCalculator(t)
	seedWeekly(t, provs, map[time.Weekday][]models.AvailabilityWindow{
		time.Tuesday: {{Start: 540, End: 720}},
	})
	require.NoError(t, provs.AddBlockedWindow(context.Background(), &models.BlockedWindow{
		BlockID:    "blk-1",
		ProviderID: "prov-1",
		Date:       "2026-03-10",
		FullDay:    true,
	}))

	slots, err := calc.CalculateAvailableSlots(context.Background(), "prov-1",
		tuesday, tuesday.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailabilityEmptyWeekday(t *testing.T) {
	calc, provs, _ := newCalculator(t)
	seedWeekly(t, provs, map[time.Weekday][]models.AvailabilityWindow{
		time.Wednesday: {{Start: 540, End: 720}},
	})

	// Tuesday only; the provider works Wednesdays.
	slots, err := calc.CalculateAvailableSlots(context.Background(), "prov-1",
		tuesday, tuesday.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailabilityNoConfiguration(t *testing.T) {
	calc, _, _ := newCalculator(t)

	slots, err := calc.CalculateAvailableSlots(context.Background(), "prov-unknown",
		tuesday, tuesday.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailabilityValidatesInput(t *testing.T) {
	calc, _, _ := newCalculator(t)

	_, err := calc.CalculateAvailableSlots(context.Background(), "prov-1",
		tuesday, tuesday.AddDate(0, 0, 1), 5*time.Minute)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = calc.CalculateAvailableSlots(context.Background(), "prov-1",
		tuesday.AddDate(0, 0, 1), tuesday, time.Hour)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestAvailabilitySlotMustFitWindow(t *testing.T) {
	calc, provs, _ := newCalculator(t)
	seedWeekly(t, provs, map[time.Weekday][]models.AvailabilityWindow{
		time.Tuesday: {{Start: 540, End: 630}}, // 9:00-10:30
	})

	slots, err := calc.CalculateAvailableSlots(context.Background(), "prov-1",
		tuesday, tuesday.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, err)
	// Only 9:00-10:00 fits; 10:00-11:00 would spill past the window.
	require.Len(t, slots, 1)
	assert.Equal(t, tuesday.Add(9*time.Hour), slots[0].Start)
}
