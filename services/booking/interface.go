package booking

import (
	"context"
	"time"

	"bookify/models"
	"bookify/services/payment"
)

// CreateBookingRequest carries the raw inputs for booking creation; the
// service builds the validated value objects from it.
type CreateBookingRequest struct {
	CustomerID         string `json:"customerId" binding:"required"`
	ProviderID         string `json:"providerId" binding:"required"`
	ServiceID          string `json:"serviceId" binding:"required"`
	ServiceName        string `json:"serviceName" binding:"required"`
	ServiceDescription string `json:"serviceDescription"`
	ServiceCategory    string `json:"serviceCategory"`
	PriceMinorUnits    int64  `json:"priceMinorUnits" binding:"required"`
	Currency           string `json:"currency" binding:"required"`
	DurationMinutes    int    `json:"durationMinutes" binding:"required"`

	StartTime     time.Time `json:"startTime" binding:"required"`
	EndTime       time.Time `json:"endTime" binding:"required"`
	TimeZone      string    `json:"timeZone"`
	CustomerNotes string    `json:"customerNotes"`
}

// BookingService orchestrates the booking lifecycle: aggregate creation
// and transitions, conflict checks, persistence and event publication.
// Every method returns a typed *Error on failure.
type BookingService interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error)
	AcceptBooking(ctx context.Context, bookingID, providerID, notes string) (*models.Booking, error)
	RejectBooking(ctx context.Context, bookingID, providerID, reason string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, actorID, reason string) (*models.Booking, error)
	CompleteBooking(ctx context.Context, bookingID, providerID string) (*models.Booking, error)
	MarkNoShow(ctx context.Context, bookingID, providerID string) (*models.Booking, error)

	ProcessPayment(ctx context.Context, bookingID string) (*models.Booking, *payment.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, bookingID string) (*models.Booking, error)
	HandlePaymentFailure(ctx context.Context, bookingID string) (*models.Booking, error)

	// CheckAvailability is the read-only probe callers use before
	// attempting creation; it never replaces the transactional check.
	CheckAvailability(ctx context.Context, providerID string, start, end time.Time) (bool, []models.Booking, error)

	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	GetBookingByConfirmationCode(ctx context.Context, code string) (*models.Booking, error)
	ListCustomerBookings(ctx context.Context, customerID string, opts models.ListOptions) ([]models.Booking, error)
	ListProviderBookings(ctx context.Context, providerID string, opts models.ListOptions) ([]models.Booking, error)

	// SweepUnpaidBookings cancels ACCEPTED bookings stale past the grace
	// period; returns the number swept.
	SweepUnpaidBookings(ctx context.Context, grace time.Duration) (int, error)
	// SweepPastDue resolves bookings whose slot elapsed: paid ones are
	// completed, unpaid ones are cancelled by the system.
	SweepPastDue(ctx context.Context) (int, error)
	// SendReminders emits booking.reminder events for active bookings
	// starting within the given horizon.
	SendReminders(ctx context.Context, horizon time.Duration, reminderType string) (int, error)
}
