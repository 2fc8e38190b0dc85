package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFees(t *testing.T) FeeBreakdown {
	t.Helper()
	return FeeBreakdown{
		TotalAmount:    Money{Amount: 10000, Currency: "USD"},
		PlatformFee:    Money{Amount: 1000, Currency: "USD"},
		ProviderPayout: Money{Amount: 9000, Currency: "USD"},
	}
}

func testBooking(t *testing.T, now time.Time) *Booking {
	t.Helper()
	price := Money{Amount: 10000, Currency: "USD"}
	svc, err := NewServiceDetails("svc-1", "Deep Clean", "Full apartment clean", price, 120, "cleaning")
	require.NoError(t, err)
	slot, err := NewTimeSlot(now.Add(24*time.Hour), now.Add(26*time.Hour), "UTC")
	require.NoError(t, err)
	b, err := NewBooking("cust-1", "prov-1", svc, slot, testFees(t), "ring the bell", now)
	require.NoError(t, err)
	return b
}

func TestNewBookingInitialState(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := testBooking(t, now)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusInitiated, b.Status)
	assert.Equal(t, int64(1), b.Version)
	assert.Len(t, b.ConfirmationCode, ConfirmationCodeLength)
	assert.Equal(t, now, b.CreatedAt)
	require.NoError(t, b.Validate())

	evs := b.PendingEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "booking.created", evs[0].EventName())
	assert.Equal(t, b.ID, evs[0].AggregateID())
}

func TestNewBookingValidation(t *testing.T) {
	now := time.Now().UTC()
	price := Money{Amount: 10000, Currency: "USD"}
	svc, err := NewServiceDetails("svc-1", "Deep Clean", "", price, 120, "cleaning")
	require.NoError(t, err)
	slot, err := NewTimeSlot(now.Add(time.Hour), now.Add(2*time.Hour), "UTC")
	require.NoError(t, err)

	_, err = NewBooking("", "prov-1", svc, slot, testFees(t), "", now)
	assert.ErrorIs(t, err, ErrCustomerIDRequired)

	_, err = NewBooking("cust-1", "", svc, slot, testFees(t), "", now)
	assert.ErrorIs(t, err, ErrProviderIDRequired)

	_, err = NewBooking("same", "same", svc, slot, testFees(t), "", now)
	assert.ErrorIs(t, err, ErrSelfBooking)

	badFees := testFees(t)
	badFees.PlatformFee.Amount++ // breaks the split
	_, err = NewBooking("cust-1", "prov-1", svc, slot, badFees, "", now)
	assert.ErrorIs(t, err, ErrFeeSplitInvalid)
}

func TestBookingHappyPath(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := testBooking(t, now)

	require.NoError(t, b.RequestProviderApproval(now))
	assert.Equal(t, StatusPendingProvider, b.Status)
	assert.Equal(t, int64(2), b.Version)

	require.NoError(t, b.AcceptByProvider("bring supplies", now))
	assert.Equal(t, StatusAccepted, b.Status)
	assert.Equal(t, "bring supplies", b.ProviderNotes)

	require.NoError(t, b.InitiatePayment("pi_123", now))
	assert.Equal(t, StatusPaymentPending, b.Status)
	assert.Equal(t, "pi_123", b.PaymentIntentID)

	require.NoError(t, b.ConfirmPayment(now))
	assert.Equal(t, StatusPaymentSucceeded, b.Status)

	require.NoError(t, b.Complete(now))
	assert.Equal(t, StatusCompleted, b.Status)
	assert.Equal(t, int64(6), b.Version)

	names := make([]string, 0)
	for _, ev := range b.DrainEvents() {
		names = append(names, ev.EventName())
	}
	assert.Equal(t, []string{
		"booking.created",
		"booking.confirmed",
		"booking.payment.processed",
		"booking.completed",
	}, names)
	assert.Empty(t, b.PendingEvents())
}

func TestPaymentFailureAndRetry(t *testing.T) {
	now := time.Now().UTC()
	b := testBooking(t, now)
	require.NoError(t, b.RequestProviderApproval(now))
	require.NoError(t, b.AcceptByProvider("", now))
	require.NoError(t, b.InitiatePayment("pi_1", now))

	require.NoError(t, b.HandlePaymentFailure(now))
	assert.Equal(t, StatusPaymentFailed, b.Status)

	require.NoError(t, b.RetryPayment("pi_2", now))
	assert.Equal(t, StatusPaymentPending, b.Status)
	assert.Equal(t, "pi_2", b.PaymentIntentID)
}

func TestConfirmPaymentRequiresReference(t *testing.T) {
	now := time.Now().UTC()
	b := testBooking(t, now)
	require.NoError(t, b.RequestProviderApproval(now))
	require.NoError(t, b.AcceptByProvider("", now))

	// Force PAYMENT_PENDING without a reference to prove the guard.
	b.Status = StatusPaymentPending
	err := b.ConfirmPayment(now)
	assert.ErrorIs(t, err, ErrPaymentRefMissing)
}

func TestRejectRequiresReason(t *testing.T) {
	now := time.Now().UTC()
	b := testBooking(t, now)
	require.NoError(t, b.RequestProviderApproval(now))

	assert.ErrorIs(t, b.RejectByProvider("", now), ErrCancelReasonMissing)

	require.NoError(t, b.RejectByProvider("fully booked", now))
	assert.Equal(t, StatusRejected, b.Status)
	assert.Equal(t, CancelledByProvider, b.CancelledBy)
	assert.Equal(t, "fully booked", b.CancellationReason)
}

func TestCancelRefundEligibility(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("paid future slot refunds in full", func(t *testing.T) {
		b := testBooking(t, now)
		require.NoError(t, b.RequestProviderApproval(now))
		require.NoError(t, b.AcceptByProvider("", now))
		require.NoError(t, b.InitiatePayment("pi_1", now))
		require.NoError(t, b.ConfirmPayment(now))

		assert.True(t, b.ShouldRefund(now))
		require.NoError(t, b.Cancel("plans changed", CancelledByCustomer, now))

		evs := b.DrainEvents()
		cancelled, ok := evs[len(evs)-1].(BookingCancelled)
		require.True(t, ok)
		require.NotNil(t, cancelled.RefundAmount)
		assert.Equal(t, b.TotalAmount, *cancelled.RefundAmount)
	})

	t.Run("unpaid booking cancels without refund", func(t *testing.T) {
		b := testBooking(t, now)
		require.NoError(t, b.RequestProviderApproval(now))

		assert.False(t, b.ShouldRefund(now))
		require.NoError(t, b.Cancel("changed my mind", CancelledByCustomer, now))

		evs := b.DrainEvents()
		cancelled, ok := evs[len(evs)-1].(BookingCancelled)
		require.True(t, ok)
		assert.Nil(t, cancelled.RefundAmount)
	})

	t.Run("paid but started slot is not refundable", func(t *testing.T) {
		b := testBooking(t, now)
		require.NoError(t, b.RequestProviderApproval(now))
		require.NoError(t, b.AcceptByProvider("", now))
		require.NoError(t, b.InitiatePayment("pi_1", now))
		require.NoError(t, b.ConfirmPayment(now))

		afterStart := b.TimeSlot.Start.Add(time.Minute)
		assert.False(t, b.ShouldRefund(afterStart))
	})
}

func TestCancelGuards(t *testing.T) {
	now := time.Now().UTC()
	b := testBooking(t, now)

	assert.ErrorIs(t, b.Cancel("", CancelledByCustomer, now), ErrCancelReasonMissing)
	assert.ErrorIs(t, b.Cancel("reason", CancelParty("stranger"), now), ErrInvalidCancelParty)

	require.NoError(t, b.RequestProviderApproval(now))
	require.NoError(t, b.AcceptByProvider("", now))
	require.NoError(t, b.InitiatePayment("pi_1", now))
	require.NoError(t, b.ConfirmPayment(now))
	require.NoError(t, b.Complete(now))

	assert.False(t, b.CanBeCancelled())
	assert.ErrorIs(t, b.Cancel("too late", CancelledByCustomer, now), ErrNotCancellable)
	assert.Equal(t, StatusCompleted, b.Status)
}

func TestMarkNoShow(t *testing.T) {
	now := time.Now().UTC()
	b := testBooking(t, now)
	require.NoError(t, b.RequestProviderApproval(now))
	require.NoError(t, b.AcceptByProvider("", now))
	require.NoError(t, b.InitiatePayment("pi_1", now))
	require.NoError(t, b.ConfirmPayment(now))

	require.NoError(t, b.MarkNoShow(now))
	assert.Equal(t, StatusNoShow, b.Status)
	assert.True(t, b.Status.IsTerminal())
}

func TestIllegalTransitionLeavesAggregateUntouched(t *testing.T) {
	now := time.Now().UTC()
	b := testBooking(t, now)
	version := b.Version

	err := b.Complete(now) // INITIATED -> COMPLETED is illegal
	require.Error(t, err)
	assert.Equal(t, StatusInitiated, b.Status)
	assert.Equal(t, version, b.Version)
}

func TestUpcomingAndPastDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := testBooking(t, now)
	require.NoError(t, b.RequestProviderApproval(now))
	require.NoError(t, b.AcceptByProvider("", now))

	assert.True(t, b.IsUpcoming(now))
	assert.False(t, b.IsPastDue(now))

	afterEnd := b.TimeSlot.End.Add(time.Minute)
	assert.False(t, b.IsUpcoming(afterEnd))
	assert.True(t, b.IsPastDue(afterEnd))

	require.NoError(t, b.Cancel("no payment", CancelledBySystem, now))
	assert.False(t, b.IsPastDue(afterEnd))
}

func TestGenerateConfirmationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateConfirmationCode()
		require.NoError(t, err)
		require.Len(t, code, ConfirmationCodeLength)
		for _, r := range code {
			assert.True(t, (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected character %q", r)
		}
		seen[code] = true
	}
	// 36^8 code space; 1000 draws colliding would indicate broken randomness.
	assert.Greater(t, len(seen), 990)
}
