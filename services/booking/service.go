package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "bookify/database/repository/booking"
	customerRepo "bookify/database/repository/customer"
	providerRepo "bookify/database/repository/provider"
	"bookify/models"
	"bookify/services/events"
	"bookify/services/payment"

	"go.uber.org/zap"
)

// DefaultBookingService implements BookingService. It is the
// transactional boundary: any failure before the repository write leaves
// no persisted side effect.
type DefaultBookingService struct {
	Repo         bookingRepo.Repository
	Providers    providerRepo.Repository
	Customers    customerRepo.Repository
	Availability AvailabilityCalculator
	Conflicts    ConflictDetector
	Payments     *payment.Orchestrator
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger

	// Clock is overridable in tests; defaults to time.Now.
	Clock func() time.Time
}

func (svc *DefaultBookingService) now() time.Time {
	if svc.Clock != nil {
		return svc.Clock()
	}
	return time.Now()
}

// CreateBooking validates inputs, builds the value objects, constructs
// the aggregate in INITIATED, moves it to PENDING_PROVIDER and persists
// it with the conflict check in the same transaction.
func (svc *DefaultBookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	customer, err := svc.Customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customerRepo.ErrNotFound) {
			return nil, NewError(CodeNotFound, "customer not found")
		}
		return nil, WrapError(CodeInfrastructure, "customer lookup failed", err)
	}
	provider, err := svc.Providers.GetByID(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, providerRepo.ErrNotFound) {
			return nil, NewError(CodeNotFound, "provider not found")
		}
		return nil, WrapError(CodeInfrastructure, "provider lookup failed", err)
	}
	if !provider.Active {
		return nil, NewError(CodeValidation, "provider is not accepting bookings")
	}

	price, err := models.NewMoney(req.PriceMinorUnits, req.Currency)
	if err != nil {
		return nil, WrapError(CodeValidation, "invalid price", err)
	}
	svcDetails, err := models.NewServiceDetails(req.ServiceID, req.ServiceName, req.ServiceDescription, price, req.DurationMinutes, req.ServiceCategory)
	if err != nil {
		return nil, WrapError(CodeValidation, "invalid service details", err)
	}
	slot, err := models.NewTimeSlot(req.StartTime, req.EndTime, req.TimeZone)
	if err != nil {
		return nil, WrapError(CodeValidation, "invalid time slot", err)
	}
	if !slot.IsFuture(svc.now()) {
		return nil, NewError(CodeValidation, "time slot must start in the future")
	}

	fees, err := CalculateFees(price, customer.Guest)
	if err != nil {
		return nil, WrapError(CodeValidation, "fee calculation failed", err)
	}

	b, err := models.NewBooking(req.CustomerID, req.ProviderID, svcDetails, slot, fees, req.CustomerNotes, svc.now())
	if err != nil {
		return nil, WrapError(CodeValidation, "invalid booking", err)
	}
	if err := b.RequestProviderApproval(svc.now()); err != nil {
		return nil, WrapError(CodeTransition, "could not request provider approval", err)
	}
	if err := b.Validate(); err != nil {
		return nil, WrapError(CodeValidation, "booking invariants violated", err)
	}

	if err := svc.Repo.SaveWithConflictCheck(ctx, b); err != nil {
		var conflict *bookingRepo.ConflictDetectedError
		if errors.As(err, &conflict) {
			svc.dispatchConflictDetected(ctx, b, conflict.ConflictingIDs)
			return nil, ConflictError(conflict.ConflictingIDs)
		}
		if errors.Is(err, bookingRepo.ErrDuplicateConfirmationCode) {
			// Astronomically rare; the caller can simply retry.
			return nil, WrapError(CodeConcurrency, "confirmation code collision", err)
		}
		return nil, WrapError(CodeInfrastructure, "failed to persist booking", err)
	}

	svc.afterWrite(ctx, b)
	return b, nil
}

// AcceptBooking transitions PENDING_PROVIDER -> ACCEPTED after verifying
// the acting provider owns the booking. ACCEPTED occupies the calendar,
// so the overlap check runs in the same transaction as the write.
func (svc *DefaultBookingService) AcceptBooking(ctx context.Context, bookingID, providerID, notes string) (*models.Booking, error) {
	b, err := svc.getOwnedByProvider(ctx, bookingID, providerID)
	if err != nil {
		return nil, err
	}
	expected := b.Version
	if err := b.AcceptByProvider(notes, svc.now()); err != nil {
		return nil, transitionError(err)
	}
	if err := svc.Repo.UpdateWithConflictCheck(ctx, b, expected); err != nil {
		var conflict *bookingRepo.ConflictDetectedError
		if errors.As(err, &conflict) {
			svc.dispatchConflictDetected(ctx, b, conflict.ConflictingIDs)
			return nil, ConflictError(conflict.ConflictingIDs)
		}
		return nil, svc.writeError(err)
	}
	svc.afterWrite(ctx, b)
	return b, nil
}

// RejectBooking transitions PENDING_PROVIDER -> REJECTED.
func (svc *DefaultBookingService) RejectBooking(ctx context.Context, bookingID, providerID, reason string) (*models.Booking, error) {
	b, err := svc.getOwnedByProvider(ctx, bookingID, providerID)
	if err != nil {
		return nil, err
	}
	expected := b.Version
	if err := b.RejectByProvider(reason, svc.now()); err != nil {
		return nil, transitionError(err)
	}
	if err := svc.Repo.Update(ctx, b, expected); err != nil {
		return nil, svc.writeError(err)
	}
	svc.afterWrite(ctx, b)
	return b, nil
}

// CancelBooking verifies the acting party is the customer or the
// provider on the booking (or the system), cancels, and issues a refund
// when the cancellation is refund-eligible.
func (svc *DefaultBookingService) CancelBooking(ctx context.Context, bookingID, actorID, reason string) (*models.Booking, error) {
	b, err := svc.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var party models.CancelParty
	switch actorID {
	case b.CustomerID:
		party = models.CancelledByCustomer
	case b.ProviderID:
		party = models.CancelledByProvider
	case string(models.CancelledBySystem):
		party = models.CancelledBySystem
	default:
		return nil, NewError(CodeAuthorization, "actor is not a party to this booking")
	}

	now := svc.now()
	refundable := b.ShouldRefund(now)
	expected := b.Version
	if err := b.Cancel(reason, party, now); err != nil {
		if errors.Is(err, models.ErrNotCancellable) {
			return nil, WrapError(CodeTransition, "booking cannot be cancelled in its current status", err)
		}
		return nil, transitionError(err)
	}
	if err := svc.Repo.Update(ctx, b, expected); err != nil {
		return nil, svc.writeError(err)
	}

	if refundable && svc.Payments != nil {
		// The booking is already cancelled; a refund failure is logged
		// and retried out of band rather than un-cancelling.
		if _, rerr := svc.Payments.RefundWithIdempotency(ctx, b, nil, reason); rerr != nil {
			svc.Logger.Error("refund failed after cancellation",
				zap.String("booking", b.ID), zap.Error(rerr))
		}
	}

	svc.afterWrite(ctx, b)
	return b, nil
}

// CompleteBooking transitions PAYMENT_SUCCEEDED -> COMPLETED.
func (svc *DefaultBookingService) CompleteBooking(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	b, err := svc.getOwnedByProvider(ctx, bookingID, providerID)
	if err != nil {
		return nil, err
	}
	expected := b.Version
	if err := b.Complete(svc.now()); err != nil {
		return nil, transitionError(err)
	}
	if err := svc.Repo.Update(ctx, b, expected); err != nil {
		return nil, svc.writeError(err)
	}
	svc.afterWrite(ctx, b)
	return b, nil
}

// MarkNoShow resolves a paid booking the customer skipped.
func (svc *DefaultBookingService) MarkNoShow(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	b, err := svc.getOwnedByProvider(ctx, bookingID, providerID)
	if err != nil {
		return nil, err
	}
	if !b.TimeSlot.HasEnded(svc.now()) {
		return nil, NewError(CodeValidation, "cannot mark no-show before the slot ends")
	}
	expected := b.Version
	if err := b.MarkNoShow(svc.now()); err != nil {
		return nil, transitionError(err)
	}
	if err := svc.Repo.Update(ctx, b, expected); err != nil {
		return nil, svc.writeError(err)
	}
	svc.afterWrite(ctx, b)
	return b, nil
}

// ProcessPayment transitions ACCEPTED -> PAYMENT_PENDING (or retries from
// PAYMENT_FAILED), creating the gateway payment intent idempotently.
func (svc *DefaultBookingService) ProcessPayment(ctx context.Context, bookingID string) (*models.Booking, *payment.PaymentIntent, error) {
	b, err := svc.getBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if !b.Status.RequiresPayment() && b.Status != models.StatusPaymentFailed {
		return nil, nil, NewError(CodeTransition,
			fmt.Sprintf("booking in status %s is not awaiting payment", b.Status))
	}

	provider, err := svc.Providers.GetByID(ctx, b.ProviderID)
	if err != nil {
		return nil, nil, WrapError(CodeInfrastructure, "provider lookup failed", err)
	}

	intent, err := svc.Payments.CreatePaymentIntentWithIdempotency(ctx, b, provider.PayoutAccountID)
	if err != nil {
		return nil, nil, WrapError(CodePayment, "payment intent creation failed", err)
	}

	expected := b.Version
	if b.Status == models.StatusPaymentFailed {
		err = b.RetryPayment(intent.ID, svc.now())
	} else {
		err = b.InitiatePayment(intent.ID, svc.now())
	}
	if err != nil {
		return nil, nil, transitionError(err)
	}
	if err := svc.Repo.Update(ctx, b, expected); err != nil {
		return nil, nil, svc.writeError(err)
	}
	svc.afterWrite(ctx, b)
	return b, intent, nil
}

// ConfirmPayment transitions PAYMENT_PENDING -> PAYMENT_SUCCEEDED.
func (svc *DefaultBookingService) ConfirmPayment(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := svc.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	expected := b.Version
	if err := b.ConfirmPayment(svc.now()); err != nil {
		return nil, transitionError(err)
	}
	if err := svc.Repo.Update(ctx, b, expected); err != nil {
		return nil, svc.writeError(err)
	}
	svc.afterWrite(ctx, b)
	return b, nil
}

// HandlePaymentFailure transitions PAYMENT_PENDING -> PAYMENT_FAILED. A
// gateway failure never aborts the booking; it stays retryable.
func (svc *DefaultBookingService) HandlePaymentFailure(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := svc.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	expected := b.Version
	if err := b.HandlePaymentFailure(svc.now()); err != nil {
		return nil, transitionError(err)
	}
	if err := svc.Repo.Update(ctx, b, expected); err != nil {
		return nil, svc.writeError(err)
	}
	svc.afterWrite(ctx, b)
	return b, nil
}

func (svc *DefaultBookingService) conflicts() ConflictDetector {
	if svc.Conflicts != nil {
		return svc.Conflicts
	}
	return &DefaultConflictDetector{Repo: svc.Repo}
}

// CheckAvailability is the read-only conflict probe.
func (svc *DefaultBookingService) CheckAvailability(ctx context.Context, providerID string, start, end time.Time) (bool, []models.Booking, error) {
	slot, err := models.NewTimeSlot(start, end, "")
	if err != nil {
		return false, nil, WrapError(CodeValidation, "invalid time range", err)
	}
	conflicts, err := svc.conflicts().FindConflicts(ctx, providerID, slot, "")
	if err != nil {
		return false, nil, WrapError(CodeInfrastructure, "conflict query failed", err)
	}
	return len(conflicts) == 0, conflicts, nil
}

// GetBooking fetches by internal id.
func (svc *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return svc.getBooking(ctx, bookingID)
}

// GetBookingByConfirmationCode fetches by the customer-facing code.
func (svc *DefaultBookingService) GetBookingByConfirmationCode(ctx context.Context, code string) (*models.Booking, error) {
	b, err := svc.Repo.FindByConfirmationCode(ctx, code)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, NewError(CodeNotFound, "booking not found")
		}
		return nil, WrapError(CodeInfrastructure, "booking lookup failed", err)
	}
	return b, nil
}

// ListCustomerBookings lists a customer's bookings.
func (svc *DefaultBookingService) ListCustomerBookings(ctx context.Context, customerID string, opts models.ListOptions) ([]models.Booking, error) {
	out, err := svc.Repo.FindByCustomerID(ctx, customerID, opts)
	if err != nil {
		return nil, WrapError(CodeInfrastructure, "booking list failed", err)
	}
	return out, nil
}

// ListProviderBookings lists a provider's bookings.
func (svc *DefaultBookingService) ListProviderBookings(ctx context.Context, providerID string, opts models.ListOptions) ([]models.Booking, error) {
	out, err := svc.Repo.FindByProviderID(ctx, providerID, opts)
	if err != nil {
		return nil, WrapError(CodeInfrastructure, "booking list failed", err)
	}
	return out, nil
}

// SweepUnpaidBookings cancels ACCEPTED bookings older than the grace
// period. Advisory: it flows through the same Cancel path as any caller.
func (svc *DefaultBookingService) SweepUnpaidBookings(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := svc.now().Add(-grace)
	stale, err := svc.Repo.FindUnpaidBookings(ctx, cutoff)
	if err != nil {
		return 0, WrapError(CodeInfrastructure, "unpaid booking query failed", err)
	}
	swept := 0
	for i := range stale {
		b := stale[i]
		if _, err := svc.CancelBooking(ctx, b.ID, string(models.CancelledBySystem), "payment not initiated within grace period"); err != nil {
			// A concurrent transition is fine; the sweep catches up next run.
			svc.Logger.Warn("unpaid sweep skipped booking",
				zap.String("booking", b.ID), zap.Error(err))
			continue
		}
		swept++
	}
	return swept, nil
}

// SweepPastDue resolves elapsed bookings: paid ones complete, the rest
// are cancelled by the system. Explicit no-show resolution stays with the
// provider via MarkNoShow.
func (svc *DefaultBookingService) SweepPastDue(ctx context.Context) (int, error) {
	pastDue, err := svc.Repo.FindPastDue(ctx, svc.now(), models.ListOptions{Limit: 100})
	if err != nil {
		return 0, WrapError(CodeInfrastructure, "past-due query failed", err)
	}
	resolved := 0
	for i := range pastDue {
		b := pastDue[i]
		expected := b.Version
		var terr error
		if b.Status == models.StatusPaymentSucceeded {
			terr = b.Complete(svc.now())
		} else {
			terr = b.Cancel("slot elapsed without completion", models.CancelledBySystem, svc.now())
		}
		if terr != nil {
			svc.Logger.Warn("past-due sweep skipped booking",
				zap.String("booking", b.ID), zap.Error(terr))
			continue
		}
		if err := svc.Repo.Update(ctx, &b, expected); err != nil {
			svc.Logger.Warn("past-due sweep write failed",
				zap.String("booking", b.ID), zap.Error(err))
			continue
		}
		svc.afterWrite(ctx, &b)
		resolved++
	}
	return resolved, nil
}

// SendReminders emits booking.reminder for active bookings starting
// within the horizon.
func (svc *DefaultBookingService) SendReminders(ctx context.Context, horizon time.Duration, reminderType string) (int, error) {
	now := svc.now()
	upcoming, err := svc.Repo.FindUpcoming(ctx, "", now, models.ListOptions{Limit: 100, SortBy: models.SortByStartTime})
	if err != nil {
		return 0, WrapError(CodeInfrastructure, "upcoming booking query failed", err)
	}
	sent := 0
	deadline := now.Add(horizon)
	for _, b := range upcoming {
		if b.TimeSlot.Start.After(deadline) {
			break
		}
		ev := models.BookingReminder{ReminderType: reminderType}
		ev.BookingID = b.ID
		ev.Version = b.Version
		ev.At = now.UTC()
		if err := svc.Dispatcher.Dispatch(ctx, models.NewEnvelope(ev)); err != nil {
			svc.Logger.Warn("reminder dispatch failed",
				zap.String("booking", b.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// --- helpers ---

func (svc *DefaultBookingService) getBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := svc.Repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, NewError(CodeNotFound, "booking not found")
		}
		return nil, WrapError(CodeInfrastructure, "booking lookup failed", err)
	}
	return b, nil
}

func (svc *DefaultBookingService) getOwnedByProvider(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	b, err := svc.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ProviderID != providerID {
		return nil, NewError(CodeAuthorization, "booking belongs to a different provider")
	}
	return b, nil
}

func (svc *DefaultBookingService) writeError(err error) error {
	switch {
	case errors.Is(err, bookingRepo.ErrVersionConflict):
		return WrapError(CodeConcurrency, "booking was modified concurrently, re-fetch and retry", err)
	case errors.Is(err, bookingRepo.ErrNotFound):
		return NewError(CodeNotFound, "booking not found")
	default:
		return WrapError(CodeInfrastructure, "failed to persist booking", err)
	}
}

func transitionError(err error) error {
	var te *models.TransitionError
	if errors.As(err, &te) {
		return WrapError(CodeTransition, te.Error(), err)
	}
	return WrapError(CodeValidation, "invalid booking mutation", err)
}

// afterWrite publishes drained events and drops cached availability for
// the provider's calendar.
func (svc *DefaultBookingService) afterWrite(ctx context.Context, b *models.Booking) {
	if svc.Availability != nil {
		svc.Availability.InvalidateProvider(ctx, b.ProviderID)
	}
	if svc.Dispatcher != nil {
		events.DispatchAll(ctx, svc.Dispatcher, b.DrainEvents())
	}
}

func (svc *DefaultBookingService) dispatchConflictDetected(ctx context.Context, b *models.Booking, conflictingIDs []string) {
	if svc.Dispatcher == nil {
		return
	}
	ev := models.BookingConflictDetected{
		ProviderID:            b.ProviderID,
		ConflictingBookingIDs: conflictingIDs,
	}
	ev.BookingID = b.ID
	ev.Version = b.Version
	ev.At = svc.now().UTC()
	if err := svc.Dispatcher.Dispatch(ctx, models.NewEnvelope(ev)); err != nil {
		svc.Logger.Warn("conflict event dispatch failed", zap.Error(err))
	}
}
