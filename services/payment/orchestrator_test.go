package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	idempotencyRepo "bookify/database/repository/idempotency"
	"bookify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedGateway returns the queued outcomes in order, then succeeds.
type scriptedGateway struct {
	intentCalls int
	getCalls    int
	refundCalls int
	errs        []error
}

func (g *scriptedGateway) next() error {
	if len(g.errs) == 0 {
		return nil
	}
	err := g.errs[0]
	g.errs = g.errs[1:]
	return err
}

func (g *scriptedGateway) CreatePaymentIntent(_ context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	g.intentCalls++
	if err := g.next(); err != nil {
		return nil, err
	}
	return &PaymentIntent{ID: fmt.Sprintf("pi_%d", g.intentCalls), Status: "requires_confirmation"}, nil
}

func (g *scriptedGateway) GetPaymentIntent(_ context.Context, id string) (*PaymentIntent, error) {
	g.getCalls++
	return &PaymentIntent{ID: id, Status: "requires_confirmation"}, nil
}

func (g *scriptedGateway) CreateRefund(_ context.Context, req RefundRequest) (*Refund, error) {
	g.refundCalls++
	if err := g.next(); err != nil {
		return nil, err
	}
	return &Refund{ID: fmt.Sprintf("re_%d", g.refundCalls), Status: "succeeded"}, nil
}

func (g *scriptedGateway) CreateTransfer(_ context.Context, req TransferRequest) (*Transfer, error) {
	return &Transfer{ID: "tr_1"}, nil
}

func newTestOrchestrator(gateway Gateway) (*Orchestrator, *idempotencyRepo.MemoryLedger) {
	ledger := idempotencyRepo.NewMemoryLedger()
	o := NewOrchestrator(gateway, ledger, zap.NewNop())
	o.Backoff = func(int) time.Duration { return 0 }
	return o, ledger
}

func testPaidBooking() *models.Booking {
	return &models.Booking{
		ID:               "bk-1",
		ConfirmationCode: "ABCD1234",
		TotalAmount:      models.Money{Amount: 10000, Currency: "USD"},
		PlatformFee:      models.Money{Amount: 1000, Currency: "USD"},
		ProviderPayout:   models.Money{Amount: 9000, Currency: "USD"},
		PaymentIntentID:  "pi_1",
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	amount := models.Money{Amount: 10000, Currency: "USD"}

	k1 := DeriveKey(OpPaymentIntent, "bk-1", amount, "acct_1")
	k2 := DeriveKey(OpPaymentIntent, "bk-1", amount, "acct_1")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64) // sha256 hex

	assert.NotEqual(t, k1, DeriveKey(OpRefund, "bk-1", amount, "acct_1"))
	assert.NotEqual(t, k1, DeriveKey(OpPaymentIntent, "bk-2", amount, "acct_1"))
	assert.NotEqual(t, k1, DeriveKey(OpPaymentIntent, "bk-1", models.Money{Amount: 10001, Currency: "USD"}, "acct_1"))
}

func TestCreatePaymentIntentOnce(t *testing.T) {
	gateway := &scriptedGateway{}
	o, ledger := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	intent, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, 1, gateway.intentCalls)

	rec, err := ledger.Get(ctx, DeriveKey(OpPaymentIntent, b.ID, b.TotalAmount, "acct_1"))
	require.NoError(t, err)
	assert.Equal(t, idempotencyRepo.StatusCompleted, rec.Status)
	assert.Equal(t, "pi_1", rec.ResourceID)
	assert.Equal(t, 1, rec.Attempts)
}

func TestRepeatInvocationSkipsGateway(t *testing.T) {
	gateway := &scriptedGateway{}
	o, _ := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	first, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.NoError(t, err)

	second, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	// The second invocation fetched the stored resource instead of
	// creating a new one.
	assert.Equal(t, 1, gateway.intentCalls)
	assert.Equal(t, 1, gateway.getCalls)
}

func TestTransientFailureRetries(t *testing.T) {
	gateway := &scriptedGateway{errs: []error{
		&GatewayError{Code: "api_error", Transient: true},
		&GatewayError{Code: "api_error", Transient: true},
	}}
	o, ledger := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	intent, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, 3, gateway.intentCalls)
	assert.Equal(t, "pi_3", intent.ID)

	rec, err := ledger.Get(ctx, DeriveKey(OpPaymentIntent, b.ID, b.TotalAmount, "acct_1"))
	require.NoError(t, err)
	assert.Equal(t, idempotencyRepo.StatusCompleted, rec.Status)
	assert.Equal(t, 3, rec.Attempts)
}

func TestRetriesExhausted(t *testing.T) {
	transient := &GatewayError{Code: "api_error", Transient: true}
	gateway := &scriptedGateway{errs: []error{transient, transient, transient}}
	o, ledger := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	_, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.Error(t, err)
	assert.Equal(t, 3, gateway.intentCalls)

	rec, err := ledger.Get(ctx, DeriveKey(OpPaymentIntent, b.ID, b.TotalAmount, "acct_1"))
	require.NoError(t, err)
	assert.Equal(t, idempotencyRepo.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.LastError)
}

func TestNonTransientFailureDoesNotRetry(t *testing.T) {
	gateway := &scriptedGateway{errs: []error{
		&GatewayError{Code: "card_declined"},
	}}
	o, ledger := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	_, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.Error(t, err)
	assert.Equal(t, 1, gateway.intentCalls)

	rec, err := ledger.Get(ctx, DeriveKey(OpPaymentIntent, b.ID, b.TotalAmount, "acct_1"))
	require.NoError(t, err)
	assert.Equal(t, idempotencyRepo.StatusFailed, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
}

func TestFailedRecordPermitsFreshAttempt(t *testing.T) {
	gateway := &scriptedGateway{errs: []error{
		&GatewayError{Code: "card_declined"},
	}}
	o, _ := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	_, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.Error(t, err)

	intent, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_2", intent.ID)
	assert.Equal(t, 2, gateway.intentCalls)
}

func TestPendingRecordBlocksConcurrentCaller(t *testing.T) {
	gateway := &scriptedGateway{}
	o, ledger := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	key := DeriveKey(OpPaymentIntent, b.ID, b.TotalAmount, "acct_1")
	require.NoError(t, ledger.Reserve(ctx, &idempotencyRepo.Record{
		Key:    key,
		Status: idempotencyRepo.StatusPending,
	}))

	_, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	assert.ErrorIs(t, err, ErrOperationInFlight)
	assert.Zero(t, gateway.intentCalls)
}

func TestIdempotencyConflictRecoversResource(t *testing.T) {
	gateway := &scriptedGateway{errs: []error{
		&GatewayError{Code: "idempotency_error", IdempotencyConflict: true},
	}}
	o, ledger := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()
	key := DeriveKey(OpPaymentIntent, b.ID, b.TotalAmount, "acct_1")

	// A previous run resolved the ledger but this process lost the
	// response; the gateway reports the key as spent.
	require.NoError(t, ledger.Reserve(ctx, &idempotencyRepo.Record{Key: key, Status: idempotencyRepo.StatusFailed}))
	require.NoError(t, ledger.Resolve(ctx, key, idempotencyRepo.StatusFailed, "pi_prior", "boom", 1))

	intent, err := o.CreatePaymentIntentWithIdempotency(ctx, b, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_prior", intent.ID)
	assert.Equal(t, 1, gateway.intentCalls)
	assert.Equal(t, 1, gateway.getCalls)

	rec, err := ledger.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, idempotencyRepo.StatusCompleted, rec.Status)
}

func TestRefundWithIdempotency(t *testing.T) {
	gateway := &scriptedGateway{}
	o, _ := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	refund, err := o.RefundWithIdempotency(ctx, b, nil, "requested_by_customer")
	require.NoError(t, err)
	assert.Equal(t, "re_1", refund.ID)

	again, err := o.RefundWithIdempotency(ctx, b, nil, "requested_by_customer")
	require.NoError(t, err)
	assert.Equal(t, refund.ID, again.ID)
	assert.Equal(t, 1, gateway.refundCalls)
}

func TestPartialRefundUsesDistinctKey(t *testing.T) {
	gateway := &scriptedGateway{}
	o, _ := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	full, err := o.RefundWithIdempotency(ctx, b, nil, "full")
	require.NoError(t, err)

	half := models.Money{Amount: 5000, Currency: "USD"}
	partial, err := o.RefundWithIdempotency(ctx, b, &half, "partial")
	require.NoError(t, err)
	assert.NotEqual(t, full.ID, partial.ID)
	assert.Equal(t, 2, gateway.refundCalls)
}

func TestTransferWithIdempotency(t *testing.T) {
	gateway := &scriptedGateway{}
	o, ledger := newTestOrchestrator(gateway)
	ctx := context.Background()
	b := testPaidBooking()

	transfer, err := o.TransferWithIdempotency(ctx, b, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, "tr_1", transfer.ID)

	rec, err := ledger.Get(ctx, DeriveKey(OpTransfer, b.ID, b.ProviderPayout, "acct_1"))
	require.NoError(t, err)
	assert.Equal(t, idempotencyRepo.StatusCompleted, rec.Status)
}

func TestBackoffDefaults(t *testing.T) {
	o := NewOrchestrator(&scriptedGateway{}, idempotencyRepo.NewMemoryLedger(), zap.NewNop())
	assert.Equal(t, time.Second, o.Backoff(1))
	assert.Equal(t, 2*time.Second, o.Backoff(2))
	assert.Equal(t, 4*time.Second, o.Backoff(3))
}
