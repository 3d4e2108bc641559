package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gigmarket/internal/logging"
	"gigmarket/internal/notification"
	"gigmarket/internal/outbox"
	outboxservice "gigmarket/internal/outbox/service"
	"gigmarket/internal/payment"
	"gigmarket/internal/payment/repository"
	"gigmarket/internal/subscription"
	"gigmarket/pkg/httpx"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	link      string
	createErr error
	gotReq    payment.PaymentRequest
	tx        *payment.Transaction
	verifyErr error
}

func (g *fakeGateway) CreatePayment(ctx context.Context, req payment.PaymentRequest) (string, error) {
	g.gotReq = req
	return g.link, g.createErr
}

func (g *fakeGateway) VerifyTransaction(ctx context.Context, id string) (*payment.Transaction, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	tx := *g.tx
	return &tx, nil
}

type activation struct {
	userID uuid.UUID
	plan   subscription.Plan
	expiry time.Time
	msgs   []outbox.Message
}

type fakeRepo struct {
	createErr   error
	created     []*payment.Attempt
	completeErr error
	completed   []string
	activateErr error
	activations []activation
}

func (r *fakeRepo) CreateAttempt(ctx context.Context, a *payment.Attempt) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, a)
	return nil
}

func (r *fakeRepo) GetAttempt(ctx context.Context, txRef string) (*payment.Attempt, error) {
	for _, a := range r.created {
		if a.TxRef == txRef {
			return a, nil
		}
	}
	return nil, repository.ErrAttemptNotFound
}

func (r *fakeRepo) CompleteAttempt(ctx context.Context, txRef, gatewayTxID string, verifiedAt time.Time) error {
	if r.completeErr != nil {
		return r.completeErr
	}
	r.completed = append(r.completed, txRef)
	return nil
}

func (r *fakeRepo) ActivateSubscription(ctx context.Context, userID uuid.UUID, plan subscription.Plan, expiresAt time.Time, msgs ...outbox.Message) error {
	if r.activateErr != nil {
		return r.activateErr
	}
	r.activations = append(r.activations, activation{userID, plan, expiresAt, msgs})
	return nil
}

type fakePrices struct {
	price       *subscription.Price
	err         error
	gotUserType string
}

func (p *fakePrices) Price(ctx context.Context, plan subscription.Plan, currency, userType string) (*subscription.Price, error) {
	p.gotUserType = userType
	return p.price, p.err
}

type fakeUsers struct {
	userType string
	err      error
}

func (u fakeUsers) UserType(ctx context.Context, id uuid.UUID) (string, error) {
	return u.userType, u.err
}

type fakeOutboxRepo struct {
	mu         sync.Mutex
	dispatched []uuid.UUID
	failed     map[uuid.UUID]string
}

func (f *fakeOutboxRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]outbox.Message, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string, next time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed == nil {
		f.failed = map[uuid.UUID]string{}
	}
	f.failed[id] = reason
	return nil
}

func (f *fakeOutboxRepo) MarkDead(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	return f.MarkFailed(ctx, id, reason, at)
}

type fixture struct {
	svc      *Service
	gateway  *fakeGateway
	repo     *fakeRepo
	prices   *fakePrices
	outbox   *fakeOutboxRepo
	notifyFn func(ctx context.Context, payload json.RawMessage) error
}

var userID = uuid.MustParse("5f3a9c1e-8b7d-4e2a-9c6f-1a2b3c4d5e6f")

func newFixture(now func() time.Time) *fixture {
	f := &fixture{
		gateway: &fakeGateway{link: "https://checkout.flutterwave.com/pay/abc"},
		repo:    &fakeRepo{},
		prices:  &fakePrices{price: &subscription.Price{Plan: subscription.PlanYearly, Currency: "NGN", Amount: 25000}},
		outbox:  &fakeOutboxRepo{},
	}
	f.notifyFn = func(ctx context.Context, payload json.RawMessage) error { return nil }

	d := outboxservice.NewDispatcher(f.outbox, logging.Discard())
	f.svc = NewService(f.gateway, f.repo, f.prices, fakeUsers{userType: "seeker"}, d, logging.Discard(), "SUB").WithClock(now)
	d.Register(payment.KindAttemptCompleted, f.svc.HandleAttemptCompleted)
	d.Register(notification.KindCreate, func(ctx context.Context, payload json.RawMessage) error {
		return f.notifyFn(ctx, payload)
	})
	return f
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func successfulTx(txRef, plan string) *payment.Transaction {
	return &payment.Transaction{
		ID:            "4851234",
		Status:        "success",
		PaymentStatus: "successful",
		TxRef:         txRef,
		Amount:        25000,
		Currency:      "NGN",
		Meta:          payment.Meta{UserID: userID.String(), Plan: plan},
	}
}

func TestTxRef(t *testing.T) {
	at := time.UnixMilli(1760000000123)
	assert.Equal(t, "SUB_5f3a9c1e_yearly_1760000000123", TxRef("SUB", userID, subscription.PlanYearly, at))
}

func TestInitiate(t *testing.T) {
	now := time.UnixMilli(1760000000123)
	f := newFixture(fixedClock(now))

	res, err := f.svc.Initiate(context.Background(), InitiateInput{
		UserID:        userID,
		Plan:          "yearly",
		Currency:      "ngn",
		CustomerEmail: "ada@example.com",
		CustomerName:  "Ada",
		RedirectURL:   "https://app.example.com/callback",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.flutterwave.com/pay/abc", res.PaymentLink)
	assert.Equal(t, "SUB_5f3a9c1e_yearly_1760000000123", res.TxRef)
	assert.Equal(t, 25000.0, res.Amount)
	assert.Equal(t, "NGN", res.Currency)
	assert.Equal(t, "₦", res.CurrencySymbol)
	assert.Equal(t, "seeker", f.prices.gotUserType)

	assert.Equal(t, userID.String(), f.gateway.gotReq.Meta.UserID)
	assert.Equal(t, "yearly", f.gateway.gotReq.Meta.Plan)
	require.Len(t, f.repo.created, 1)
	assert.Equal(t, payment.StatusPending, f.repo.created[0].Status)
}

func TestInitiate_UnknownPlan(t *testing.T) {
	f := newFixture(time.Now)
	_, err := f.svc.Initiate(context.Background(), InitiateInput{UserID: userID, Plan: "weekly", Currency: "NGN"})
	assert.ErrorIs(t, err, subscription.ErrUnknownPlan)
}

func TestInitiate_PriceNotFound(t *testing.T) {
	f := newFixture(time.Now)
	f.prices.err = subscription.ErrPriceNotFound

	_, err := f.svc.Initiate(context.Background(), InitiateInput{UserID: userID, Plan: "monthly", Currency: "XAF"})
	assert.ErrorIs(t, err, subscription.ErrPriceNotFound)
	assert.Empty(t, f.gateway.gotReq.TxRef)
}

func TestInitiate_GatewayErrorVerbatim(t *testing.T) {
	f := newFixture(time.Now)
	f.gateway.createErr = &httpx.GatewayError{Gateway: "flutterwave", Message: "Invalid redirect url"}

	_, err := f.svc.Initiate(context.Background(), InitiateInput{UserID: userID, Plan: "monthly", Currency: "NGN"})
	require.Error(t, err)
	assert.Equal(t, "Invalid redirect url", err.Error())
	assert.Empty(t, f.repo.created)
}

func TestInitiate_PersistFailureStillReturnsLink(t *testing.T) {
	f := newFixture(time.Now)
	f.repo.createErr = errors.New("connection reset")

	res, err := f.svc.Initiate(context.Background(), InitiateInput{UserID: userID, Plan: "monthly", Currency: "NGN"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.flutterwave.com/pay/abc", res.PaymentLink)
}

func TestInitiate_UserTypeLookupFailureUsesGenericPrice(t *testing.T) {
	f := newFixture(time.Now)
	f.svc.users = fakeUsers{err: errors.New("timeout")}

	_, err := f.svc.Initiate(context.Background(), InitiateInput{UserID: userID, Plan: "monthly", Currency: "NGN"})
	require.NoError(t, err)
	assert.Equal(t, "", f.prices.gotUserType)
}

func TestVerify_YearlyExample(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	f := newFixture(fixedClock(now))
	f.gateway.tx = successfulTx("SUB_5f3a9c1e_yearly_1", "yearly")

	res, err := f.svc.Verify(context.Background(), "4851234", "SUB_5f3a9c1e_yearly_1")
	require.NoError(t, err)

	want := time.Date(2027, 10, 17, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, subscription.PlanYearly, res.Plan)
	assert.True(t, want.Equal(res.Expiry))
	assert.Equal(t, 365*24*time.Hour, res.Expiry.Sub(now))
	assert.Equal(t, 25000.0, res.Amount)
	assert.Equal(t, "NGN", res.Currency)

	require.Len(t, f.repo.activations, 1)
	a := f.repo.activations[0]
	assert.Equal(t, userID, a.userID)
	assert.Equal(t, subscription.PlanYearly, a.plan)
	assert.True(t, want.Equal(a.expiry))
	require.Len(t, a.msgs, 2)
	for _, m := range a.msgs {
		assert.True(t, m.NextAttemptAt.After(now))
	}

	assert.Equal(t, []string{"SUB_5f3a9c1e_yearly_1"}, f.repo.completed)
	assert.Len(t, f.outbox.dispatched, 2)
}

func TestVerify_TwiceIsNotAdditive(t *testing.T) {
	t1 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(90 * time.Second)
	calls := 0
	f := newFixture(func() time.Time {
		calls++
		if calls == 1 {
			return t1
		}
		return t2
	})
	f.gateway.tx = successfulTx("SUB_5f3a9c1e_monthly_1", "monthly")

	first, err := f.svc.Verify(context.Background(), "4851234", "SUB_5f3a9c1e_monthly_1")
	require.NoError(t, err)
	second, err := f.svc.Verify(context.Background(), "4851234", "SUB_5f3a9c1e_monthly_1")
	require.NoError(t, err)

	assert.True(t, t1.AddDate(0, 1, 0).Equal(first.Expiry))
	assert.True(t, t2.AddDate(0, 1, 0).Equal(second.Expiry))
	assert.NotEqual(t, first.Expiry, second.Expiry)
	assert.False(t, second.Expiry.Equal(t1.AddDate(0, 2, 0)))
}

func TestVerify_TxRefMismatch(t *testing.T) {
	f := newFixture(time.Now)
	f.gateway.tx = successfulTx("SUB_other_yearly_1", "yearly")

	_, err := f.svc.Verify(context.Background(), "4851234", "SUB_5f3a9c1e_yearly_1")
	assert.ErrorIs(t, err, payment.ErrTxRefMismatch)
	assert.Empty(t, f.repo.activations)
}

func TestVerify_NotSuccessful(t *testing.T) {
	for _, tc := range []struct {
		name, status, paymentStatus string
	}{
		{"envelope error", "error", "successful"},
		{"payment failed", "success", "failed"},
		{"payment pending", "success", "pending"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(time.Now)
			f.gateway.tx = successfulTx("ref", "monthly")
			f.gateway.tx.Status = tc.status
			f.gateway.tx.PaymentStatus = tc.paymentStatus

			_, err := f.svc.Verify(context.Background(), "1", "ref")
			assert.ErrorIs(t, err, payment.ErrPaymentNotSuccessful)
			assert.Empty(t, f.repo.activations)
		})
	}
}

func TestVerify_UnknownPlan(t *testing.T) {
	f := newFixture(time.Now)
	f.gateway.tx = successfulTx("ref", "lifetime")

	_, err := f.svc.Verify(context.Background(), "1", "ref")
	assert.ErrorIs(t, err, subscription.ErrUnknownPlan)
	assert.Empty(t, f.repo.activations)
}

func TestVerify_MissingMetadata(t *testing.T) {
	f := newFixture(time.Now)
	f.gateway.tx = successfulTx("ref", "monthly")
	f.gateway.tx.Meta.UserID = ""

	_, err := f.svc.Verify(context.Background(), "1", "ref")
	assert.ErrorIs(t, err, payment.ErrMissingMetadata)
}

func TestVerify_MissingFields(t *testing.T) {
	f := newFixture(time.Now)
	_, err := f.svc.Verify(context.Background(), " ", "ref")
	assert.ErrorIs(t, err, payment.ErrMissingFields)
}

func TestVerify_GatewayErrorVerbatim(t *testing.T) {
	f := newFixture(time.Now)
	f.gateway.verifyErr = &httpx.GatewayError{Gateway: "flutterwave", Message: "No transaction was found for this id"}

	_, err := f.svc.Verify(context.Background(), "1", "ref")
	require.Error(t, err)
	assert.Equal(t, "No transaction was found for this id", err.Error())
}

func TestVerify_ActivationFailureFailsRequest(t *testing.T) {
	f := newFixture(time.Now)
	f.gateway.tx = successfulTx("ref", "monthly")
	f.repo.activateErr = errors.New("deadlock detected")

	_, err := f.svc.Verify(context.Background(), "1", "ref")
	assert.ErrorIs(t, err, payment.ErrActivationFailed)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.Empty(t, f.outbox.dispatched)
}

func TestVerify_NotificationFailureStillSucceeds(t *testing.T) {
	f := newFixture(time.Now)
	f.gateway.tx = successfulTx("ref", "semi_annual")
	f.notifyFn = func(ctx context.Context, payload json.RawMessage) error {
		return errors.New("notifications insert failed")
	}

	res, err := f.svc.Verify(context.Background(), "1", "ref")
	require.NoError(t, err)
	assert.Equal(t, subscription.PlanSemiAnnual, res.Plan)

	require.Len(t, f.repo.activations, 1)
	assert.Len(t, f.outbox.dispatched, 1)
	require.Len(t, f.outbox.failed, 1)
	for _, reason := range f.outbox.failed {
		assert.Equal(t, "notifications insert failed", reason)
	}
}

func TestVerify_AttemptCompletionFailureStillSucceeds(t *testing.T) {
	f := newFixture(time.Now)
	f.gateway.tx = successfulTx("ref", "monthly")
	f.repo.completeErr = errors.New("connection refused")

	_, err := f.svc.Verify(context.Background(), "1", "ref")
	require.NoError(t, err)
	assert.Len(t, f.outbox.failed, 1)
}

func TestVerify_NotificationPayload(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	f := newFixture(fixedClock(now))
	f.gateway.tx = successfulTx("ref", "monthly")

	var got notification.Notification
	f.notifyFn = func(ctx context.Context, payload json.RawMessage) error {
		return json.Unmarshal(payload, &got)
	}

	_, err := f.svc.Verify(context.Background(), "1", "ref")
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, notification.TypeSubscription, got.Type)
	assert.True(t, strings.Contains(got.Message, "17 Nov 2026"))
}

func TestHandleAttemptCompleted_MissingAttemptIsDropped(t *testing.T) {
	f := newFixture(time.Now)
	f.repo.completeErr = repository.ErrAttemptNotFound

	payload, _ := json.Marshal(payment.AttemptCompleted{TxRef: "ref", GatewayTxID: "1", VerifiedAt: time.Now()})
	assert.NoError(t, f.svc.HandleAttemptCompleted(context.Background(), payload))
}

func TestHandleAttemptCompleted_BadPayload(t *testing.T) {
	f := newFixture(time.Now)
	assert.Error(t, f.svc.HandleAttemptCompleted(context.Background(), json.RawMessage(`{`)))
}

func TestAttempt_OwnerOnly(t *testing.T) {
	f := newFixture(fixedClock(time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)))
	f.repo.created = []*payment.Attempt{{TxRef: "SUB_a", UserID: userID, Plan: subscription.PlanMonthly, Status: payment.StatusPending}}

	a, err := f.svc.Attempt(context.Background(), userID, "SUB_a")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, a.Status)

	_, err = f.svc.Attempt(context.Background(), uuid.New(), "SUB_a")
	assert.ErrorIs(t, err, repository.ErrAttemptNotFound)

	_, err = f.svc.Attempt(context.Background(), userID, "SUB_missing")
	assert.ErrorIs(t, err, repository.ErrAttemptNotFound)
}
