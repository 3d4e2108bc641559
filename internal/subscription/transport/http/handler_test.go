package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gigmarket/internal/subscription"
	"gigmarket/internal/subscription/service"
	"gigmarket/pkg/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	prices   []subscription.Price
	currency string
	sub      *subscription.Subscription
	err      error
}

func (s *stubRepo) GetPrice(ctx context.Context, plan subscription.Plan, currency, userType string) (*subscription.Price, error) {
	return nil, subscription.ErrPriceNotFound
}

func (s *stubRepo) ListPrices(ctx context.Context, currency string) ([]subscription.Price, error) {
	s.currency = currency
	return s.prices, s.err
}

func (s *stubRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	if s.sub == nil {
		return nil, subscription.ErrNotFound
	}
	return s.sub, nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPrices_DefaultsToNaira(t *testing.T) {
	repo := &stubRepo{prices: []subscription.Price{{Plan: subscription.PlanMonthly, Currency: "NGN", Amount: 5000}}}
	h := NewSubscriptionHandler(service.NewService(repo))

	rec := httptest.NewRecorder()
	h.Prices(rec, httptest.NewRequest(http.MethodGet, "/api/subscription/prices", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NGN", repo.currency)
	body := decode(t, rec)
	assert.Equal(t, subscription.CurrencySymbol("NGN"), body["currency_symbol"])
	assert.Len(t, body["prices"], 1)
}

func TestPrices_RepositoryError(t *testing.T) {
	h := NewSubscriptionHandler(service.NewService(&stubRepo{err: errors.New("db down")}))

	rec := httptest.NewRecorder()
	h.Prices(rec, httptest.NewRequest(http.MethodGet, "/api/subscription/prices?currency=usd", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to load prices", decode(t, rec)["error"])
}

func TestStatus(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(48*time.Hour + 3*time.Hour)
	repo := &stubRepo{sub: &subscription.Subscription{Plan: subscription.PlanMonthly, Status: subscription.StatusActive, ExpiresAt: &expiry}}
	h := NewSubscriptionHandler(service.NewService(repo).WithClock(func() time.Time { return now }))

	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/api/subscription/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, r.WithContext(middleware.WithUserID(r.Context(), id)))

	require.Equal(t, http.StatusOK, rec.Code)
	sub := decode(t, rec)["subscription"].(map[string]interface{})
	assert.Equal(t, true, sub["active"])
	assert.Equal(t, float64(2), sub["days_left"])
	assert.Equal(t, float64(3), sub["hours_left"])
}

func TestStatus_UnknownUser(t *testing.T) {
	h := NewSubscriptionHandler(service.NewService(&stubRepo{}))

	r := httptest.NewRequest(http.MethodGet, "/api/subscription/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, r.WithContext(middleware.WithUserID(r.Context(), uuid.New())))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus_Unauthorized(t *testing.T) {
	h := NewSubscriptionHandler(service.NewService(&stubRepo{}))

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/subscription/status", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
