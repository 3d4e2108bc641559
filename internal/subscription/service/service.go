package service

import (
	"context"
	"strings"
	"time"

	"gigmarket/internal/subscription"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	GetPrice(ctx context.Context, plan subscription.Plan, currency, userType string) (*subscription.Price, error)
	ListPrices(ctx context.Context, currency string) ([]subscription.Price, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
}

type Service struct {
	repo SubscriptionRepository
	now  func() time.Time
}

func NewService(repo SubscriptionRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Price(ctx context.Context, plan subscription.Plan, currency, userType string) (*subscription.Price, error) {
	return s.repo.GetPrice(ctx, plan, strings.ToUpper(currency), userType)
}

func (s *Service) Prices(ctx context.Context, currency string) ([]subscription.Price, error) {
	return s.repo.ListPrices(ctx, strings.ToUpper(currency))
}

// Status returns the caller's countdown, downgraded to expired once the
// expiry has passed even if the row still says active.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (subscription.Countdown, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return subscription.Countdown{}, err
	}
	return sub.Countdown(s.now()), nil
}
