package service

import (
	"context"
	"time"

	"gigmarket/internal/subscription"
	"gigmarket/internal/user"

	"github.com/google/uuid"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdateOnboardingStep(ctx context.Context, id uuid.UUID, step string) error
}

type UserService struct {
	repo UserRepository
	now  func() time.Time
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

// WithClock replaces the time source.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

type Profile struct {
	*user.User
	Countdown subscription.Countdown `json:"countdown"`
	NextStep  string                 `json:"next_step,omitempty"`
}

func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:      u,
		Countdown: u.Subscription.Countdown(s.now()),
		NextStep:  user.NextStep(u.UserType, u.OnboardingStep),
	}, nil
}

// AdvanceOnboarding moves the user to step, which must be the current step
// or the one right after it. Leaving the phone step needs a verified phone.
func (s *UserService) AdvanceOnboarding(ctx context.Context, id uuid.UUID, step string) (string, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if step == u.OnboardingStep {
		return step, nil
	}
	if step != user.NextStep(u.UserType, u.OnboardingStep) {
		return "", user.ErrInvalidStep
	}
	if u.OnboardingStep == user.StepPhone && !u.PhoneVerified {
		return "", user.ErrPhoneNotVerified
	}

	if err := s.repo.UpdateOnboardingStep(ctx, id, step); err != nil {
		return "", err
	}
	return step, nil
}
