package service

import (
	"context"
	"testing"
	"time"

	"gigmarket/internal/subscription"
	"gigmarket/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	u       *user.User
	updated []string
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if f.u == nil {
		return nil, user.ErrNotFound
	}
	cp := *f.u
	return &cp, nil
}

func (f *fakeRepo) UpdateOnboardingStep(ctx context.Context, id uuid.UUID, step string) error {
	f.updated = append(f.updated, step)
	f.u.OnboardingStep = step
	return nil
}

func TestProfile(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	exp := now.Add(3*24*time.Hour + 5*time.Hour)
	repo := &fakeRepo{u: &user.User{
		ID:             uuid.New(),
		UserType:       user.TypeProvider,
		OnboardingStep: user.StepServices,
		Subscription: subscription.Subscription{
			Plan: subscription.PlanMonthly, Status: subscription.StatusActive, ExpiresAt: &exp, CanAccessContact: true,
		},
	}}

	p, err := NewUserService(repo).WithClock(func() time.Time { return now }).Profile(context.Background(), repo.u.ID)
	require.NoError(t, err)
	assert.True(t, p.Countdown.Active)
	assert.Equal(t, 3, p.Countdown.DaysLeft)
	assert.Equal(t, 5, p.Countdown.HoursLeft)
	assert.Equal(t, user.StepLocation, p.NextStep)
}

func TestProfile_NotFound(t *testing.T) {
	_, err := NewUserService(&fakeRepo{}).Profile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestAdvanceOnboarding_InOrder(t *testing.T) {
	repo := &fakeRepo{u: &user.User{UserType: user.TypeProvider, OnboardingStep: user.StepProfile, PhoneVerified: true}}
	svc := NewUserService(repo)
	ctx := context.Background()

	for _, step := range []string{user.StepPhone, user.StepServices, user.StepLocation, user.StepComplete} {
		got, err := svc.AdvanceOnboarding(ctx, uuid.New(), step)
		require.NoError(t, err, step)
		assert.Equal(t, step, got)
	}
	assert.Equal(t, []string{"phone", "services", "location", "complete"}, repo.updated)
}

func TestAdvanceOnboarding_RejectsSkippedStep(t *testing.T) {
	repo := &fakeRepo{u: &user.User{UserType: user.TypeProvider, OnboardingStep: user.StepProfile}}

	_, err := NewUserService(repo).AdvanceOnboarding(context.Background(), uuid.New(), user.StepLocation)
	assert.ErrorIs(t, err, user.ErrInvalidStep)
	assert.Empty(t, repo.updated)
}

func TestAdvanceOnboarding_SameStepIsIdempotent(t *testing.T) {
	repo := &fakeRepo{u: &user.User{UserType: user.TypeSeeker, OnboardingStep: user.StepPhone}}

	got, err := NewUserService(repo).AdvanceOnboarding(context.Background(), uuid.New(), user.StepPhone)
	require.NoError(t, err)
	assert.Equal(t, user.StepPhone, got)
	assert.Empty(t, repo.updated)
}

func TestAdvanceOnboarding_SeekerHasNoServicesStep(t *testing.T) {
	repo := &fakeRepo{u: &user.User{UserType: user.TypeSeeker, OnboardingStep: user.StepPhone, PhoneVerified: true}}

	_, err := NewUserService(repo).AdvanceOnboarding(context.Background(), uuid.New(), user.StepServices)
	assert.ErrorIs(t, err, user.ErrInvalidStep)

	got, err := NewUserService(repo).AdvanceOnboarding(context.Background(), uuid.New(), user.StepComplete)
	require.NoError(t, err)
	assert.Equal(t, user.StepComplete, got)
}

func TestAdvanceOnboarding_PhoneMustBeVerified(t *testing.T) {
	repo := &fakeRepo{u: &user.User{UserType: user.TypeProvider, OnboardingStep: user.StepPhone}}

	_, err := NewUserService(repo).AdvanceOnboarding(context.Background(), uuid.New(), user.StepServices)
	assert.ErrorIs(t, err, user.ErrPhoneNotVerified)
}
