package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"gigmarket/internal/logging"
	"gigmarket/internal/otp"
	"gigmarket/internal/user"
	userservice "gigmarket/internal/user/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedStore backs both the verification records and the users table, and
// matches stored user phones the way the Postgres repository does.
type sharedStore struct {
	*memRepo
	users map[uuid.UUID]*user.User
}

func (s *sharedStore) MarkVerified(ctx context.Context, phone string, at time.Time) (int, error) {
	if _, err := s.memRepo.MarkVerified(ctx, phone, at); err != nil {
		return 0, err
	}
	marked := 0
	for _, u := range s.users {
		if normalized, err := otp.NormalizePhone(u.Phone); err == nil && normalized == phone {
			u.PhoneVerified = true
			marked++
		}
	}
	return marked, nil
}

func (s *sharedStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *sharedStore) UpdateOnboardingStep(ctx context.Context, id uuid.UUID, step string) error {
	s.users[id].OnboardingStep = step
	return nil
}

func TestVerifiedPhoneUnlocksOnboarding(t *testing.T) {
	id := uuid.New()
	store := &sharedStore{
		memRepo: newMemRepo(),
		users: map[uuid.UUID]*user.User{
			id: {ID: id, Phone: "08031234567", UserType: user.TypeProvider, OnboardingStep: user.StepPhone},
		},
	}
	termii := &fakeTermii{}
	strategy := NewCodeStrategy(termii)
	strategy.generate = func() (string, error) { return "246810", nil }
	otpSvc := NewService(store, strategy, logging.Discard())
	users := userservice.NewUserService(store)
	ctx := context.Background()

	_, err := users.AdvanceOnboarding(ctx, id, user.StepServices)
	require.ErrorIs(t, err, user.ErrPhoneNotVerified)

	require.NoError(t, otpSvc.Send(ctx, "0803 123 4567"))
	require.NoError(t, otpSvc.Verify(ctx, "0803 123 4567", "246810"))

	step, err := users.AdvanceOnboarding(ctx, id, user.StepServices)
	require.NoError(t, err)
	assert.Equal(t, user.StepServices, step)
	assert.True(t, store.users[id].PhoneVerified)
}

func TestVerify_WarnsWhenNoUserHasThePhone(t *testing.T) {
	var buf bytes.Buffer
	store := &sharedStore{memRepo: newMemRepo(), users: map[uuid.UUID]*user.User{}}
	strategy := NewCodeStrategy(&fakeTermii{})
	strategy.generate = func() (string, error) { return "135790", nil }
	svc := NewService(store, strategy, logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "08031234567"))
	require.NoError(t, svc.Verify(ctx, "08031234567", "135790"))

	assert.Contains(t, buf.String(), "verified phone matches no user")
	assert.True(t, store.records["2348031234567"].Verified)
}
