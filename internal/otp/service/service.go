package service

import (
	"context"
	"time"

	"gigmarket/internal/logging"
	"gigmarket/internal/otp"
)

type VerificationRepository interface {
	Upsert(ctx context.Context, v *otp.Verification) error
	Get(ctx context.Context, phone string) (*otp.Verification, error)
	MarkVerified(ctx context.Context, phone string, at time.Time) (int, error)
}

// Service runs the send/verify flow. Concurrent sends for one phone are not
// serialized; the last upsert wins.
type Service struct {
	repo     VerificationRepository
	strategy Strategy
	log      logging.Logger
	now      func() time.Time
}

func NewService(repo VerificationRepository, strategy Strategy, log logging.Logger) *Service {
	return &Service{
		repo:     repo,
		strategy: strategy,
		log:      log.With("component", "otp"),
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Send issues a new code and overwrites any earlier one for the phone.
func (s *Service) Send(ctx context.Context, rawPhone string) error {
	phone, err := otp.NormalizePhone(rawPhone)
	if err != nil {
		return err
	}

	v, err := s.strategy.Issue(ctx, phone)
	if err != nil {
		return err
	}
	v.ExpiresAt = s.now().Add(otp.CodeTTL)

	if err := s.repo.Upsert(ctx, &v); err != nil {
		return err
	}
	s.log.Info(ctx, "verification code sent", "phone", mask(phone))
	return nil
}

// Verify checks expiry before comparing the code, so an expired record fails
// even with the right code.
func (s *Service) Verify(ctx context.Context, rawPhone, code string) error {
	phone, err := otp.NormalizePhone(rawPhone)
	if err != nil {
		return err
	}

	v, err := s.repo.Get(ctx, phone)
	if err != nil {
		return err
	}

	now := s.now()
	switch v.State(now) {
	case otp.StateVerified:
		return otp.ErrNoPendingCode
	case otp.StateExpired:
		return otp.ErrCodeExpired
	}

	if err := s.strategy.Check(ctx, v, code); err != nil {
		return err
	}

	users, err := s.repo.MarkVerified(ctx, phone, now)
	if err != nil {
		return err
	}
	if users == 0 {
		s.log.Warn(ctx, "verified phone matches no user", "phone", mask(phone))
	}
	s.log.Info(ctx, "phone verified", "phone", mask(phone), "users", users)
	return nil
}

func mask(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[:len(phone)-4] + "****"
}
