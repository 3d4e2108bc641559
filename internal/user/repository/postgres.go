package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gigmarket/internal/user"

	"github.com/google/uuid"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u := &user.User{}
	var expiry sql.NullTime
	query := `SELECT id, email, full_name, phone, user_type, subscription_plan, subscription_status,
	                 subscription_expiry, can_access_contact, onboarding_step, phone_verified, created_at
	          FROM users WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Phone,
		&u.UserType,
		&u.Subscription.Plan,
		&u.Subscription.Status,
		&expiry,
		&u.Subscription.CanAccessContact,
		&u.OnboardingStep,
		&u.PhoneVerified,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if expiry.Valid {
		u.Subscription.ExpiresAt = &expiry.Time
	}

	return u, nil
}

// UserType is used for price lookups.
func (r *PostgresUserRepository) UserType(ctx context.Context, id uuid.UUID) (string, error) {
	var t string
	err := r.db.QueryRowContext(ctx, `SELECT user_type FROM users WHERE id = $1`, id).Scan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", user.ErrNotFound
		}
		return "", fmt.Errorf("get user type: %w", err)
	}
	return t, nil
}

func (r *PostgresUserRepository) UpdateOnboardingStep(ctx context.Context, id uuid.UUID, step string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET onboarding_step = $1 WHERE id = $2`, step, id)
	if err != nil {
		return fmt.Errorf("update onboarding step: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update onboarding step: %w", err)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}
