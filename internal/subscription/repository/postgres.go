package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gigmarket/internal/subscription"
	"gigmarket/pkg/db"

	"github.com/google/uuid"
)

type SubscriptionRepository struct {
	db db.DBTX
}

// NewSubscriptionRepository accepts a *sql.DB or a *sql.Tx.
func NewSubscriptionRepository(db db.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetPrice prefers a price specific to the user type and falls back to the
// generic row (empty user_type).
func (r *SubscriptionRepository) GetPrice(ctx context.Context, plan subscription.Plan, currency, userType string) (*subscription.Price, error) {
	p := &subscription.Price{}
	err := r.db.QueryRowContext(ctx,
		`SELECT plan, currency, user_type, amount FROM subscription_prices
		 WHERE plan = $1 AND currency = $2 AND user_type IN ($3, '')
		 ORDER BY user_type DESC LIMIT 1`,
		string(plan), currency, userType).Scan(&p.Plan, &p.Currency, &p.UserType, &p.Amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscription.ErrPriceNotFound
		}
		return nil, fmt.Errorf("get price: %w", err)
	}
	return p, nil
}

func (r *SubscriptionRepository) ListPrices(ctx context.Context, currency string) ([]subscription.Price, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT plan, currency, user_type, amount FROM subscription_prices
		 WHERE currency = $1 ORDER BY amount`,
		currency)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer rows.Close()

	var prices []subscription.Price
	for rows.Next() {
		var p subscription.Price
		if err := rows.Scan(&p.Plan, &p.Currency, &p.UserType, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	sub := &subscription.Subscription{}
	var expiry sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT subscription_plan, subscription_status, subscription_expiry, can_access_contact
		 FROM users WHERE id = $1`,
		userID).Scan(&sub.Plan, &sub.Status, &expiry, &sub.CanAccessContact)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscription.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if expiry.Valid {
		sub.ExpiresAt = &expiry.Time
	}
	return sub, nil
}

// Activate overwrites the user's subscription fields.
func (r *SubscriptionRepository) Activate(ctx context.Context, userID uuid.UUID, plan subscription.Plan, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET subscription_plan = $1, subscription_status = 'active',
		 subscription_expiry = $2, can_access_contact = TRUE
		 WHERE id = $3`,
		string(plan), expiresAt, userID)
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	if n == 0 {
		return subscription.ErrNotFound
	}
	return nil
}
