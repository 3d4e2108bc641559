package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gigmarket/internal/outbox"
	outboxrepo "gigmarket/internal/outbox/repository"
	"gigmarket/internal/payment"
	"gigmarket/internal/subscription"
	subrepo "gigmarket/internal/subscription/repository"
	"gigmarket/pkg/db"

	"github.com/google/uuid"
)

var ErrAttemptNotFound = errors.New("payment attempt not found")

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) CreateAttempt(ctx context.Context, a *payment.Attempt) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO payment_attempts (tx_ref, user_id, plan, currency, amount, status, payment_link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		a.TxRef, a.UserID, string(a.Plan), a.Currency, a.Amount, a.Status, a.PaymentLink).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment attempt: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetAttempt(ctx context.Context, txRef string) (*payment.Attempt, error) {
	a := &payment.Attempt{}
	var gatewayTxID sql.NullString
	var verifiedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT tx_ref, user_id, plan, currency, amount, status, payment_link, gateway_tx_id, created_at, verified_at
		 FROM payment_attempts WHERE tx_ref = $1`,
		txRef).Scan(&a.TxRef, &a.UserID, &a.Plan, &a.Currency, &a.Amount, &a.Status, &a.PaymentLink,
		&gatewayTxID, &a.CreatedAt, &verifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get payment attempt: %w", err)
	}
	a.GatewayTxID = gatewayTxID.String
	if verifiedAt.Valid {
		a.VerifiedAt = &verifiedAt.Time
	}
	return a, nil
}

// CompleteAttempt returns ErrAttemptNotFound when initiation never managed to
// record the attempt.
func (r *PaymentRepository) CompleteAttempt(ctx context.Context, txRef, gatewayTxID string, verifiedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_attempts SET status = $1, gateway_tx_id = $2, verified_at = $3 WHERE tx_ref = $4`,
		payment.StatusCompleted, gatewayTxID, verifiedAt, txRef)
	if err != nil {
		return fmt.Errorf("complete payment attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete payment attempt: %w", err)
	}
	if n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// ActivateSubscription writes the subscription and its follow-up outbox
// messages in one transaction.
func (r *PaymentRepository) ActivateSubscription(ctx context.Context, userID uuid.UUID, plan subscription.Plan, expiresAt time.Time, msgs ...outbox.Message) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := subrepo.NewSubscriptionRepository(tx).Activate(ctx, userID, plan, expiresAt); err != nil {
			return err
		}
		return outboxrepo.NewOutboxRepository(tx).Enqueue(ctx, msgs...)
	})
}
