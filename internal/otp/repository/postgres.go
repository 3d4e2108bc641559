package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gigmarket/internal/otp"
	"gigmarket/pkg/db"
)

type VerificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Upsert replaces any previous record for the phone and resets it to
// unverified.
func (r *VerificationRepository) Upsert(ctx context.Context, v *otp.Verification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO phone_verifications (phone, code_hash, pin_id, expires_at, verified, verified_at, created_at)
		 VALUES ($1, $2, $3, $4, FALSE, NULL, NOW())
		 ON CONFLICT (phone) DO UPDATE SET
		     code_hash = EXCLUDED.code_hash,
		     pin_id = EXCLUDED.pin_id,
		     expires_at = EXCLUDED.expires_at,
		     verified = FALSE,
		     verified_at = NULL,
		     created_at = NOW()`,
		v.Phone, v.CodeHash, v.PinID, v.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert verification: %w", err)
	}
	return nil
}

func (r *VerificationRepository) Get(ctx context.Context, phone string) (*otp.Verification, error) {
	v := &otp.Verification{}
	var verifiedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT phone, code_hash, pin_id, expires_at, verified, verified_at, created_at
		 FROM phone_verifications WHERE phone = $1`,
		phone).Scan(&v.Phone, &v.CodeHash, &v.PinID, &v.ExpiresAt, &v.Verified, &verifiedAt, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, otp.ErrNoPendingCode
		}
		return nil, fmt.Errorf("get verification: %w", err)
	}
	if verifiedAt.Valid {
		v.VerifiedAt = &verifiedAt.Time
	}
	return v, nil
}

// MarkVerified flags the phone as verified, clears the stored secret and
// marks every user whose stored phone normalizes to the same number. It
// returns how many users were marked.
func (r *VerificationRepository) MarkVerified(ctx context.Context, phone string, at time.Time) (int, error) {
	marked := 0
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE phone_verifications SET verified = TRUE, verified_at = $1, code_hash = '', pin_id = ''
			 WHERE phone = $2`,
			at, phone)
		if err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}

		ids, err := usersWithPhone(ctx, tx, phone)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `UPDATE users SET phone_verified = TRUE WHERE id = $1`, id); err != nil {
				return fmt.Errorf("mark user phone verified: %w", err)
			}
		}
		marked = len(ids)
		return nil
	})
	return marked, err
}

// usersWithPhone narrows candidates by the last ten digits in SQL and then
// applies otp.NormalizePhone, so "08031234567" and "+234 803 123 4567"
// both match "2348031234567".
func usersWithPhone(ctx context.Context, tx *sql.Tx, phone string) ([]string, error) {
	tail := phone
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, phone FROM users
		 WHERE phone <> '' AND right(regexp_replace(phone, '\D', '', 'g'), 10) = $1`,
		tail)
	if err != nil {
		return nil, fmt.Errorf("find users by phone: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, stored string
		if err := rows.Scan(&id, &stored); err != nil {
			return nil, fmt.Errorf("scan user phone: %w", err)
		}
		if normalized, err := otp.NormalizePhone(stored); err == nil && normalized == phone {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}
