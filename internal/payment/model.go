package payment

import (
	"encoding/json"
	"errors"
	"time"

	"gigmarket/internal/subscription"

	"github.com/google/uuid"
)

// KindAttemptCompleted is the outbox kind that marks an attempt completed.
const KindAttemptCompleted = "payment.attempt_completed"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

var (
	ErrMissingFields        = errors.New("transaction_id and tx_ref are required")
	ErrPaymentNotSuccessful = errors.New("payment was not successful")
	ErrTxRefMismatch        = errors.New("transaction reference mismatch")
	ErrMissingMetadata      = errors.New("payment metadata is missing user or plan")
	ErrActivationFailed     = errors.New("failed to activate subscription")
)

// Attempt is one hosted-checkout payment started by a user.
type Attempt struct {
	TxRef       string            `json:"tx_ref"`
	UserID      uuid.UUID         `json:"user_id"`
	Plan        subscription.Plan `json:"plan"`
	Currency    string            `json:"currency"`
	Amount      float64           `json:"amount"`
	Status      string            `json:"status"`
	PaymentLink string            `json:"payment_link"`
	GatewayTxID string            `json:"gateway_tx_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	VerifiedAt  *time.Time        `json:"verified_at,omitempty"`
}

// AttemptCompleted is the outbox payload for KindAttemptCompleted.
type AttemptCompleted struct {
	TxRef       string    `json:"tx_ref"`
	GatewayTxID string    `json:"gateway_tx_id"`
	VerifiedAt  time.Time `json:"verified_at"`
}

type Customer struct {
	Email string
	Name  string
	Phone string
}

// PaymentRequest asks the gateway for a hosted payment page.
type PaymentRequest struct {
	TxRef       string
	Amount      float64
	Currency    string
	RedirectURL string
	Customer    Customer
	Title       string
	Description string
	Meta        Meta
}

// Meta is set at initiation and echoed back by the gateway on verification.
type Meta struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

// UnmarshalJSON accepts both the object form and the legacy
// [{"metaname": ..., "metavalue": ...}] array form.
func (m *Meta) UnmarshalJSON(b []byte) error {
	var obj map[string]interface{}
	if err := json.Unmarshal(b, &obj); err == nil {
		m.UserID, _ = obj["user_id"].(string)
		m.Plan, _ = obj["plan"].(string)
		return nil
	}

	var pairs []struct {
		Name  string      `json:"metaname"`
		Value interface{} `json:"metavalue"`
	}
	if err := json.Unmarshal(b, &pairs); err != nil {
		return err
	}
	for _, p := range pairs {
		v, _ := p.Value.(string)
		switch p.Name {
		case "user_id":
			m.UserID = v
		case "plan":
			m.Plan = v
		}
	}
	return nil
}

// Transaction is the gateway's own view of a payment.
type Transaction struct {
	ID            string
	Status        string // envelope status, "success"
	PaymentStatus string // "successful", "failed", "pending"
	TxRef         string
	Amount        float64
	Currency      string
	Meta          Meta
}
