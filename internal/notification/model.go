package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// KindCreate is the outbox kind that inserts a notification.
const KindCreate = "notification.create"

const (
	TypeSubscription = "subscription"
	TypePayment      = "payment"
	TypeSystem       = "system"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
