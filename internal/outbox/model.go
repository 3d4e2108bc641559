package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a side effect recorded in the same transaction as the state
// change that caused it, and applied afterwards with retries.
type Message struct {
	ID            uuid.UUID       `json:"id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	CreatedAt     time.Time       `json:"created_at"`
	DispatchedAt  *time.Time      `json:"dispatched_at,omitempty"`
}

// NewMessage encodes payload. The background dispatcher will not pick the
// message up before notBefore, which leaves room for an inline dispatch.
func NewMessage(kind string, payload any, notBefore time.Time) (Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Message{
		ID:            uuid.New(),
		Kind:          kind,
		Payload:       b,
		NextAttemptAt: notBefore,
	}, nil
}
