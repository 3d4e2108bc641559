package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gigmarket/internal/logging"
	"gigmarket/internal/metrics"
	"gigmarket/internal/outbox"

	"github.com/google/uuid"
)

const (
	baseBackoff = 30 * time.Second
	maxBackoff  = time.Hour
	claimLease  = 2 * time.Minute
	batchSize   = 50
)

// MaxAttempts is how many failures a message gets before it is parked as
// dead. With the backoff above that is roughly half a day of retries.
const MaxAttempts = 16

type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

type OutboxRepository interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]outbox.Message, error)
	MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, next time.Time) error
	MarkDead(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}

type Dispatcher struct {
	repo     OutboxRepository
	log      logging.Logger
	now      func() time.Time
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewDispatcher(repo OutboxRepository, log logging.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		log:      log.With("component", "outbox"),
		now:      time.Now,
		handlers: make(map[string]HandlerFunc),
	}
}

func (d *Dispatcher) Register(kind string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Backoff doubles from 30s per attempt, capped at one hour.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= 7 {
		return maxBackoff
	}
	d := baseBackoff << attempts
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Dispatch applies msgs now and returns how many failed. Failures are
// recorded for a later retry, or parked as dead once MaxAttempts is reached.
func (d *Dispatcher) Dispatch(ctx context.Context, msgs ...outbox.Message) int {
	failed := 0
	for _, m := range msgs {
		if err := d.apply(ctx, m); err != nil {
			failed++
			d.fail(ctx, m, err)
			continue
		}

		metrics.OutboxMessages.WithLabelValues(m.Kind, "dispatched").Inc()
		if err := d.repo.MarkDispatched(ctx, m.ID, d.now()); err != nil {
			// The lease expires and the message is applied again.
			d.log.Error(ctx, "outbox mark dispatched", "id", m.ID, "err", err)
		}
	}
	return failed
}

func (d *Dispatcher) fail(ctx context.Context, m outbox.Message, err error) {
	attempts := m.Attempts + 1
	if attempts >= MaxAttempts {
		d.log.Error(ctx, "outbox message dead", "id", m.ID, "kind", m.Kind, "attempts", attempts, "err", err)
		metrics.OutboxMessages.WithLabelValues(m.Kind, "dead").Inc()
		if merr := d.repo.MarkDead(ctx, m.ID, err.Error(), d.now()); merr != nil {
			d.log.Error(ctx, "outbox mark dead", "id", m.ID, "err", merr)
		}
		return
	}

	next := d.now().Add(Backoff(m.Attempts))
	d.log.Warn(ctx, "outbox message failed", "id", m.ID, "kind", m.Kind, "attempts", attempts, "retry_at", next, "err", err)
	metrics.OutboxMessages.WithLabelValues(m.Kind, "failed").Inc()
	if merr := d.repo.MarkFailed(ctx, m.ID, err.Error(), next); merr != nil {
		d.log.Error(ctx, "outbox mark failed", "id", m.ID, "err", merr)
	}
}

func (d *Dispatcher) apply(ctx context.Context, m outbox.Message) error {
	d.mu.RLock()
	h, ok := d.handlers[m.Kind]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler for kind %q", m.Kind)
	}
	return h(ctx, m.Payload)
}

// RunOnce claims and dispatches one batch of due messages.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	msgs, err := d.repo.ClaimDue(ctx, d.now(), claimLease, batchSize)
	if err != nil {
		return 0, err
	}
	d.Dispatch(ctx, msgs...)
	return len(msgs), nil
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.log.Info(ctx, "outbox dispatcher started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			d.log.Info(context.Background(), "outbox dispatcher stopped")
			return
		case <-ticker.C:
			for {
				n, err := d.RunOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						d.log.Error(ctx, "outbox claim failed", "err", err)
					}
					break
				}
				if n < batchSize {
					break
				}
			}
		}
	}
}
