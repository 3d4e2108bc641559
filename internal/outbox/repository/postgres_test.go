package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gigmarket/internal/outbox"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*OutboxRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewOutboxRepository(conn), mock, conn
}

func TestEnqueue(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	at := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	m1, err := outbox.NewMessage("a", map[string]int{"x": 1}, at)
	require.NoError(t, err)
	m2, err := outbox.NewMessage("b", map[string]int{"y": 2}, at)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO outbox_messages`).
		WithArgs(m1.ID, "a", []byte(`{"x":1}`), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_messages`).
		WithArgs(m2.ID, "b", []byte(`{"y":2}`), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Enqueue(context.Background(), m1, m2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDue(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	mock.ExpectQuery(`(?s)UPDATE outbox_messages SET next_attempt_at = \$2\s+WHERE id IN \(.*dead_at IS NULL`).
		WithArgs(now, now.Add(time.Minute), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "payload", "attempts", "last_error", "next_attempt_at", "created_at"}).
			AddRow(id.String(), "notification.create", []byte(`{}`), 2, "timeout", now.Add(time.Minute), now.Add(-time.Hour)))

	msgs, err := repo.ClaimDue(context.Background(), now, time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, 2, msgs[0].Attempts)
	assert.Equal(t, "timeout", msgs[0].LastError)
}

func TestMarkFailed(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	id := uuid.New()
	next := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE outbox_messages SET attempts = attempts \+ 1, last_error = \$1, next_attempt_at = \$2 WHERE id = \$3`).
		WithArgs("boom", next, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), id, "boom", next))
}

func TestMarkDispatched(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	id := uuid.New()
	at := time.Now()
	mock.ExpectExec(`UPDATE outbox_messages SET dispatched_at = \$1`).
		WithArgs(at, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDispatched(context.Background(), id, at))
}

func TestMarkDead(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	id := uuid.New()
	at := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE outbox_messages SET attempts = attempts \+ 1, last_error = \$1, dead_at = \$2 WHERE id = \$3`).
		WithArgs("user gone", at, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDead(context.Background(), id, "user gone", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountPendingSkipsDead(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM outbox_messages WHERE dispatched_at IS NULL AND dead_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM outbox_messages WHERE dead_at IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	pending, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	dead, err := repo.CountDead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dead)
}
