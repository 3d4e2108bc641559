package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gigmarket/internal/notification"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*NotificationRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewNotificationRepository(conn), mock, conn
}

func TestInsert(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	uid := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO notifications \(user_id, title, message, type\)`).
		WithArgs(uid, "Subscription active", "Your yearly plan is active", "subscription").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

	n := &notification.Notification{UserID: uid, Title: "Subscription active", Message: "Your yearly plan is active", Type: "subscription"}
	require.NoError(t, repo.Insert(context.Background(), n))
	assert.Equal(t, int64(7), n.ID)
}

func TestListByUser(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	uid := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`FROM notifications\s+WHERE user_id = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs(uid, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "message", "type", "read", "created_at"}).
			AddRow(2, uid.String(), "b", "bb", "payment", false, now).
			AddRow(1, uid.String(), "a", "aa", "system", true, now.Add(-time.Hour)))

	list, err := repo.ListByUser(context.Background(), uid, 50)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.True(t, list[1].Read)
}

func TestMarkRead_NotFound(t *testing.T) {
	repo, mock, conn := newRepoWithMock(t)
	defer conn.Close()

	mock.ExpectExec(`UPDATE notifications SET read = TRUE`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), uuid.New(), 99)
	assert.ErrorIs(t, err, notification.ErrNotFound)
}
