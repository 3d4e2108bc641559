package service

import (
	"context"
	"encoding/json"
	"fmt"

	"gigmarket/internal/notification"

	"github.com/google/uuid"
)

const listLimit = 50

type NotificationRepository interface {
	Insert(ctx context.Context, n *notification.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*notification.Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, id int64) error
}

type Service struct {
	repo NotificationRepository
}

func NewService(repo NotificationRepository) *Service {
	return &Service{repo: repo}
}

// HandleCreate is the outbox handler for notification.KindCreate.
func (s *Service) HandleCreate(ctx context.Context, payload json.RawMessage) error {
	var n notification.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	if n.UserID == uuid.Nil {
		return fmt.Errorf("notification without user id")
	}
	return s.repo.Insert(ctx, &n)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*notification.Notification, error) {
	return s.repo.ListByUser(ctx, userID, listLimit)
}

func (s *Service) MarkRead(ctx context.Context, userID uuid.UUID, id int64) error {
	return s.repo.MarkRead(ctx, userID, id)
}
