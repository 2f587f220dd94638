package services

import (
	"context"

	"helpfinder/internal/models"
)

type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	*engine
}

func NewNotificationService(d Deps) NotificationService {
	return &notificationService{engine: newEngine(d)}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.Notifications().ListForUser(ctx, userID, unreadOnly, limit)
}

// MarkRead reports not-found for notifications of other users.
func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	return notFoundAs(s.store.Notifications().MarkRead(ctx, id, userID), ErrNotificationNotFound)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.Notifications().MarkAllRead(ctx, userID)
}
