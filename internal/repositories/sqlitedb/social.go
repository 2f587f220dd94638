package sqlitedb

import (
	"context"

	"gorm.io/gorm"

	"helpfinder/internal/models"
)

type notificationRepo struct{ db *gorm.DB }

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(n).Error)
}

func (r *notificationRepo) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Notification
	err := q.Order("created_at desc").Order("id desc").Find(&out).Error
	return out, translate(err)
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).Update("read", true)
	return requireAffected(res)
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).Update("read", true).Error
	return translate(err)
}

type reviewRepo struct{ db *gorm.DB }

func (r *reviewRepo) Create(ctx context.Context, rv *models.Review) error {
	return translate(r.db.WithContext(ctx).Create(rv).Error)
}

func (r *reviewRepo) ListForSubject(ctx context.Context, subjectID string) ([]models.Review, error) {
	var out []models.Review
	err := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).Order("created_at desc").Order("id desc").Find(&out).Error
	return out, translate(err)
}

type messageRepo struct{ db *gorm.DB }

func (r *messageRepo) Create(ctx context.Context, m *models.ChatMessage) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *messageRepo) ListByTask(ctx context.Context, taskID string, limit, offset int) ([]models.ChatMessage, error) {
	q := r.db.WithContext(ctx).Where("task_id = ?", taskID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []models.ChatMessage
	err := q.Order("created_at asc").Order("id asc").Find(&out).Error
	return out, translate(err)
}
