package pgdb

import (
	"context"

	"github.com/Masterminds/squirrel"

	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

type notificationRepo struct{ base }

var notificationColumns = []string{"id", "user_id", "message", "type", "resource_id", "read", "created_at"}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	_, err := r.exec(ctx, r.sb.Insert("notifications").Columns(notificationColumns...).
		Values(n.ID, n.UserID, n.Message, n.Type, n.ResourceID, n.Read, n.CreatedAt))
	return err
}

func (r *notificationRepo) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if !validID(userID) {
		return nil, nil
	}
	qb := r.sb.Select(notificationColumns...).From("notifications").
		Where(squirrel.Eq{"user_id": userID}).OrderBy("created_at DESC", "id DESC")
	if unreadOnly {
		qb = qb.Where(squirrel.Eq{"read": false})
	}
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	rows, err := r.query(ctx, qb)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.ResourceID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	if !validID(id) || !validID(userID) {
		return repositories.ErrNotFound
	}
	return r.execOne(ctx, r.sb.Update("notifications").Set("read", true).
		Where(squirrel.Eq{"id": id, "user_id": userID}))
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	if !validID(userID) {
		return nil
	}
	_, err := r.exec(ctx, r.sb.Update("notifications").Set("read", true).
		Where(squirrel.Eq{"user_id": userID, "read": false}))
	return err
}

type reviewRepo struct{ base }

var reviewColumns = []string{"id", "task_id", "author_id", "subject_id", "score", "comment", "created_at"}

func (r *reviewRepo) Create(ctx context.Context, rv *models.Review) error {
	_, err := r.exec(ctx, r.sb.Insert("reviews").Columns(reviewColumns...).
		Values(rv.ID, rv.TaskID, rv.AuthorID, rv.SubjectID, rv.Score, rv.Comment, rv.CreatedAt))
	return err
}

func (r *reviewRepo) ListForSubject(ctx context.Context, subjectID string) ([]models.Review, error) {
	if !validID(subjectID) {
		return nil, nil
	}
	rows, err := r.query(ctx, r.sb.Select(reviewColumns...).From("reviews").
		Where(squirrel.Eq{"subject_id": subjectID}).OrderBy("created_at DESC", "id DESC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.TaskID, &rv.AuthorID, &rv.SubjectID, &rv.Score, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

type messageRepo struct{ base }

var messageColumns = []string{"id", "task_id", "sender_id", "text", "created_at"}

func (r *messageRepo) Create(ctx context.Context, m *models.ChatMessage) error {
	_, err := r.exec(ctx, r.sb.Insert("chat_messages").Columns(messageColumns...).
		Values(m.ID, m.TaskID, m.SenderID, m.Text, m.CreatedAt))
	return err
}

func (r *messageRepo) ListByTask(ctx context.Context, taskID string, limit, offset int) ([]models.ChatMessage, error) {
	if !validID(taskID) {
		return nil, nil
	}
	qb := r.sb.Select(messageColumns...).From("chat_messages").
		Where(squirrel.Eq{"task_id": taskID}).OrderBy("created_at ASC", "id ASC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	if offset > 0 {
		qb = qb.Offset(uint64(offset))
	}
	rows, err := r.query(ctx, qb)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.TaskID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
