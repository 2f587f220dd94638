package pgdb

import (
	"context"

	"github.com/Masterminds/squirrel"

	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

var userColumns = []string{
	"id", "name", "email", "password_hash", "role_id", "blocked", "telegram_chat_id",
	"deleted_at", "created_at", "updated_at",
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.Blocked,
		&u.TelegramChatID, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

type userRepo struct{ base }

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	_, err := r.exec(ctx, r.sb.Insert("users").Columns(userColumns...).Values(
		u.ID, u.Name, u.Email, u.PasswordHash, u.RoleID, u.Blocked, u.TelegramChatID,
		u.DeletedAt, u.CreatedAt, u.UpdatedAt,
	))
	return err
}

func (r *userRepo) get(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	row, err := r.queryRow(ctx, r.sb.Select(userColumns...).From("users").
		Where(where).Where("deleted_at IS NULL"))
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, repositories.ErrNotFound
	}
	return r.get(ctx, squirrel.Eq{"id": id})
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, squirrel.Eq{"email": email})
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	qb := r.sb.Select(userColumns...).From("users").Where("deleted_at IS NULL").OrderBy("created_at DESC", "id DESC")
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

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepo) Update(ctx context.Context, u *models.User) error {
	return r.execOne(ctx, r.sb.Update("users").SetMap(map[string]interface{}{
		"name":             u.Name,
		"role_id":          u.RoleID,
		"blocked":          u.Blocked,
		"telegram_chat_id": u.TelegramChatID,
		"deleted_at":       u.DeletedAt,
		"updated_at":       u.UpdatedAt,
	}).Where(squirrel.Eq{"id": u.ID}))
}
