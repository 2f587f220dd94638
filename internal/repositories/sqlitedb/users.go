package sqlitedb

import (
	"context"

	"gorm.io/gorm"

	"helpfinder/internal/models"
)

type userRepo struct{ db *gorm.DB }

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&u, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("deleted_at IS NULL").
		Order("created_at desc").Order("id desc").Limit(limit).Offset(offset).Find(&users).Error
	return users, translate(err)
}

func (r *userRepo) Update(ctx context.Context, u *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"name":             u.Name,
			"role_id":          u.RoleID,
			"blocked":          u.Blocked,
			"telegram_chat_id": u.TelegramChatID,
			"deleted_at":       u.DeletedAt,
			"updated_at":       u.UpdatedAt,
		})
	return requireAffected(res)
}
