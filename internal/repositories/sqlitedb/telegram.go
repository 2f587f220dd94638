package sqlitedb

import (
	"context"

	"gorm.io/gorm"

	"helpfinder/internal/repositories"
)

type telegramLinkRepo struct{ db *gorm.DB }

func (r *telegramLinkRepo) Create(ctx context.Context, l *repositories.TelegramLink) error {
	row := telegramLinkRow{Code: l.Code, UserID: l.UserID, ExpiresAt: l.ExpiresAt, CreatedAt: l.CreatedAt}
	return translate(r.db.WithContext(ctx).Create(&row).Error)
}

func (r *telegramLinkRepo) GetByCode(ctx context.Context, code string) (*repositories.TelegramLink, error) {
	var row telegramLinkRow
	if err := r.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &repositories.TelegramLink{
		Code:      row.Code,
		UserID:    row.UserID,
		ExpiresAt: row.ExpiresAt,
		Used:      row.Used,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *telegramLinkRepo) MarkUsed(ctx context.Context, code string) error {
	return requireAffected(r.db.WithContext(ctx).Model(&telegramLinkRow{}).
		Where("code = ?", code).Update("used", true))
}
