package pgdb

import (
	"context"

	"github.com/Masterminds/squirrel"

	"helpfinder/internal/repositories"
)

type telegramLinkRepo struct{ base }

func (r *telegramLinkRepo) Create(ctx context.Context, l *repositories.TelegramLink) error {
	_, err := r.exec(ctx, r.sb.Insert("telegram_links").
		Columns("code", "user_id", "expires_at", "used", "created_at").
		Values(l.Code, l.UserID, l.ExpiresAt, l.Used, l.CreatedAt))
	return err
}

func (r *telegramLinkRepo) GetByCode(ctx context.Context, code string) (*repositories.TelegramLink, error) {
	row, err := r.queryRow(ctx, r.sb.Select("code", "user_id", "expires_at", "used", "created_at").
		From("telegram_links").Where(squirrel.Eq{"code": code}).Suffix("FOR UPDATE"))
	if err != nil {
		return nil, err
	}
	var l repositories.TelegramLink
	if err := row.Scan(&l.Code, &l.UserID, &l.ExpiresAt, &l.Used, &l.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (r *telegramLinkRepo) MarkUsed(ctx context.Context, code string) error {
	return r.execOne(ctx, r.sb.Update("telegram_links").Set("used", true).Where(squirrel.Eq{"code": code}))
}
