package sqlitedb

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"helpfinder/internal/quota"
)

type quotaRepo struct{ db *gorm.DB }

// Load returns a zero quota for users that have not acted yet.
func (r *quotaRepo) Load(ctx context.Context, userID string, kind quota.Kind) (quota.Quota, error) {
	var row quotaRow
	err := r.db.WithContext(ctx).First(&row, "user_id = ? AND kind = ?", userID, string(kind)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return quota.Quota{}, nil
	}
	if err != nil {
		return quota.Quota{}, err
	}
	return quota.Quota{Count: row.Count, WindowStart: row.WindowStart}, nil
}

func (r *quotaRepo) Save(ctx context.Context, userID string, kind quota.Kind, q quota.Quota) error {
	row := quotaRow{UserID: userID, Kind: string(kind), Count: q.Count, WindowStart: q.WindowStart}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "window_start"}),
	}).Create(&row).Error
}
