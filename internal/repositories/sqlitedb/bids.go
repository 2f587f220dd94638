package sqlitedb

import (
	"context"

	"gorm.io/gorm"

	"helpfinder/internal/models"
)

type bidRepo struct{ db *gorm.DB }

func (r *bidRepo) Create(ctx context.Context, b *models.Bid) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *bidRepo) GetByID(ctx context.Context, id string) (*models.Bid, error) {
	var b models.Bid
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *bidRepo) Update(ctx context.Context, b *models.Bid) error {
	res := r.db.WithContext(ctx).Model(&models.Bid{}).Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"amount":     b.Amount,
			"message":    b.Message,
			"status":     b.Status,
			"updated_at": b.UpdatedAt,
		})
	return requireAffected(res)
}

func (r *bidRepo) Delete(ctx context.Context, id string) error {
	return requireAffected(r.db.WithContext(ctx).Delete(&models.Bid{}, "id = ?", id))
}

func (r *bidRepo) DeleteByTask(ctx context.Context, taskID string) error {
	return translate(r.db.WithContext(ctx).Delete(&models.Bid{}, "task_id = ?", taskID).Error)
}

func (r *bidRepo) ListByTask(ctx context.Context, taskID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("CAST(amount AS REAL) asc").Order("created_at asc").Order("id asc").Find(&bids).Error
	return bids, translate(err)
}

func (r *bidRepo) ListByHelper(ctx context.Context, helperID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).Where("helper_id = ?", helperID).
		Order("created_at desc").Order("id desc").Find(&bids).Error
	return bids, translate(err)
}

func (r *bidRepo) CountActive(ctx context.Context, taskID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Bid{}).
		Where("task_id = ? AND status <> ?", taskID, models.BidRejected).Count(&n).Error
	return int(n), translate(err)
}

func (r *bidRepo) FindAccepted(ctx context.Context, taskID string) (*models.Bid, error) {
	var b models.Bid
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND status = ?", taskID, models.BidAccepted).First(&b).Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}
