package sqlitedb

import (
	"context"

	"gorm.io/gorm"

	"helpfinder/internal/models"
)

type contractRepo struct{ db *gorm.DB }

func (r *contractRepo) Create(ctx context.Context, c *models.Contract) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *contractRepo) GetByID(ctx context.Context, id string) (*models.Contract, error) {
	var c models.Contract
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *contractRepo) Update(ctx context.Context, c *models.Contract) error {
	res := r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"status":     c.Status,
			"updated_at": c.UpdatedAt,
		})
	return requireAffected(res)
}

func (r *contractRepo) FindCurrent(ctx context.Context, taskID string) (*models.Contract, error) {
	var c models.Contract
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND status <> ?", taskID, models.ContractCancelled).
		Order("created_at desc").Order("id desc").First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *contractRepo) ListByTask(ctx context.Context, taskID string) ([]models.Contract, error) {
	var out []models.Contract
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at desc").Order("id desc").Find(&out).Error
	return out, translate(err)
}

func (r *contractRepo) ListByHelper(ctx context.Context, helperID string) ([]models.Contract, error) {
	var out []models.Contract
	err := r.db.WithContext(ctx).Where("helper_id = ?", helperID).Order("created_at desc").Order("id desc").Find(&out).Error
	return out, translate(err)
}
