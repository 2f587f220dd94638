package sqlitedb

import (
	"context"

	"gorm.io/gorm"

	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

type taskRepo struct{ db *gorm.DB }

func (r *taskRepo) Create(ctx context.Context, t *models.Task) error {
	if t.Version == 0 {
		t.Version = 1
	}
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *taskRepo) Update(ctx context.Context, t *models.Task) error {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND version = ?", t.ID, t.Version).
		Updates(map[string]interface{}{
			"title":        t.Title,
			"description":  t.Description,
			"category":     t.Category,
			"budget_min":   t.BudgetMin,
			"budget_max":   t.BudgetMax,
			"address":      t.Address,
			"city":         t.City,
			"latitude":     t.Latitude,
			"longitude":    t.Longitude,
			"status":       t.Status,
			"completed_at": t.CompletedAt,
			"updated_at":   t.UpdatedAt,
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrVersionConflict
	}
	t.Version++
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, id string) error {
	return requireAffected(r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id))
}

func (r *taskRepo) List(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	q := r.db.WithContext(ctx).Model(&models.Task{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.RequesterID != nil {
		q = q.Where("requester_id = ?", *f.RequesterID)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var tasks []models.Task
	err := q.Order("created_at desc").Order("id desc").Find(&tasks).Error
	return tasks, translate(err)
}
