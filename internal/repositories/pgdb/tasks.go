package pgdb

import (
	"context"

	"github.com/Masterminds/squirrel"

	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

var taskColumns = []string{
	"id", "requester_id", "title", "description", "category", "budget_min", "budget_max",
	"address", "city", "latitude", "longitude", "status", "completed_at", "version",
	"created_at", "updated_at",
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.RequesterID, &t.Title, &t.Description, &t.Category, &t.BudgetMin, &t.BudgetMax,
		&t.Address, &t.City, &t.Latitude, &t.Longitude, &t.Status, &t.CompletedAt, &t.Version,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

type taskRepo struct{ base }

func (r *taskRepo) Create(ctx context.Context, t *models.Task) error {
	if t.Version == 0 {
		t.Version = 1
	}
	_, err := r.exec(ctx, r.sb.Insert("tasks").Columns(taskColumns...).Values(
		t.ID, t.RequesterID, t.Title, t.Description, t.Category, t.BudgetMin, t.BudgetMax,
		t.Address, t.City, t.Latitude, t.Longitude, t.Status, t.CompletedAt, t.Version,
		t.CreatedAt, t.UpdatedAt,
	))
	return err
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, repositories.ErrNotFound
	}
	row, err := r.queryRow(ctx, r.sb.Select(taskColumns...).From("tasks").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return scanTask(row)
}

func (r *taskRepo) Update(ctx context.Context, t *models.Task) error {
	n, err := r.exec(ctx, r.sb.Update("tasks").SetMap(map[string]interface{}{
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
		"version":      squirrel.Expr("version + 1"),
	}).Where(squirrel.Eq{"id": t.ID, "version": t.Version}))
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrVersionConflict
	}
	t.Version++
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repositories.ErrNotFound
	}
	return r.execOne(ctx, r.sb.Delete("tasks").Where(squirrel.Eq{"id": id}))
}

func (r *taskRepo) List(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	qb := r.sb.Select(taskColumns...).From("tasks").OrderBy("created_at DESC", "id DESC")
	if f.Status != nil {
		qb = qb.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.RequesterID != nil {
		if !validID(*f.RequesterID) {
			return nil, nil
		}
		qb = qb.Where(squirrel.Eq{"requester_id": *f.RequesterID})
	}
	if f.Category != nil {
		qb = qb.Where(squirrel.Eq{"category": *f.Category})
	}
	if f.Limit > 0 {
		qb = qb.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		qb = qb.Offset(uint64(f.Offset))
	}

	rows, err := r.query(ctx, qb)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
