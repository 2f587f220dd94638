package pgdb

import (
	"context"

	"github.com/Masterminds/squirrel"

	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

var contractColumns = []string{"id", "task_id", "bid_id", "helper_id", "agreed_amount", "status", "created_at", "updated_at"}

func scanContract(row scanner) (*models.Contract, error) {
	var c models.Contract
	var bidID *string
	if err := row.Scan(&c.ID, &c.TaskID, &bidID, &c.HelperID, &c.AgreedAmount, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	if bidID != nil {
		c.BidID = *bidID
	}
	return &c, nil
}

type contractRepo struct{ base }

func (r *contractRepo) Create(ctx context.Context, c *models.Contract) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	var bidID interface{}
	if c.BidID != "" {
		bidID = c.BidID
	}
	_, err := r.exec(ctx, r.sb.Insert("contracts").Columns(contractColumns...).
		Values(c.ID, c.TaskID, bidID, c.HelperID, c.AgreedAmount, c.Status, c.CreatedAt, c.UpdatedAt))
	return err
}

func (r *contractRepo) GetByID(ctx context.Context, id string) (*models.Contract, error) {
	if !validID(id) {
		return nil, repositories.ErrNotFound
	}
	row, err := r.queryRow(ctx, r.sb.Select(contractColumns...).From("contracts").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return scanContract(row)
}

func (r *contractRepo) Update(ctx context.Context, c *models.Contract) error {
	return r.execOne(ctx, r.sb.Update("contracts").
		Set("status", c.Status).
		Set("updated_at", c.UpdatedAt).
		Where(squirrel.Eq{"id": c.ID}))
}

func (r *contractRepo) FindCurrent(ctx context.Context, taskID string) (*models.Contract, error) {
	if !validID(taskID) {
		return nil, repositories.ErrNotFound
	}
	row, err := r.queryRow(ctx, r.sb.Select(contractColumns...).From("contracts").
		Where(squirrel.Eq{"task_id": taskID}).
		Where(squirrel.NotEq{"status": models.ContractCancelled}).
		OrderBy("created_at DESC", "id DESC").Limit(1))
	if err != nil {
		return nil, err
	}
	return scanContract(row)
}

func (r *contractRepo) list(ctx context.Context, where squirrel.Eq) ([]models.Contract, error) {
	rows, err := r.query(ctx, r.sb.Select(contractColumns...).From("contracts").
		Where(where).OrderBy("created_at DESC", "id DESC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *contractRepo) ListByTask(ctx context.Context, taskID string) ([]models.Contract, error) {
	if !validID(taskID) {
		return nil, nil
	}
	return r.list(ctx, squirrel.Eq{"task_id": taskID})
}

func (r *contractRepo) ListByHelper(ctx context.Context, helperID string) ([]models.Contract, error) {
	if !validID(helperID) {
		return nil, nil
	}
	return r.list(ctx, squirrel.Eq{"helper_id": helperID})
}
