package pgdb

import (
	"context"

	"github.com/Masterminds/squirrel"

	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

var bidColumns = []string{"id", "task_id", "helper_id", "amount", "message", "status", "created_at", "updated_at"}

func scanBid(row scanner) (*models.Bid, error) {
	var b models.Bid
	if err := row.Scan(&b.ID, &b.TaskID, &b.HelperID, &b.Amount, &b.Message, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

type bidRepo struct{ base }

func (r *bidRepo) Create(ctx context.Context, b *models.Bid) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	_, err := r.exec(ctx, r.sb.Insert("bids").Columns(bidColumns...).
		Values(b.ID, b.TaskID, b.HelperID, b.Amount, b.Message, b.Status, b.CreatedAt, b.UpdatedAt))
	return err
}

func (r *bidRepo) GetByID(ctx context.Context, id string) (*models.Bid, error) {
	if !validID(id) {
		return nil, repositories.ErrNotFound
	}
	row, err := r.queryRow(ctx, r.sb.Select(bidColumns...).From("bids").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return scanBid(row)
}

func (r *bidRepo) Update(ctx context.Context, b *models.Bid) error {
	return r.execOne(ctx, r.sb.Update("bids").SetMap(map[string]interface{}{
		"amount":     b.Amount,
		"message":    b.Message,
		"status":     b.Status,
		"updated_at": b.UpdatedAt,
	}).Where(squirrel.Eq{"id": b.ID}))
}

func (r *bidRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repositories.ErrNotFound
	}
	return r.execOne(ctx, r.sb.Delete("bids").Where(squirrel.Eq{"id": id}))
}

func (r *bidRepo) DeleteByTask(ctx context.Context, taskID string) error {
	if !validID(taskID) {
		return nil
	}
	_, err := r.exec(ctx, r.sb.Delete("bids").Where(squirrel.Eq{"task_id": taskID}))
	return err
}

func (r *bidRepo) list(ctx context.Context, qb squirrel.SelectBuilder) ([]models.Bid, error) {
	rows, err := r.query(ctx, qb)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

func (r *bidRepo) ListByTask(ctx context.Context, taskID string) ([]models.Bid, error) {
	if !validID(taskID) {
		return nil, nil
	}
	return r.list(ctx, r.sb.Select(bidColumns...).From("bids").
		Where(squirrel.Eq{"task_id": taskID}).OrderBy("amount ASC", "created_at ASC", "id ASC"))
}

func (r *bidRepo) ListByHelper(ctx context.Context, helperID string) ([]models.Bid, error) {
	if !validID(helperID) {
		return nil, nil
	}
	return r.list(ctx, r.sb.Select(bidColumns...).From("bids").
		Where(squirrel.Eq{"helper_id": helperID}).OrderBy("created_at DESC", "id DESC"))
}

func (r *bidRepo) CountActive(ctx context.Context, taskID string) (int, error) {
	if !validID(taskID) {
		return 0, nil
	}
	row, err := r.queryRow(ctx, r.sb.Select("COUNT(*)").From("bids").
		Where(squirrel.Eq{"task_id": taskID}).Where(squirrel.NotEq{"status": models.BidRejected}))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (r *bidRepo) FindAccepted(ctx context.Context, taskID string) (*models.Bid, error) {
	if !validID(taskID) {
		return nil, repositories.ErrNotFound
	}
	row, err := r.queryRow(ctx, r.sb.Select(bidColumns...).From("bids").
		Where(squirrel.Eq{"task_id": taskID, "status": models.BidAccepted}))
	if err != nil {
		return nil, err
	}
	return scanBid(row)
}
