package pgdb

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"helpfinder/internal/quota"
)

type quotaRepo struct{ base }

// Load creates the counter row on first use and locks it until the
// surrounding transaction ends, serializing concurrent requests per user.
func (r *quotaRepo) Load(ctx context.Context, userID string, kind quota.Kind) (quota.Quota, error) {
	if _, err := r.exec(ctx, r.sb.Insert("user_quotas").
		Columns("user_id", "kind", "count", "window_start").
		Values(userID, string(kind), 0, squirrel.Expr("now()")).
		Suffix("ON CONFLICT (user_id, kind) DO NOTHING")); err != nil {
		return quota.Quota{}, fmt.Errorf("ensure quota row: %w", err)
	}

	row, err := r.queryRow(ctx, r.sb.Select("count", "window_start").From("user_quotas").
		Where(squirrel.Eq{"user_id": userID, "kind": string(kind)}).Suffix("FOR UPDATE"))
	if err != nil {
		return quota.Quota{}, err
	}
	var q quota.Quota
	if err := row.Scan(&q.Count, &q.WindowStart); err != nil {
		return quota.Quota{}, translate(err)
	}
	return q, nil
}

func (r *quotaRepo) Save(ctx context.Context, userID string, kind quota.Kind, q quota.Quota) error {
	_, err := r.exec(ctx, r.sb.Insert("user_quotas").
		Columns("user_id", "kind", "count", "window_start").
		Values(userID, string(kind), q.Count, q.WindowStart).
		Suffix("ON CONFLICT (user_id, kind) DO UPDATE SET count = EXCLUDED.count, window_start = EXCLUDED.window_start"))
	return err
}
