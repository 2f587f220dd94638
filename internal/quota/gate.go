package quota

import (
	"context"
	"fmt"
	"time"
)

// Counters loads and stores per-user counters. Implementations are expected
// to lock the loaded row for the rest of the surrounding transaction.
type Counters interface {
	Load(ctx context.Context, userID string, kind Kind) (Quota, error)
	Save(ctx context.Context, userID string, kind Kind, q Quota) error
}

// Gate consumes one unit of a user's daily quota or refuses with ErrExceeded.
type Gate interface {
	Consume(ctx context.Context, counters Counters, userID string, kind Kind, limit int, now time.Time) error
}

// StoreGate keeps counters next to the data they guard, so the increment
// commits or rolls back with the caller's transaction.
type StoreGate struct{}

func NewStoreGate() *StoreGate { return &StoreGate{} }

func (StoreGate) Consume(ctx context.Context, counters Counters, userID string, kind Kind, limit int, now time.Time) error {
	q, err := counters.Load(ctx, userID, kind)
	if err != nil {
		return fmt.Errorf("load quota: %w", err)
	}
	q.Limit = limit
	next, err := q.Take(now)
	if err != nil {
		return err
	}
	if err := counters.Save(ctx, userID, kind, next); err != nil {
		return fmt.Errorf("save quota: %w", err)
	}
	return nil
}
