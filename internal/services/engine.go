package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/notify"
	"helpfinder/internal/quota"
	"helpfinder/internal/repositories"
)

const ReopenWindow = 14 * 24 * time.Hour

type Limits struct {
	TasksPerDay int
	BidsPerDay  int
}

var DefaultLimits = Limits{TasksPerDay: 10, BidsPerDay: 50}

// Deps are shared by the lifecycle services.
type Deps struct {
	Store      repositories.Store
	Dispatcher notify.Dispatcher
	Gate       quota.Gate
	Limits     Limits
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Location defines quota days; defaults to time.Local.
	Location *time.Location
	Log      *zap.Logger
}

type engine struct {
	store      repositories.Store
	dispatcher notify.Dispatcher
	gate       quota.Gate
	limits     Limits
	clock      func() time.Time
	loc        *time.Location
	log        *zap.Logger
}

func newEngine(d Deps) *engine {
	e := &engine{
		store:      d.Store,
		dispatcher: d.Dispatcher,
		gate:       d.Gate,
		limits:     d.Limits,
		clock:      d.Clock,
		loc:        d.Location,
		log:        logger.OrNop(d.Log),
	}
	if e.gate == nil {
		e.gate = quota.NewStoreGate()
	}
	if e.limits.TasksPerDay <= 0 {
		e.limits.TasksPerDay = DefaultLimits.TasksPerDay
	}
	if e.limits.BidsPerDay <= 0 {
		e.limits.BidsPerDay = DefaultLimits.BidsPerDay
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	return e
}

// now is the current time in the quota location.
func (e *engine) now() time.Time {
	return e.clock().In(e.loc)
}

// run executes fn in one transaction and dispatches the collected effects
// only after a successful commit.
func (e *engine) run(ctx context.Context, fn func(tx repositories.Store, fx *notify.Effects) error) error {
	var fx notify.Effects
	err := e.store.WithinTx(ctx, func(tx repositories.Store) error {
		fx = fx[:0]
		return fn(tx, &fx)
	})
	if err != nil {
		return storeErr(err)
	}
	if len(fx) > 0 && e.dispatcher != nil {
		e.dispatcher.Dispatch(ctx, fx)
	}
	return nil
}

func (e *engine) consume(ctx context.Context, tx repositories.Store, userID string, kind quota.Kind, limit int, exceeded *Error) error {
	err := e.gate.Consume(ctx, tx.Quotas(), userID, kind, limit, e.now())
	if errors.Is(err, quota.ErrExceeded) {
		return exceeded
	}
	return err
}
