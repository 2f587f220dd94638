package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"helpfinder/internal/authz"
	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/notify"
	"helpfinder/internal/repositories/sqlitedb"
)

// quotaZone makes local midnight differ from UTC midnight.
var quotaZone = time.FixedZone("UTC+5", 5*60*60)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu      sync.Mutex
	effects []notify.Effect
}

func (r *recorder) Dispatch(_ context.Context, effects []notify.Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, effects...)
}

func (r *recorder) For(userID string) []notify.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Effect
	for _, e := range r.effects {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = nil
}

type testEnv struct {
	t      *testing.T
	ctx    context.Context
	store  *sqlitedb.Store
	clock  *fakeClock
	sent   *recorder
	deps   Deps
	tasks  TaskService
	bids   BidService
	deals  ContractService
	review ReviewService
	chat   ChatService

	requester *models.User
	h1, h2    *models.User
	admin     *models.User
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlitedb.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{
		t:     t,
		ctx:   context.Background(),
		store: store,
		clock: &fakeClock{now: time.Date(2024, 3, 4, 10, 0, 0, 0, quotaZone)},
		sent:  &recorder{},
	}
	env.deps = Deps{
		Store:      store,
		Dispatcher: env.sent,
		Clock:      env.clock.Now,
		Location:   quotaZone,
		Log:        logger.Nop(),
	}
	env.tasks = NewTaskService(env.deps)
	env.bids = NewBidService(env.deps)
	env.deals = NewContractService(env.deps, nil)
	env.review = NewReviewService(env.deps)
	env.chat = NewChatService(env.deps)

	env.requester = env.user("rita", authz.RoleMember)
	env.h1 = env.user("hank", authz.RoleMember)
	env.h2 = env.user("hugo", authz.RoleMember)
	env.admin = env.user("ada", authz.RoleAdmin)
	return env
}

func (e *testEnv) user(name string, role int) *models.User {
	e.t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		RoleID:       role,
		CreatedAt:    e.clock.Now().UTC(),
		UpdatedAt:    e.clock.Now().UTC(),
	}
	require.NoError(e.t, e.store.Users().Create(e.ctx, u))
	return u
}

func (e *testEnv) newTask(title string) *models.Task {
	e.t.Helper()
	task, err := e.tasks.Create(e.ctx, e.requester.ID, models.TaskInput{Title: title})
	require.NoError(e.t, err)
	return task
}

func (e *testEnv) bid(taskID string, helper *models.User, amount int64) *models.Bid {
	e.t.Helper()
	b, err := e.bids.Place(e.ctx, taskID, helper.ID, decimal.NewFromInt(amount), "")
	require.NoError(e.t, err)
	e.clock.Advance(time.Second)
	return b
}

// completed runs a fresh task through to approval by h2 at 40.
func (e *testEnv) completed(title string) (*models.Task, *models.Bid, *models.Contract) {
	e.t.Helper()
	task := e.newTask(title)
	b := e.bid(task.ID, e.h2, 40)
	c, err := e.bids.Accept(e.ctx, b.ID, e.requester.ID)
	require.NoError(e.t, err)
	_, err = e.tasks.Start(e.ctx, task.ID, e.h2.ID)
	require.NoError(e.t, err)
	_, err = e.tasks.RequestCompletion(e.ctx, task.ID, e.h2.ID)
	require.NoError(e.t, err)
	task, err = e.tasks.ApproveCompletion(e.ctx, task.ID, e.requester.ID)
	require.NoError(e.t, err)
	e.consistent(task.ID)
	return task, b, c
}

func (e *testEnv) task(id string) *models.Task {
	e.t.Helper()
	task, err := e.store.Tasks().GetByID(e.ctx, id)
	require.NoError(e.t, err)
	return task
}

func (e *testEnv) bidRow(id string) *models.Bid {
	e.t.Helper()
	b, err := e.store.Bids().GetByID(e.ctx, id)
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) contract(id string) *models.Contract {
	e.t.Helper()
	c, err := e.store.Contracts().GetByID(e.ctx, id)
	require.NoError(e.t, err)
	return c
}

func (e *testEnv) consistent(taskID string) {
	e.t.Helper()
	require.NoError(e.t, CheckEngagement(e.ctx, e.store, taskID))
}
