package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpfinder/internal/authz"
	"helpfinder/internal/models"
	"helpfinder/internal/notify"
	"helpfinder/internal/repositories"
)

func TestLifecycle_ShelfScenario(t *testing.T) {
	env := newEnv(t)
	ctx := env.ctx

	budget := decimal.NewFromInt(50)
	task, err := env.tasks.Create(ctx, env.requester.ID, models.TaskInput{Title: "Assemble shelf", BudgetMin: &budget})
	require.NoError(t, err)
	assert.Equal(t, models.TaskOpen, task.Status)

	b1 := env.bid(task.ID, env.h1, 45)
	b2 := env.bid(task.ID, env.h2, 40)

	bids, err := env.bids.ListForTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, b2.ID, bids[0].ID, "lowest amount first")

	// 1. accept H2's bid
	contract, err := env.bids.Accept(ctx, b2.ID, env.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, env.h2.ID, contract.HelperID)
	assert.True(t, contract.AgreedAmount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, models.ContractPending, contract.Status)
	assert.Equal(t, models.TaskAccepted, env.task(task.ID).Status)
	assert.Equal(t, models.BidPending, env.bidRow(b1.ID).Status)
	assert.Equal(t, models.BidAccepted, env.bidRow(b2.ID).Status)
	env.consistent(task.ID)

	// 2. start
	_, err = env.tasks.Start(ctx, task.ID, env.h2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, env.task(task.ID).Status)
	assert.Equal(t, models.ContractStarted, env.contract(contract.ID).Status)
	env.consistent(task.ID)

	// 3. request completion
	_, err = env.tasks.RequestCompletion(ctx, task.ID, env.h2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskReviewPending, env.task(task.ID).Status)
	assert.Equal(t, models.ContractDelivered, env.contract(contract.ID).Status)
	env.consistent(task.ID)

	// 4. reject completion
	_, err = env.tasks.RejectCompletion(ctx, task.ID, env.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, env.task(task.ID).Status)
	assert.Equal(t, models.ContractStarted, env.contract(contract.ID).Status)
	env.consistent(task.ID)

	// 5. request again and approve
	_, err = env.tasks.RequestCompletion(ctx, task.ID, env.h2.ID)
	require.NoError(t, err)
	approvedAt := env.clock.Now()
	done, err := env.tasks.ApproveCompletion(ctx, task.ID, env.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, done.Status)
	require.NotNil(t, env.task(task.ID).CompletedAt)
	assert.True(t, env.task(task.ID).CompletedAt.Equal(approvedAt))
	assert.Equal(t, models.ContractApproved, env.contract(contract.ID).Status)
	env.consistent(task.ID)

	// 6. reopen ten days later
	env.clock.Advance(10 * 24 * time.Hour)
	reopened, err := env.tasks.Reopen(ctx, task.ID, env.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskOpen, reopened.Status)
	assert.Nil(t, env.task(task.ID).CompletedAt)
	assert.Equal(t, models.BidRejected, env.bidRow(b2.ID).Status)
	assert.Equal(t, models.ContractCancelled, env.contract(contract.ID).Status)
	assert.Equal(t, models.BidPending, env.bidRow(b1.ID).Status)
	env.consistent(task.ID)

	_, err = env.tasks.Reopen(ctx, task.ID, env.requester.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLifecycle_NotifiesCounterpart(t *testing.T) {
	env := newEnv(t)
	task := env.newTask("Fix sink")
	b := env.bid(task.ID, env.h1, 30)

	requesterFx := env.sent.For(env.requester.ID)
	require.Len(t, requesterFx, 1)
	assert.Empty(t, requesterFx[0].Message, "new bids are email only")
	assert.NotEmpty(t, requesterFx[0].Subject)

	env.sent.Reset()
	_, err := env.bids.Accept(env.ctx, b.ID, env.requester.ID)
	require.NoError(t, err)
	helperFx := env.sent.For(env.h1.ID)
	require.Len(t, helperFx, 1)
	assert.Equal(t, models.NotifySuccess, helperFx[0].Type)
	assert.Equal(t, task.ID, helperFx[0].ResourceID)
	assert.NotEmpty(t, helperFx[0].Subject)

	env.sent.Reset()
	_, err = env.tasks.Start(env.ctx, task.ID, env.h1.ID)
	require.NoError(t, err)
	assert.Len(t, env.sent.For(env.requester.ID), 1)
	assert.Empty(t, env.sent.For(env.h1.ID))
}

func TestTransitions_GuardActorAndState(t *testing.T) {
	env := newEnv(t)
	task := env.newTask("Paint fence")
	b := env.bid(task.ID, env.h1, 80)

	_, err := env.tasks.Start(env.ctx, task.ID, env.h1.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.bids.Accept(env.ctx, b.ID, env.h2.ID)
	assert.ErrorIs(t, err, ErrNotTaskOwner)

	_, err = env.bids.Accept(env.ctx, b.ID, env.requester.ID)
	require.NoError(t, err)

	_, err = env.tasks.Start(env.ctx, task.ID, env.h2.ID)
	assert.ErrorIs(t, err, ErrNotAssignedHelper)
	_, err = env.tasks.Start(env.ctx, task.ID, env.requester.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.tasks.ApproveCompletion(env.ctx, task.ID, env.requester.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = env.tasks.RequestCompletion(env.ctx, task.ID, env.h1.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.tasks.Start(env.ctx, "missing", env.h1.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.Equal(t, models.TaskAccepted, env.task(task.ID).Status)
	env.consistent(task.ID)
}

func TestReopen_FourteenDayBoundary(t *testing.T) {
	env := newEnv(t)

	onTime, _, _ := env.completed("Mow lawn")
	env.clock.Advance(ReopenWindow)
	_, err := env.tasks.Reopen(env.ctx, onTime.ID, env.requester.ID)
	require.NoError(t, err)
	env.consistent(onTime.ID)

	late, _, _ := env.completed("Wash car")
	env.clock.Advance(ReopenWindow + time.Second)
	_, err = env.tasks.Reopen(env.ctx, late.ID, env.requester.ID)
	assert.ErrorIs(t, err, ErrReopenWindowClosed)
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, models.TaskCompleted, env.task(late.ID).Status)

	_, err = env.tasks.Reopen(env.ctx, late.ID, env.h2.ID)
	assert.ErrorIs(t, err, ErrNotTaskOwner)
}

func TestCreate_DailyQuotaResetsAtLocalMidnight(t *testing.T) {
	env := newEnv(t)
	env.clock.Set(time.Date(2024, 3, 4, 8, 0, 0, 0, quotaZone))

	for i := 0; i < DefaultLimits.TasksPerDay; i++ {
		env.newTask("task")
		env.clock.Advance(time.Minute)
	}

	env.clock.Set(time.Date(2024, 3, 4, 23, 59, 59, 0, quotaZone))
	_, err := env.tasks.Create(env.ctx, env.requester.ID, models.TaskInput{Title: "eleventh"})
	assert.ErrorIs(t, err, ErrTaskQuota)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, KindQuotaExceeded, KindOf(err))

	rid := env.requester.ID
	list, err := env.tasks.List(env.ctx, models.TaskFilter{RequesterID: &rid, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, list, DefaultLimits.TasksPerDay)

	// other users have their own counter
	_, err = env.tasks.Create(env.ctx, env.h1.ID, models.TaskInput{Title: "other"})
	require.NoError(t, err)

	env.clock.Set(time.Date(2024, 3, 5, 0, 0, 0, 0, quotaZone))
	_, err = env.tasks.Create(env.ctx, env.requester.ID, models.TaskInput{Title: "after midnight"})
	require.NoError(t, err)
}

func TestCreate_Validation(t *testing.T) {
	env := newEnv(t)
	lo, hi := decimal.NewFromInt(100), decimal.NewFromInt(50)

	_, err := env.tasks.Create(env.ctx, env.requester.ID, models.TaskInput{Title: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.tasks.Create(env.ctx, env.requester.ID, models.TaskInput{Title: "x", BudgetMin: &lo, BudgetMax: &hi})
	assert.ErrorIs(t, err, ErrValidation)

	huge := decimal.RequireFromString("10000000000")
	_, err = env.tasks.Create(env.ctx, env.requester.ID, models.TaskInput{Title: "x", BudgetMax: &huge})
	assert.ErrorIs(t, err, ErrValidation)

	fine := decimal.RequireFromString("10.555")
	task, err := env.tasks.Create(env.ctx, env.requester.ID, models.TaskInput{Title: "x", BudgetMin: &fine})
	require.NoError(t, err)
	require.NotNil(t, task.BudgetMin)
	assert.Equal(t, "10.56", task.BudgetMin.String())
}

func TestUpdate_Rules(t *testing.T) {
	env := newEnv(t)
	task := env.newTask("Clean garage")
	title := "Clean garage and attic"

	_, err := env.tasks.Update(env.ctx, task.ID, env.h1.ID, models.TaskPatch{Title: &title}, authz.RoleMember)
	assert.ErrorIs(t, err, ErrNotTaskOwner)

	updated, err := env.tasks.Update(env.ctx, task.ID, env.requester.ID, models.TaskPatch{Title: &title}, authz.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	b := env.bid(task.ID, env.h1, 60)
	_, err = env.tasks.Update(env.ctx, task.ID, env.requester.ID, models.TaskPatch{Title: &title}, authz.RoleMember)
	assert.ErrorIs(t, err, ErrTaskNotEditable)

	// a rejected bid no longer blocks edits
	_, err = env.bids.Reject(env.ctx, b.ID, env.requester.ID)
	require.NoError(t, err)
	_, err = env.tasks.Update(env.ctx, task.ID, env.requester.ID, models.TaskPatch{Title: &title}, authz.RoleMember)
	require.NoError(t, err)
}

func TestUpdate_AdminBypassWarnsHelper(t *testing.T) {
	env := newEnv(t)
	task := env.newTask("Move sofa")
	b := env.bid(task.ID, env.h1, 70)
	_, err := env.bids.Accept(env.ctx, b.ID, env.requester.ID)
	require.NoError(t, err)

	city := "Almaty"
	_, err = env.tasks.Update(env.ctx, task.ID, env.requester.ID, models.TaskPatch{City: &city}, authz.RoleMember)
	assert.ErrorIs(t, err, ErrTaskNotEditable)

	env.sent.Reset()
	_, err = env.tasks.Update(env.ctx, task.ID, env.admin.ID, models.TaskPatch{City: &city}, authz.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, env.sent.For(env.h1.ID), "location is not part of the agreed terms")

	budget := decimal.NewFromInt(90)
	updated, err := env.tasks.Update(env.ctx, task.ID, env.admin.ID, models.TaskPatch{BudgetMax: &budget}, authz.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.TaskAccepted, updated.Status)

	fx := env.sent.For(env.h1.ID)
	require.Len(t, fx, 1)
	assert.Equal(t, models.NotifyWarning, fx[0].Type)
	env.consistent(task.ID)
}

func TestDelete_IdempotentAndKeepsContractHistory(t *testing.T) {
	env := newEnv(t)
	task := env.newTask("Hang pictures")
	b := env.bid(task.ID, env.h1, 25)
	env.bid(task.ID, env.h2, 30)
	c, err := env.bids.Accept(env.ctx, b.ID, env.requester.ID)
	require.NoError(t, err)

	err = env.tasks.Delete(env.ctx, task.ID, env.h2.ID, false)
	assert.ErrorIs(t, err, ErrNotTaskOwner)

	require.NoError(t, env.tasks.Delete(env.ctx, task.ID, env.requester.ID, false))
	require.NoError(t, env.tasks.Delete(env.ctx, task.ID, env.requester.ID, false))

	_, err = env.store.Tasks().GetByID(env.ctx, task.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = env.store.Bids().GetByID(env.ctx, b.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.Equal(t, models.ContractCancelled, env.contract(c.ID).Status)
	assert.Len(t, env.sent.For(env.h1.ID), 2, "accepted, then deleted")
}

func TestDelete_AdminCanDeleteOthersTasks(t *testing.T) {
	env := newEnv(t)
	task := env.newTask("Walk dog")
	require.NoError(t, env.tasks.Delete(env.ctx, task.ID, env.admin.ID, true))
	_, err := env.tasks.Get(env.ctx, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCancel(t *testing.T) {
	env := newEnv(t)
	task := env.newTask("Tile bathroom")
	b := env.bid(task.ID, env.h1, 500)
	c, err := env.bids.Accept(env.ctx, b.ID, env.requester.ID)
	require.NoError(t, err)

	_, err = env.tasks.Cancel(env.ctx, task.ID, env.h1.ID, false)
	assert.ErrorIs(t, err, ErrNotTaskOwner)

	cancelled, err := env.tasks.Cancel(env.ctx, task.ID, env.requester.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCancelled, cancelled.Status)
	assert.Equal(t, models.ContractCancelled, env.contract(c.ID).Status)
	assert.Equal(t, models.BidRejected, env.bidRow(b.ID).Status)
	env.consistent(task.ID)

	_, err = env.tasks.Cancel(env.ctx, task.ID, env.requester.ID, false)
	assert.ErrorIs(t, err, ErrTaskClosed)
	_, err = env.bids.Place(env.ctx, task.ID, env.h2.ID, decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, ErrTaskNotOpen)

	done, _, _ := env.completed("Fix roof")
	_, err = env.tasks.Cancel(env.ctx, done.ID, env.admin.ID, true)
	assert.ErrorIs(t, err, ErrTaskClosed)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	env := newEnv(t)
	a := env.newTask("a")
	env.clock.Advance(time.Second)
	env.newTask("b")
	env.clock.Advance(time.Second)
	c := env.newTask("c")
	b := env.bid(a.ID, env.h1, 10)
	_, err := env.bids.Accept(env.ctx, b.ID, env.requester.ID)
	require.NoError(t, err)

	open := models.TaskOpen
	list, err := env.tasks.List(env.ctx, models.TaskFilter{Status: &open, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID, "newest first")

	bogus := models.TaskStatus("archived")
	_, err = env.tasks.List(env.ctx, models.TaskFilter{Status: &bogus})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRun_EffectsOnlyAfterCommit(t *testing.T) {
	env := newEnv(t)
	e := newEngine(env.deps)

	err := e.run(env.ctx, func(_ repositories.Store, fx *notify.Effects) error {
		fx.Add(notify.Notice(env.h1.ID, models.NotifyInfo, "", "never sent"))
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, env.sent.For(env.h1.ID))
}

func TestRun_StaleVersionIsConflict(t *testing.T) {
	env := newEnv(t)
	task := env.newTask("Fix door")
	stale := env.task(task.ID)

	title := "Fix front door"
	_, err := env.tasks.Update(env.ctx, task.ID, env.requester.ID, models.TaskPatch{Title: &title}, authz.RoleMember)
	require.NoError(t, err)

	e := newEngine(env.deps)
	err = e.run(env.ctx, func(tx repositories.Store, _ *notify.Effects) error {
		stale.Status = models.TaskCancelled
		return tx.Tasks().Update(env.ctx, stale)
	})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, models.TaskOpen, env.task(task.ID).Status)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, canTransition(models.TaskOpen, models.TaskAccepted))
	assert.True(t, canTransition(models.TaskCompleted, models.TaskOpen))
	assert.False(t, canTransition(models.TaskOpen, models.TaskCompleted))
	assert.False(t, canTransition(models.TaskCompleted, models.TaskCancelled))
	assert.False(t, canTransition(models.TaskCancelled, models.TaskOpen))

	for _, s := range []models.TaskStatus{models.TaskOpen, models.TaskCancelled} {
		assert.Equal(t, models.ContractCancelled, contractStatusFor(s))
	}
	assert.Equal(t, models.ContractApproved, contractStatusFor(models.TaskCompleted))
}
