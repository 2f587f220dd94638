package services

import (
	"context"
	"errors"
	"fmt"
	"time"


	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

// taskTransitions is the engagement state machine. Task status is the
// single source of truth; contract and bid statuses follow it.
var taskTransitions = map[models.TaskStatus]map[models.TaskStatus]bool{
	models.TaskOpen:          {models.TaskAccepted: true, models.TaskCancelled: true},
	models.TaskAccepted:      {models.TaskInProgress: true, models.TaskOpen: true, models.TaskCancelled: true},
	models.TaskInProgress:    {models.TaskReviewPending: true, models.TaskOpen: true, models.TaskCancelled: true},
	models.TaskReviewPending: {models.TaskCompleted: true, models.TaskInProgress: true, models.TaskOpen: true, models.TaskCancelled: true},
	models.TaskCompleted:     {models.TaskOpen: true},
	models.TaskCancelled:     {},
}

func canTransition(from, to models.TaskStatus) bool {
	return taskTransitions[from][to]
}

// contractStatusFor is the contract status that accompanies a task status.
func contractStatusFor(s models.TaskStatus) models.ContractStatus {
	switch s {
	case models.TaskAccepted:
		return models.ContractPending
	case models.TaskInProgress:
		return models.ContractStarted
	case models.TaskReviewPending:
		return models.ContractDelivered
	case models.TaskCompleted:
		return models.ContractApproved
	}
	return models.ContractCancelled
}

// bidRelease says what happens to the accepted bid when a task disengages.
type bidRelease int

const (
	releaseReject bidRelease = iota
	releaseToPending
	releaseDelete
)

// engagement is a task together with its accepted bid and current
// contract; both are nil while the task is open or cancelled.
type engagement struct {
	task     *models.Task
	bid      *models.Bid
	contract *models.Contract
}

func loadEngagement(ctx context.Context, tx repositories.Store, taskID string) (*engagement, error) {
	task, err := tx.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundAs(err, ErrTaskNotFound)
	}
	eng := &engagement{task: task}

	bid, err := tx.Bids().FindAccepted(ctx, taskID)
	switch {
	case err == nil:
		eng.bid = bid
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	contract, err := tx.Contracts().FindCurrent(ctx, taskID)
	switch {
	case err == nil:
		eng.contract = contract
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}
	return eng, nil
}

// helperID is the assigned helper, empty when none.
func (e *engagement) helperID() string {
	if e.bid == nil {
		return ""
	}
	return e.bid.HelperID
}

type transition struct {
	to models.TaskStatus
	// accept is the bid being accepted when moving open -> accepted.
	accept *models.Bid
	// release applies when leaving the engaged states.
	release bidRelease
}

// applyTransition is the only writer of Task.Status. It moves the task and
// derives the matching contract and bid writes in the same transaction.
// The task update is a compare-and-swap on its version.
func applyTransition(ctx context.Context, tx repositories.Store, eng *engagement, tr transition, now time.Time) error {
	task := eng.task
	from := task.Status
	if !canTransition(from, tr.to) {
		return errTransition(from, tr.to)
	}
	if from.Engaged() && (eng.bid == nil || eng.contract == nil) {
		return fmt.Errorf("task %s is %s without accepted bid or contract", task.ID, from)
	}

	ts := now.UTC()
	task.Status = tr.to
	task.UpdatedAt = ts
	switch tr.to {
	case models.TaskCompleted:
		task.CompletedAt = &ts
	case models.TaskOpen:
		task.CompletedAt = nil
	}
	if err := tx.Tasks().Update(ctx, task); err != nil {
		return err
	}

	if tr.to == models.TaskAccepted {
		return engage(ctx, tx, eng, tr.accept, ts)
	}

	if eng.contract != nil {
		eng.contract.Status = contractStatusFor(tr.to)
		eng.contract.UpdatedAt = ts
		if err := tx.Contracts().Update(ctx, eng.contract); err != nil {
			return err
		}
	}

	if !tr.to.Engaged() && eng.bid != nil {
		if err := releaseBid(ctx, tx, eng.bid, tr.release, ts); err != nil {
			return err
		}
		eng.bid, eng.contract = nil, nil
	}
	return nil
}

func engage(ctx context.Context, tx repositories.Store, eng *engagement, bid *models.Bid, ts time.Time) error {
	if bid == nil || bid.TaskID != eng.task.ID {
		return fmt.Errorf("accept transition needs a bid of task %s", eng.task.ID)
	}
	bid.Status = models.BidAccepted
	bid.UpdatedAt = ts
	if err := tx.Bids().Update(ctx, bid); err != nil {
		return err
	}

	contract := &models.Contract{
		ID:           models.NewID(),
		TaskID:       eng.task.ID,
		BidID:        bid.ID,
		HelperID:     bid.HelperID,
		AgreedAmount: bid.Amount,
		Status:       contractStatusFor(models.TaskAccepted),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := tx.Contracts().Create(ctx, contract); err != nil {
		return err
	}
	eng.bid, eng.contract = bid, contract
	return nil
}

func releaseBid(ctx context.Context, tx repositories.Store, bid *models.Bid, how bidRelease, ts time.Time) error {
	switch how {
	case releaseDelete:
		return tx.Bids().Delete(ctx, bid.ID)
	case releaseToPending:
		bid.Status = models.BidPending
	default:
		bid.Status = models.BidRejected
	}
	bid.UpdatedAt = ts
	return tx.Bids().Update(ctx, bid)
}

// InconsistencyError is returned by CheckEngagement when stored rows break
// the engagement invariant. Any other error from it is a lookup failure.
type InconsistencyError struct {
	TaskID  string
	Problem string
}

func (e *InconsistencyError) Error() string {
	return "task " + e.TaskID + " " + e.Problem
}

func inconsistent(taskID, format string, args ...any) error {
	return &InconsistencyError{TaskID: taskID, Problem: fmt.Sprintf(format, args...)}
}

// CheckEngagement verifies that a task, its bids and its contracts agree.
func CheckEngagement(ctx context.Context, store repositories.Store, taskID string) error {
	task, err := store.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return notFoundAs(err, ErrTaskNotFound)
	}
	bids, err := store.Bids().ListByTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("list bids: %w", err)
	}
	contracts, err := store.Contracts().ListByTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("list contracts: %w", err)
	}

	var accepted []models.Bid
	for _, b := range bids {
		if b.Status == models.BidAccepted {
			accepted = append(accepted, b)
		}
	}
	var live []models.Contract
	for _, c := range contracts {
		if c.Status != models.ContractCancelled {
			live = append(live, c)
		}
	}

	if len(accepted) > 1 {
		return inconsistent(taskID, "has %d accepted bids", len(accepted))
	}
	if !task.Status.Engaged() {
		if len(accepted) != 0 || len(live) != 0 {
			return inconsistent(taskID, "is %s but has %d accepted bids and %d live contracts",
				task.Status, len(accepted), len(live))
		}
		return nil
	}

	if len(live) != 1 {
		return inconsistent(taskID, "is %s with %d live contracts", task.Status, len(live))
	}
	if want := contractStatusFor(task.Status); live[0].Status != want {
		return inconsistent(taskID, "is %s but contract %s is %s, want %s",
			task.Status, live[0].ID, live[0].Status, want)
	}
	if len(accepted) != 1 {
		return inconsistent(taskID, "is %s without an accepted bid", task.Status)
	}
	if accepted[0].HelperID != live[0].HelperID {
		return inconsistent(taskID, "accepted bid helper %s differs from contract helper %s",
			accepted[0].HelperID, live[0].HelperID)
	}
	return nil
}
