package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"helpfinder/internal/authz"
	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/notify"
	"helpfinder/internal/quota"
	"helpfinder/internal/repositories"
)

const maxTitleLen = 200

// TaskService is the task state machine. Every status change goes through
// applyTransition inside a single transaction.
type TaskService interface {
	Create(ctx context.Context, requesterID string, in models.TaskInput) (*models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, id, userID string, patch models.TaskPatch, roleID int) (*models.Task, error)
	Delete(ctx context.Context, id, userID string, isAdmin bool) error

	Start(ctx context.Context, id, helperID string) (*models.Task, error)
	RequestCompletion(ctx context.Context, id, helperID string) (*models.Task, error)
	ApproveCompletion(ctx context.Context, id, requesterID string) (*models.Task, error)
	RejectCompletion(ctx context.Context, id, requesterID string) (*models.Task, error)
	Reopen(ctx context.Context, id, requesterID string) (*models.Task, error)
	Cancel(ctx context.Context, id, userID string, isAdmin bool) (*models.Task, error)
}

type taskService struct {
	*engine
}

func NewTaskService(d Deps) TaskService {
	return &taskService{engine: newEngine(d)}
}

func (s *taskService) Create(ctx context.Context, requesterID string, in models.TaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.BudgetMin, in.BudgetMax = roundBudget(in.BudgetMin), roundBudget(in.BudgetMax)
	if err := validateTerms(in.Title, in.BudgetMin, in.BudgetMax); err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		ID:          models.NewID(),
		RequesterID: requesterID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		BudgetMin:   in.BudgetMin,
		BudgetMax:   in.BudgetMax,
		Address:     in.Address,
		City:        in.City,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Status:      models.TaskOpen,
		Version:     1,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	err := s.run(ctx, func(tx repositories.Store, _ *notify.Effects) error {
		if err := s.consume(ctx, tx, requesterID, quota.KindTaskCreate, s.limits.TasksPerDay, ErrTaskQuota); err != nil {
			return err
		}
		return tx.Tasks().Create(ctx, task)
	})
	if err != nil {
		s.log.Warn("[task][create] failed", logger.UserID(requesterID), zap.Error(err))
		return nil, err
	}
	s.log.Info("[task][create] task created", logger.TaskID(task.ID), logger.UserID(requesterID))
	return task, nil
}

func (s *taskService) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.Tasks().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrTaskNotFound)
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, validation("unknown task status %q", *filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.Tasks().List(ctx, filter)
}

// Update edits an open task that has no active bids. Admins may edit at any
// point; the assigned helper is warned when the agreed terms change.
func (s *taskService) Update(ctx context.Context, id, userID string, patch models.TaskPatch, roleID int) (*models.Task, error) {
	isAdmin := authz.IsAdmin(roleID)
	var task *models.Task

	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		t, err := tx.Tasks().GetByID(ctx, id)
		if err != nil {
			return notFoundAs(err, ErrTaskNotFound)
		}
		if t.RequesterID != userID && !isAdmin {
			return ErrNotTaskOwner
		}
		if !isAdmin {
			if t.Status != models.TaskOpen {
				return ErrTaskNotEditable
			}
			active, err := tx.Bids().CountActive(ctx, id)
			if err != nil {
				return err
			}
			if active > 0 {
				return ErrTaskNotEditable
			}
		}

		applyPatch(t, patch)
		t.BudgetMin, t.BudgetMax = roundBudget(t.BudgetMin), roundBudget(t.BudgetMax)
		if err := validateTerms(t.Title, t.BudgetMin, t.BudgetMax); err != nil {
			return err
		}
		t.UpdatedAt = s.now().UTC()
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}

		if patch.TouchesTerms() {
			bid, err := tx.Bids().FindAccepted(ctx, id)
			switch {
			case err == nil:
				fx.Add(notify.Notice(bid.HelperID, models.NotifyWarning, t.ID,
					fmt.Sprintf("The terms of task %q were changed after your bid was accepted.", t.Title)))
			case !errors.Is(err, repositories.ErrNotFound):
				return err
			}
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[task][update] task updated", logger.TaskID(id), logger.UserID(userID))
	return task, nil
}

// Delete removes a task and its bids. A task that is already gone is not an
// error. A running contract is cancelled and kept as history.
func (s *taskService) Delete(ctx context.Context, id, userID string, isAdmin bool) error {
	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		eng, err := loadEngagement(ctx, tx, id)
		if errors.Is(err, ErrTaskNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if eng.task.RequesterID != userID && !isAdmin {
			return ErrNotTaskOwner
		}

		if c := eng.contract; c != nil && !c.Status.Terminal() {
			c.Status = models.ContractCancelled
			c.UpdatedAt = s.now().UTC()
			if err := tx.Contracts().Update(ctx, c); err != nil {
				return err
			}
			fx.Add(notify.Notice(c.HelperID, models.NotifyWarning, "",
				fmt.Sprintf("Task %q was deleted by its requester. Your contract has been cancelled.", eng.task.Title)))
		}
		if err := tx.Bids().DeleteByTask(ctx, id); err != nil {
			return err
		}
		return tx.Tasks().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("[task][delete] task deleted", logger.TaskID(id), logger.UserID(userID))
	return nil
}

func (s *taskService) Start(ctx context.Context, id, helperID string) (*models.Task, error) {
	return s.step(ctx, "start", id, func(eng *engagement, fx *notify.Effects) (models.TaskStatus, error) {
		if eng.task.Status != models.TaskAccepted {
			return "", errStatus(eng.task, models.TaskAccepted)
		}
		if eng.helperID() != helperID {
			return "", ErrNotAssignedHelper
		}
		msg := fmt.Sprintf("Work on %q has started.", eng.task.Title)
		fx.Add(notify.Notice(eng.task.RequesterID, models.NotifyInfo, eng.task.ID, msg).
			WithEmail("Work has started", notify.HTML("Work has started", msg)))
		return models.TaskInProgress, nil
	})
}

func (s *taskService) RequestCompletion(ctx context.Context, id, helperID string) (*models.Task, error) {
	return s.step(ctx, "request_completion", id, func(eng *engagement, fx *notify.Effects) (models.TaskStatus, error) {
		if eng.task.Status != models.TaskInProgress {
			return "", errStatus(eng.task, models.TaskInProgress)
		}
		if eng.helperID() != helperID {
			return "", ErrNotAssignedHelper
		}
		msg := fmt.Sprintf("The helper marked %q as done. Please review and approve the work.", eng.task.Title)
		fx.Add(notify.Notice(eng.task.RequesterID, models.NotifyInfo, eng.task.ID, msg).
			WithEmail("Completion requested", notify.HTML("Completion requested", msg)))
		return models.TaskReviewPending, nil
	})
}

func (s *taskService) ApproveCompletion(ctx context.Context, id, requesterID string) (*models.Task, error) {
	return s.step(ctx, "approve_completion", id, func(eng *engagement, fx *notify.Effects) (models.TaskStatus, error) {
		if eng.task.RequesterID != requesterID {
			return "", ErrNotTaskOwner
		}
		if eng.task.Status != models.TaskReviewPending {
			return "", errStatus(eng.task, models.TaskReviewPending)
		}
		msg := fmt.Sprintf("Your work on %q was approved.", eng.task.Title)
		fx.Add(notify.Notice(eng.helperID(), models.NotifySuccess, eng.task.ID, msg).
			WithEmail("Work approved", notify.HTML("Work approved", msg)))
		return models.TaskCompleted, nil
	})
}

func (s *taskService) RejectCompletion(ctx context.Context, id, requesterID string) (*models.Task, error) {
	return s.step(ctx, "reject_completion", id, func(eng *engagement, fx *notify.Effects) (models.TaskStatus, error) {
		if eng.task.RequesterID != requesterID {
			return "", ErrNotTaskOwner
		}
		if eng.task.Status != models.TaskReviewPending {
			return "", errStatus(eng.task, models.TaskReviewPending)
		}
		msg := fmt.Sprintf("The requester asked for more work on %q.", eng.task.Title)
		fx.Add(notify.Notice(eng.helperID(), models.NotifyWarning, eng.task.ID, msg).
			WithEmail("Completion rejected", notify.HTML("Completion rejected", msg)))
		return models.TaskInProgress, nil
	})
}

// Reopen puts a completed task back on the market within ReopenWindow of
// its completion. The accepted bid is rejected and the contract cancelled.
func (s *taskService) Reopen(ctx context.Context, id, requesterID string) (*models.Task, error) {
	return s.step(ctx, "reopen", id, func(eng *engagement, fx *notify.Effects) (models.TaskStatus, error) {
		if eng.task.RequesterID != requesterID {
			return "", ErrNotTaskOwner
		}
		if eng.task.Status != models.TaskCompleted {
			return "", ErrTaskNotCompleted
		}
		if eng.task.CompletedAt == nil || s.now().Sub(*eng.task.CompletedAt) > ReopenWindow {
			return "", ErrReopenWindowClosed
		}
		msg := fmt.Sprintf("Task %q was reopened by the requester. Your contract has been cancelled.", eng.task.Title)
		fx.Add(notify.Notice(eng.helperID(), models.NotifyWarning, eng.task.ID, msg).
			WithEmail("Task reopened", notify.HTML("Task reopened", msg)))
		return models.TaskOpen, nil
	})
}

// Cancel closes a task for good. Completed tasks are history and cannot be
// cancelled.
func (s *taskService) Cancel(ctx context.Context, id, userID string, isAdmin bool) (*models.Task, error) {
	return s.step(ctx, "cancel", id, func(eng *engagement, fx *notify.Effects) (models.TaskStatus, error) {
		if eng.task.RequesterID != userID && !isAdmin {
			return "", ErrNotTaskOwner
		}
		if eng.task.Status == models.TaskCompleted || eng.task.Status == models.TaskCancelled {
			return "", ErrTaskClosed
		}
		if helper := eng.helperID(); helper != "" {
			msg := fmt.Sprintf("Task %q was cancelled. Your contract has been cancelled.", eng.task.Title)
			fx.Add(notify.Notice(helper, models.NotifyWarning, eng.task.ID, msg).
				WithEmail("Task cancelled", notify.HTML("Task cancelled", msg)))
		}
		return models.TaskCancelled, nil
	})
}

// step runs one guarded transition. check validates the actor and the
// current state, queues notices and names the target status.
func (s *taskService) step(ctx context.Context, op, id string,
	check func(eng *engagement, fx *notify.Effects) (models.TaskStatus, error)) (*models.Task, error) {

	var task *models.Task
	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		eng, err := loadEngagement(ctx, tx, id)
		if err != nil {
			return err
		}
		to, err := check(eng, fx)
		if err != nil {
			return err
		}
		if err := applyTransition(ctx, tx, eng, transition{to: to, release: releaseReject}, s.now()); err != nil {
			return err
		}
		task = eng.task
		return nil
	})
	if err != nil {
		s.log.Warn("[task]["+op+"] refused", logger.TaskID(id), zap.Error(err))
		return nil, err
	}
	s.log.Info("[task]["+op+"] done", logger.TaskID(id), zap.String("status", string(task.Status)))
	return task, nil
}

func applyPatch(t *models.Task, p models.TaskPatch) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.BudgetMin != nil {
		t.BudgetMin = p.BudgetMin
	}
	if p.BudgetMax != nil {
		t.BudgetMax = p.BudgetMax
	}
	if p.Address != nil {
		t.Address = *p.Address
	}
	if p.City != nil {
		t.City = *p.City
	}
	if p.Latitude != nil {
		t.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		t.Longitude = p.Longitude
	}
}

func roundBudget(b *decimal.Decimal) *decimal.Decimal {
	if b == nil {
		return nil
	}
	r := roundMoney(*b)
	return &r
}

func validateTerms(title string, budgetMin, budgetMax *decimal.Decimal) error {
	if title == "" {
		return validation("title is required")
	}
	if len(title) > maxTitleLen {
		return validation("title must be at most %d characters", maxTitleLen)
	}
	budgets := []struct {
		name  string
		value *decimal.Decimal
	}{{"budget_min", budgetMin}, {"budget_max", budgetMax}}
	for _, b := range budgets {
		if b.value == nil {
			continue
		}
		if b.value.IsNegative() {
			return validation("%s must not be negative", b.name)
		}
		if b.value.GreaterThan(maxAmount) {
			return validation("%s must be at most %s", b.name, maxAmount)
		}
	}
	if budgetMin != nil && budgetMax != nil && budgetMin.GreaterThan(*budgetMax) {
		return validation("budget_min must not exceed budget_max")
	}
	return nil
}
