package services

import (
	"context"
	"errors"
	"io"

	"helpfinder/internal/models"
	"helpfinder/internal/pdf"
	"helpfinder/internal/repositories"
)

// ContractService is the read side of contracts. Contracts only change as
// part of task transitions.
type ContractService interface {
	ListForUser(ctx context.Context, helperID string) ([]models.Contract, error)
	ListForTask(ctx context.Context, taskID, userID string, isAdmin bool) ([]models.Contract, error)
	Get(ctx context.Context, id, userID string, isAdmin bool) (*models.Contract, error)
	RenderPDF(ctx context.Context, id, userID string, isAdmin bool, w io.Writer) error
}

type contractService struct {
	*engine
	docs pdf.Generator
}

func NewContractService(d Deps, docs pdf.Generator) ContractService {
	if docs == nil {
		docs = pdf.NewDocumentGenerator("")
	}
	return &contractService{engine: newEngine(d), docs: docs}
}

func (s *contractService) ListForUser(ctx context.Context, helperID string) ([]models.Contract, error) {
	return s.store.Contracts().ListByHelper(ctx, helperID)
}

// ListForTask returns the contract history of a task, newest first. The
// history outlives a deleted task and stays visible to its helpers.
func (s *contractService) ListForTask(ctx context.Context, taskID, userID string, isAdmin bool) ([]models.Contract, error) {
	contracts, err := s.store.Contracts().ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.Tasks().GetByID(ctx, taskID)
	switch {
	case err == nil:
		if task.RequesterID == userID || isAdmin {
			return contracts, nil
		}
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	case len(contracts) == 0:
		return nil, ErrTaskNotFound
	case isAdmin:
		return contracts, nil
	}
	for _, c := range contracts {
		if c.HelperID == userID {
			return contracts, nil
		}
	}
	return nil, ErrNotParticipant
}

func (s *contractService) Get(ctx context.Context, id, userID string, isAdmin bool) (*models.Contract, error) {
	c, _, err := s.load(ctx, id, userID, isAdmin)
	return c, err
}

func (s *contractService) RenderPDF(ctx context.Context, id, userID string, isAdmin bool, w io.Writer) error {
	c, task, err := s.load(ctx, id, userID, isAdmin)
	if err != nil {
		return err
	}
	data := pdf.ContractData{
		ContractID:   c.ID,
		TaskTitle:    "(deleted task)",
		Helper:       s.displayName(ctx, c.HelperID),
		AgreedAmount: c.AgreedAmount.StringFixed(2),
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if task != nil {
		data.TaskTitle = task.Title
		data.Requester = s.displayName(ctx, task.RequesterID)
	}
	return s.docs.Contract(w, data)
}

// load fetches a contract for its helper, the task requester or an admin.
// The task is nil once it has been deleted.
func (s *contractService) load(ctx context.Context, id, userID string, isAdmin bool) (*models.Contract, *models.Task, error) {
	c, err := s.store.Contracts().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundAs(err, ErrContractNotFound)
	}
	task, err := s.store.Tasks().GetByID(ctx, c.TaskID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, err
	}
	if err != nil {
		task = nil
	}
	if isAdmin || c.HelperID == userID || (task != nil && task.RequesterID == userID) {
		return c, task, nil
	}
	return nil, nil, ErrNotParticipant
}

func (s *contractService) displayName(ctx context.Context, userID string) string {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return userID
	}
	if u.Name == "" {
		return u.Email
	}
	return u.Name
}
