package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/notify"
	"helpfinder/internal/quota"
	"helpfinder/internal/repositories"
)

var (
	minBidAmount = decimal.NewFromInt(1)
	// maxAmount is the largest value a decimal(12,2) column holds.
	maxAmount = decimal.RequireFromString("9999999999.99")
)

// roundMoney keeps two decimal places, the precision amounts are stored at.
func roundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

const maxBidMessageLen = 2000

// BidService is the bid ledger. Acceptance, renegotiation and withdrawal of
// an accepted bid move the task through applyTransition.
type BidService interface {
	Place(ctx context.Context, taskID, helperID string, amount decimal.Decimal, message string) (*models.Bid, error)
	Update(ctx context.Context, bidID, userID string, amount decimal.Decimal, message string) (*models.Bid, error)
	Accept(ctx context.Context, bidID, requesterID string) (*models.Contract, error)
	Reject(ctx context.Context, bidID, requesterID string) (*models.Bid, error)
	Withdraw(ctx context.Context, bidID, userID string) error
	ListForTask(ctx context.Context, taskID string) ([]models.Bid, error)
	ListForHelper(ctx context.Context, helperID string) ([]models.Bid, error)
}

type bidService struct {
	*engine
}

func NewBidService(d Deps) BidService {
	return &bidService{engine: newEngine(d)}
}

// validateBid returns the amount rounded to cents.
func validateBid(amount decimal.Decimal, message string) (decimal.Decimal, error) {
	amount = roundMoney(amount)
	if amount.LessThan(minBidAmount) {
		return amount, validation("amount must be at least %s", minBidAmount)
	}
	if amount.GreaterThan(maxAmount) {
		return amount, validation("amount must be at most %s", maxAmount)
	}
	if len(message) > maxBidMessageLen {
		return amount, validation("message must be at most %d characters", maxBidMessageLen)
	}
	return amount, nil
}

func (s *bidService) Place(ctx context.Context, taskID, helperID string, amount decimal.Decimal, message string) (*models.Bid, error) {
	message = strings.TrimSpace(message)
	amount, err := validateBid(amount, message)
	if err != nil {
		return nil, err
	}

	var bid *models.Bid
	err = s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		task, err := tx.Tasks().GetByID(ctx, taskID)
		if err != nil {
			return notFoundAs(err, ErrTaskNotFound)
		}
		if task.Status != models.TaskOpen {
			return ErrTaskNotOpen
		}
		if task.RequesterID == helperID {
			return ErrOwnTask
		}
		if err := s.consume(ctx, tx, helperID, quota.KindBidPlace, s.limits.BidsPerDay, ErrBidQuota); err != nil {
			return err
		}

		now := s.now().UTC()
		bid = &models.Bid{
			ID:        models.NewID(),
			TaskID:    taskID,
			HelperID:  helperID,
			Amount:    amount,
			Message:   message,
			Status:    models.BidPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Bids().Create(ctx, bid); err != nil {
			return err
		}

		body := fmt.Sprintf("A helper offered %s for your task %q.", amount.StringFixed(2), task.Title)
		fx.Add(notify.EmailOnly(task.RequesterID, task.ID, "New bid on your task", notify.HTML("New bid", body)))
		return nil
	})
	if err != nil {
		s.log.Warn("[bid][place] failed", logger.TaskID(taskID), logger.UserID(helperID), zap.Error(err))
		return nil, err
	}
	s.log.Info("[bid][place] bid placed", logger.BidID(bid.ID), logger.TaskID(taskID), logger.UserID(helperID))
	return bid, nil
}

// Update edits a bid in place. A rejected bid becomes pending again. An
// accepted bid is renegotiated: the task reopens, the contract is cancelled
// and the bid returns to pending with the new terms.
func (s *bidService) Update(ctx context.Context, bidID, userID string, amount decimal.Decimal, message string) (*models.Bid, error) {
	message = strings.TrimSpace(message)
	amount, err := validateBid(amount, message)
	if err != nil {
		return nil, err
	}

	var bid *models.Bid
	err = s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		b, err := tx.Bids().GetByID(ctx, bidID)
		if err != nil {
			return notFoundAs(err, ErrBidNotFound)
		}
		if b.HelperID != userID {
			return ErrNotBidOwner
		}
		eng, err := loadEngagement(ctx, tx, b.TaskID)
		if err != nil {
			return err
		}

		if b.Status == models.BidAccepted {
			if err := s.disengage(ctx, tx, eng, releaseToPending); err != nil {
				return err
			}
			msg := fmt.Sprintf("The helper renegotiated their bid on %q (now %s). The task is open again.",
				eng.task.Title, amount.StringFixed(2))
			fx.Add(notify.Notice(eng.task.RequesterID, models.NotifyWarning, eng.task.ID, msg).
				WithEmail("Bid renegotiated", notify.HTML("Bid renegotiated", msg)))
		} else if eng.task.Status != models.TaskOpen {
			return ErrTaskNotOpen
		}

		b.Status = models.BidPending
		b.Amount = amount
		b.Message = message
		b.UpdatedAt = s.now().UTC()
		if err := tx.Bids().Update(ctx, b); err != nil {
			return err
		}
		bid = b
		return nil
	})
	if err != nil {
		s.log.Warn("[bid][update] failed", logger.BidID(bidID), zap.Error(err))
		return nil, err
	}
	s.log.Info("[bid][update] bid updated", logger.BidID(bidID), logger.TaskID(bid.TaskID))
	return bid, nil
}

// Accept assigns the bidder to the task and opens a new contract at the
// bid amount. Other pending bids stay pending.
func (s *bidService) Accept(ctx context.Context, bidID, requesterID string) (*models.Contract, error) {
	var contract *models.Contract
	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		bid, err := tx.Bids().GetByID(ctx, bidID)
		if err != nil {
			return notFoundAs(err, ErrBidNotFound)
		}
		eng, err := loadEngagement(ctx, tx, bid.TaskID)
		if err != nil {
			return err
		}
		if eng.task.RequesterID != requesterID {
			return ErrNotTaskOwner
		}
		if bid.HelperID == requesterID {
			return ErrOwnTask
		}
		if bid.Status != models.BidPending {
			return ErrBidNotPending
		}
		if eng.task.Status != models.TaskOpen {
			return ErrTaskNotOpen
		}

		tr := transition{to: models.TaskAccepted, accept: bid}
		if err := applyTransition(ctx, tx, eng, tr, s.now()); err != nil {
			return err
		}
		contract = eng.contract

		msg := fmt.Sprintf("Your bid of %s on %q was accepted.", bid.Amount.StringFixed(2), eng.task.Title)
		fx.Add(notify.Notice(bid.HelperID, models.NotifySuccess, eng.task.ID, msg).
			WithEmail("Your bid was accepted", notify.HTML("Bid accepted", msg)))
		return nil
	})
	if err != nil {
		s.log.Warn("[bid][accept] failed", logger.BidID(bidID), zap.Error(err))
		return nil, err
	}
	s.log.Info("[bid][accept] bid accepted", logger.BidID(bidID), logger.ContractID(contract.ID), logger.TaskID(contract.TaskID))
	return contract, nil
}

// Reject declines a pending bid. Rejecting a rejected bid is a no-op.
func (s *bidService) Reject(ctx context.Context, bidID, requesterID string) (*models.Bid, error) {
	var bid *models.Bid
	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		b, err := tx.Bids().GetByID(ctx, bidID)
		if err != nil {
			return notFoundAs(err, ErrBidNotFound)
		}
		task, err := tx.Tasks().GetByID(ctx, b.TaskID)
		if err != nil {
			return notFoundAs(err, ErrTaskNotFound)
		}
		if task.RequesterID != requesterID {
			return ErrNotTaskOwner
		}
		bid = b
		switch b.Status {
		case models.BidAccepted:
			return ErrBidAccepted
		case models.BidRejected:
			return nil
		}

		b.Status = models.BidRejected
		b.UpdatedAt = s.now().UTC()
		if err := tx.Bids().Update(ctx, b); err != nil {
			return err
		}
		fx.Add(notify.Notice(b.HelperID, models.NotifyInfo, task.ID,
			fmt.Sprintf("Your bid on %q was declined.", task.Title)))
		return nil
	})
	if err != nil {
		s.log.Warn("[bid][reject] failed", logger.BidID(bidID), zap.Error(err))
		return nil, err
	}
	return bid, nil
}

// Withdraw deletes the caller's bid. Withdrawing the accepted bid reopens
// the task and cancels its contract first.
func (s *bidService) Withdraw(ctx context.Context, bidID, userID string) error {
	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		bid, err := tx.Bids().GetByID(ctx, bidID)
		if err != nil {
			return notFoundAs(err, ErrBidNotFound)
		}
		if bid.HelperID != userID {
			return ErrNotBidOwner
		}
		if bid.Status != models.BidAccepted {
			return tx.Bids().Delete(ctx, bid.ID)
		}

		eng, err := loadEngagement(ctx, tx, bid.TaskID)
		if err != nil {
			return err
		}
		if err := s.disengage(ctx, tx, eng, releaseDelete); err != nil {
			return err
		}
		msg := fmt.Sprintf("The assigned helper withdrew from %q. The task is open for bids again.", eng.task.Title)
		fx.Add(notify.Notice(eng.task.RequesterID, models.NotifyWarning, eng.task.ID, msg).
			WithEmail("Helper withdrew", notify.HTML("Helper withdrew", msg)))
		return nil
	})
	if err != nil {
		s.log.Warn("[bid][withdraw] failed", logger.BidID(bidID), zap.Error(err))
		return err
	}
	s.log.Info("[bid][withdraw] bid withdrawn", logger.BidID(bidID), logger.UserID(userID))
	return nil
}

// disengage reopens a task whose accepted bid is being renegotiated or
// withdrawn. Completed tasks are reopened by their requester only.
func (s *bidService) disengage(ctx context.Context, tx repositories.Store, eng *engagement, how bidRelease) error {
	switch eng.task.Status {
	case models.TaskAccepted, models.TaskInProgress, models.TaskReviewPending:
	default:
		return ErrBidLocked
	}
	return applyTransition(ctx, tx, eng, transition{to: models.TaskOpen, release: how}, s.now())
}

func (s *bidService) ListForTask(ctx context.Context, taskID string) ([]models.Bid, error) {
	if _, err := s.store.Tasks().GetByID(ctx, taskID); err != nil {
		return nil, notFoundAs(err, ErrTaskNotFound)
	}
	return s.store.Bids().ListByTask(ctx, taskID)
}

func (s *bidService) ListForHelper(ctx context.Context, helperID string) ([]models.Bid, error) {
	return s.store.Bids().ListByHelper(ctx, helperID)
}
