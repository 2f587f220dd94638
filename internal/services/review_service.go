package services

import (
	"context"
	"errors"
	"fmt"
	"strings"


	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/notify"
	"helpfinder/internal/repositories"
)

type ReviewService interface {
	Rate(ctx context.Context, taskID, raterID string, score int, comment string) (*models.Review, error)
	ListForUser(ctx context.Context, userID string) (*models.ReviewSummary, error)
}

type reviewService struct {
	*engine
}

func NewReviewService(d Deps) ReviewService {
	return &reviewService{engine: newEngine(d)}
}

// Rate lets either party of a completed task rate the other once.
func (s *reviewService) Rate(ctx context.Context, taskID, raterID string, score int, comment string) (*models.Review, error) {
	if score < 1 || score > 5 {
		return nil, validation("score must be between 1 and 5")
	}
	var review *models.Review
	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		eng, err := loadEngagement(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if eng.task.Status != models.TaskCompleted || eng.contract == nil {
			return ErrTaskNotCompleted
		}

		var subject string
		switch raterID {
		case eng.task.RequesterID:
			subject = eng.contract.HelperID
		case eng.contract.HelperID:
			subject = eng.task.RequesterID
		default:
			return ErrNotParticipant
		}

		review = &models.Review{
			ID:        models.NewID(),
			TaskID:    taskID,
			AuthorID:  raterID,
			SubjectID: subject,
			Score:     score,
			Comment:   strings.TrimSpace(comment),
			CreatedAt: s.now().UTC(),
		}
		if err := tx.Reviews().Create(ctx, review); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrAlreadyReviewed
			}
			return err
		}
		fx.Add(notify.Notice(subject, models.NotifyInfo, taskID,
			fmt.Sprintf("You received a %d-star review for %q.", score, eng.task.Title)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[review][rate] review stored", logger.TaskID(taskID), logger.UserID(raterID))
	return review, nil
}

func (s *reviewService) ListForUser(ctx context.Context, userID string) (*models.ReviewSummary, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}
	reviews, err := s.store.Reviews().ListForSubject(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := &models.ReviewSummary{UserID: userID, Count: len(reviews), Reviews: reviews}
	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Score
		}
		sum.Average = float64(total) / float64(len(reviews))
	}
	return sum, nil
}
