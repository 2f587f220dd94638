package services

import (
	"context"
	"errors"
	"fmt"
	"strings"


	"helpfinder/internal/models"
	"helpfinder/internal/notify"
	"helpfinder/internal/repositories"
)

const maxMessageLen = 2000

// ChatService carries messages between a task's requester and its
// contracted helper. A cancelled task keeps its history read-only.
type ChatService interface {
	Send(ctx context.Context, taskID, senderID, text string) (*models.ChatMessage, error)
	List(ctx context.Context, taskID, userID string, limit, offset int) ([]models.ChatMessage, error)
}

type chatService struct {
	*engine
}

func NewChatService(d Deps) ChatService {
	return &chatService{engine: newEngine(d)}
}

func (s *chatService) Send(ctx context.Context, taskID, senderID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validation("message text is required")
	}
	if len(text) > maxMessageLen {
		return nil, validation("message must be at most %d characters", maxMessageLen)
	}

	var msg *models.ChatMessage
	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		eng, err := loadEngagement(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if eng.task.Status == models.TaskCancelled || eng.contract == nil {
			return ErrChatClosed
		}
		var recipient string
		switch senderID {
		case eng.task.RequesterID:
			recipient = eng.contract.HelperID
		case eng.contract.HelperID:
			recipient = eng.task.RequesterID
		default:
			return ErrNotParticipant
		}

		msg = &models.ChatMessage{
			ID:        models.NewID(),
			TaskID:    taskID,
			SenderID:  senderID,
			Text:      text,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}
		fx.Add(notify.Notice(recipient, models.NotifyInfo, taskID,
			fmt.Sprintf("New message about %q.", eng.task.Title)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *chatService) List(ctx context.Context, taskID, userID string, limit, offset int) ([]models.ChatMessage, error) {
	task, err := s.store.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundAs(err, ErrTaskNotFound)
	}
	helper, err := s.chatHelper(ctx, task)
	if err != nil {
		return nil, err
	}
	if userID != task.RequesterID && userID != helper {
		return nil, ErrNotParticipant
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Messages().ListByTask(ctx, taskID, limit, offset)
}

// chatHelper is the helper of the current contract, or of the last one for
// a cancelled task.
func (s *chatService) chatHelper(ctx context.Context, task *models.Task) (string, error) {
	c, err := s.store.Contracts().FindCurrent(ctx, task.ID)
	if err == nil {
		return c.HelperID, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return "", err
	}
	if task.Status == models.TaskCancelled {
		history, err := s.store.Contracts().ListByTask(ctx, task.ID)
		if err != nil {
			return "", err
		}
		if len(history) > 0 {
			return history[0].HelperID, nil
		}
	}
	return "", ErrChatClosed
}
