package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

type delivery struct {
	userID  string
	email   string
	subject string
	html    string
	chatID  int64
	text    string
}

// Hub stores in-app notifications synchronously and hands email and
// Telegram deliveries to a bounded worker pool.
type Hub struct {
	store     repositories.Store
	mailer    Mailer
	messenger Messenger
	log       *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	jobs   chan delivery
	wg     sync.WaitGroup
}

var _ Dispatcher = (*Hub)(nil)

// NewHub starts workers goroutines. messenger may be nil.
func NewHub(store repositories.Store, mailer Mailer, messenger Messenger, workers, queueSize int, log *zap.Logger) *Hub {
	if workers <= 0 {
		workers = 1
	}
	h := &Hub{
		store:     store,
		mailer:    mailer,
		messenger: messenger,
		log:       logger.OrNop(log),
		now:       time.Now,
		jobs:      make(chan delivery, queueSize),
	}
	for i := 1; i <= workers; i++ {
		h.wg.Add(1)
		go h.worker(i)
	}
	return h
}

func (h *Hub) Dispatch(ctx context.Context, effects []Effect) {
	ctx = context.WithoutCancel(ctx)
	for _, e := range effects {
		h.dispatchOne(ctx, e)
	}
}

func (h *Hub) dispatchOne(ctx context.Context, e Effect) {
	if e.Message != "" {
		n := &models.Notification{
			ID:         models.NewID(),
			UserID:     e.UserID,
			Message:    e.Message,
			Type:       e.Type,
			ResourceID: e.ResourceID,
			CreatedAt:  h.now().UTC(),
		}
		if err := h.store.Notifications().Create(ctx, n); err != nil {
			h.log.Warn("[notify][store] failed", logger.UserID(e.UserID), zap.Error(err))
		}
	}

	wantEmail := e.Subject != "" && h.mailer != nil
	wantChat := e.Message != "" && h.messenger != nil
	if !wantEmail && !wantChat {
		return
	}

	u, err := h.store.Users().GetByID(ctx, e.UserID)
	if err != nil {
		h.log.Warn("[notify][lookup] user not found", logger.UserID(e.UserID), zap.Error(err))
		return
	}
	d := delivery{userID: u.ID}
	if wantEmail {
		d.email, d.subject, d.html = u.Email, e.Subject, e.HTML
	}
	if wantChat && u.TelegramChatID != nil {
		d.chatID, d.text = *u.TelegramChatID, e.Message
	}
	if d.email == "" && d.chatID == 0 {
		return
	}
	h.enqueue(d)
}

func (h *Hub) enqueue(d delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.log.Warn("[notify][queue] hub closed, dropping", logger.UserID(d.userID))
		return
	}
	select {
	case h.jobs <- d:
	default:
		h.log.Warn("[notify][queue] full, dropping", logger.UserID(d.userID))
	}
}

func (h *Hub) worker(id int) {
	defer h.wg.Done()
	for d := range h.jobs {
		if d.email != "" {
			if err := h.mailer.Send(d.email, d.subject, d.html); err != nil {
				h.log.Warn("[notify][email] failed", zap.Int("worker", id), logger.UserID(d.userID), zap.Error(err))
			}
		}
		if d.chatID != 0 {
			if err := h.messenger.Send(d.chatID, d.text); err != nil {
				h.log.Warn("[notify][telegram] failed", zap.Int("worker", id), logger.UserID(d.userID), zap.Error(err))
			}
		}
	}
}

// Close stops accepting deliveries and waits for queued ones to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.jobs)
	h.mu.Unlock()
	h.wg.Wait()
}
