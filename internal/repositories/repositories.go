package repositories

import (
	"context"
	"errors"
	"time"

	"helpfinder/internal/models"
	"helpfinder/internal/quota"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrDuplicate       = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
}

// TaskRepository.Update is a compare-and-swap on Task.Version: it fails with
// ErrVersionConflict when the stored version differs and bumps the version
// on success.
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
}

type BidRepository interface {
	Create(ctx context.Context, b *models.Bid) error
	GetByID(ctx context.Context, id string) (*models.Bid, error)
	Update(ctx context.Context, b *models.Bid) error
	Delete(ctx context.Context, id string) error
	DeleteByTask(ctx context.Context, taskID string) error
	// ListByTask orders by amount ascending, oldest first on ties.
	ListByTask(ctx context.Context, taskID string) ([]models.Bid, error)
	ListByHelper(ctx context.Context, helperID string) ([]models.Bid, error)
	CountActive(ctx context.Context, taskID string) (int, error)
	FindAccepted(ctx context.Context, taskID string) (*models.Bid, error)
}

type ContractRepository interface {
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id string) (*models.Contract, error)
	Update(ctx context.Context, c *models.Contract) error
	// FindCurrent returns the newest non-cancelled contract of a task.
	FindCurrent(ctx context.Context, taskID string) (*models.Contract, error)
	ListByTask(ctx context.Context, taskID string) ([]models.Contract, error)
	ListByHelper(ctx context.Context, helperID string) ([]models.Contract, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type ReviewRepository interface {
	Create(ctx context.Context, r *models.Review) error
	ListForSubject(ctx context.Context, subjectID string) ([]models.Review, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.ChatMessage) error
	ListByTask(ctx context.Context, taskID string, limit, offset int) ([]models.ChatMessage, error)
}

type TelegramLink struct {
	Code      string
	UserID    string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

type TelegramLinkRepository interface {
	Create(ctx context.Context, l *TelegramLink) error
	// GetByCode locks the row for the rest of the transaction.
	GetByCode(ctx context.Context, code string) (*TelegramLink, error)
	MarkUsed(ctx context.Context, code string) error
}

// QuotaRepository persists daily counters; Load locks the row.
type QuotaRepository interface {
	quota.Counters
}

// Store groups the repositories over one connection or one transaction.
type Store interface {
	Users() UserRepository
	Tasks() TaskRepository
	Bids() BidRepository
	Contracts() ContractRepository
	Notifications() NotificationRepository
	Reviews() ReviewRepository
	Messages() MessageRepository
	TelegramLinks() TelegramLinkRepository
	Quotas() QuotaRepository

	// WithinTx runs fn against a transactional Store. fn's error rolls back.
	// Calling WithinTx on a transactional Store reuses the transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}
