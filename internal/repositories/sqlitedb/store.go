// Package sqlitedb is the gorm-backed store used for local development and tests.
package sqlitedb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

type quotaRow struct {
	UserID      string `gorm:"primaryKey;size:36"`
	Kind        string `gorm:"primaryKey;size:20"`
	Count       int
	WindowStart time.Time
}

func (quotaRow) TableName() string { return "user_quotas" }

type telegramLinkRow struct {
	Code      string `gorm:"primaryKey;size:32"`
	UserID    string `gorm:"size:36;index;not null"`
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (telegramLinkRow) TableName() string { return "telegram_links" }

type Store struct {
	db   *gorm.DB
	inTx bool
}

var _ repositories.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema. SQLite allows a single
// writer, so the pool is capped at one connection.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.Bid{},
		&models.Contract{},
		&models.Notification{},
		&models.Review{},
		&models.ChatMessage{},
		&telegramLinkRow{},
		&quotaRow{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (s *Store) Users() repositories.UserRepository                 { return &userRepo{db: s.db} }
func (s *Store) Tasks() repositories.TaskRepository                 { return &taskRepo{db: s.db} }
func (s *Store) Bids() repositories.BidRepository                   { return &bidRepo{db: s.db} }
func (s *Store) Contracts() repositories.ContractRepository         { return &contractRepo{db: s.db} }
func (s *Store) Notifications() repositories.NotificationRepository { return &notificationRepo{db: s.db} }
func (s *Store) Reviews() repositories.ReviewRepository             { return &reviewRepo{db: s.db} }
func (s *Store) Messages() repositories.MessageRepository           { return &messageRepo{db: s.db} }
func (s *Store) TelegramLinks() repositories.TelegramLinkRepository { return &telegramLinkRepo{db: s.db} }
func (s *Store) Quotas() repositories.QuotaRepository               { return &quotaRepo{db: s.db} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicate
	}
	return err
}

func requireAffected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// OpenMemory returns a private in-memory database, one per call.
func OpenMemory() (*Store, error) {
	return Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}
