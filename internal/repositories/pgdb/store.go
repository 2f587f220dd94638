// Package pgdb is the PostgreSQL store.
package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"helpfinder/internal/repositories"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Store struct {
	db  *sql.DB
	q   dbtx
	sb  squirrel.StatementBuilderType
	inT bool
}

var _ repositories.Store = (*Store)(nil)

func Open(dsn string, maxOpenConns int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{
		db: db,
		q:  db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (s *Store) base() base { return base{q: s.q, sb: s.sb} }

func (s *Store) Users() repositories.UserRepository                 { return &userRepo{s.base()} }
func (s *Store) Tasks() repositories.TaskRepository                 { return &taskRepo{s.base()} }
func (s *Store) Bids() repositories.BidRepository                   { return &bidRepo{s.base()} }
func (s *Store) Contracts() repositories.ContractRepository         { return &contractRepo{s.base()} }
func (s *Store) Notifications() repositories.NotificationRepository { return &notificationRepo{s.base()} }
func (s *Store) Reviews() repositories.ReviewRepository             { return &reviewRepo{s.base()} }
func (s *Store) Messages() repositories.MessageRepository           { return &messageRepo{s.base()} }
func (s *Store) TelegramLinks() repositories.TelegramLinkRepository { return &telegramLinkRepo{s.base()} }
func (s *Store) Quotas() repositories.QuotaRepository               { return &quotaRepo{s.base()} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.inT {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, sb: s.sb, inT: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error {
	if s.inT || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// base carries the query target and builder shared by every repository.
type base struct {
	q  dbtx
	sb squirrel.StatementBuilderType
}

func (b base) queryRow(ctx context.Context, qb squirrel.Sqlizer) (*sql.Row, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	return b.q.QueryRowContext(ctx, query, args...), nil
}

func (b base) query(ctx context.Context, qb squirrel.Sqlizer) (*sql.Rows, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	return b.q.QueryContext(ctx, query, args...)
}

func (b base) exec(ctx context.Context, qb squirrel.Sqlizer) (int64, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := b.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// execOne expects exactly one affected row.
func (b base) execOne(ctx context.Context, qb squirrel.Sqlizer) error {
	n, err := b.exec(ctx, qb)
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

const uniqueViolation = "23505"

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repositories.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repositories.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// validID filters ids that Postgres would reject as malformed uuids; such
// ids cannot name a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
