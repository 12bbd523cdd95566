package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

var (
	// ErrNotFound indicates the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStale indicates a compare-and-swap lost to a concurrent writer.
	ErrStale = errors.New("stale revision")
	// ErrDuplicate indicates an insert hit a primary key or unique index.
	ErrDuplicate = errors.New("duplicate key")
)

// Store is the SQLite-backed household state store. Every mutation goes
// through InTx so that it commits or rolls back as one unit.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for maintenance tasks such as backups.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Tx is one open write transaction.
type Tx struct {
	tx *sql.Tx
}

// InTx runs fn inside a transaction, committing if fn returns nil.
// Context cancellation rolls the transaction back.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RetryOnStale re-runs fn while it fails with ErrStale, up to attempts times
// in total. When the attempts run out the last ErrStale is returned.
func RetryOnStale(ctx context.Context, attempts uint64, fn func(context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(2*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrStale) {
			return retry.RetryableError(err)
		}
		return err
	})
}

type scanner interface {
	Scan(...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// insertErr maps uniqueness violations to ErrDuplicate.
func insertErr(op string, err error) error {
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// casErr turns a zero-row conditional update into ErrStale or ErrNotFound,
// depending on whether the row still exists.
func (t *Tx) casErr(ctx context.Context, res sql.Result, existsQuery string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	var one int
	err = t.tx.QueryRowContext(ctx, existsQuery, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check row exists: %w", err)
	}
	return ErrStale
}
