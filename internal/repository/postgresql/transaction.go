package postgresql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type txKey struct{}

// WithTransaction executes fn inside a database transaction
func WithTransaction(ctx context.Context, db *database.DB, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.Error("rollback error during panic recovery", "error", rbErr)
			}
			panic(p)
		}
	}()

	// Execute function
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetQuerier returns either transaction or pool
// Used in repositories to support both transactional and non-transactional operations
func GetQuerier(ctx context.Context, db *database.DB) database.Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.Pool
}

// Retryable SQLSTATE codes: serialization_failure, deadlock_detected, lock_not_available.
var retryableCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
}

// IsRetryable reports whether err is a transient lock or serialization failure.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableCodes[pgErr.Code]
	}
	return false
}

type Transactor struct {
	db          *database.DB
	maxAttempts int
	backoff     time.Duration
}

func NewTransactor(db *database.DB, maxAttempts int) *Transactor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Transactor{db: db, maxAttempts: maxAttempts, backoff: 50 * time.Millisecond}
}

// WithinTx runs fn in a transaction and retries the whole unit on transient
// lock failures. Business-rule failures are returned on the first attempt.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	var err error
	delay := t.backoff
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		err = WithTransaction(ctx, t.db, func(tx pgx.Tx) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
		if err == nil || !IsRetryable(err) {
			return err
		}

		slog.Warn("Retrying leave transaction", "attempt", attempt, "max_attempts", t.maxAttempts, "error", err)
		if attempt == t.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", leave.ErrPersistence, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%w: transaction failed after %d attempts: %w", leave.ErrPersistence, t.maxAttempts, err)
}
