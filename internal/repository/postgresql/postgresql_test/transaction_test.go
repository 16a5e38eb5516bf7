package postgresql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/repository/postgresql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_RetriesTransientFailures(t *testing.T) {
	setup := setupTestDatabase(t)
	ctx := context.Background()
	tx := postgresql.NewTransactor(setup.DB, 3)

	t.Run("serialization failure is retried until attempts run out", func(t *testing.T) {
		calls := 0
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			calls++
			return &pgconn.PgError{Code: "40001"}
		})
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, leave.ErrPersistence)
		assert.True(t, postgresql.IsRetryable(err))
		assert.Equal(t, leave.CodePersistence, leave.ErrorCode(err))
	})

	t.Run("deadlock then success commits once", func(t *testing.T) {
		calls := 0
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return &pgconn.PgError{Code: "40P01"}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("domain error is returned on first attempt", func(t *testing.T) {
		calls := 0
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			calls++
			return leave.ErrOverlappingLeave
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, leave.ErrOverlappingLeave)
		assert.False(t, errors.Is(err, leave.ErrPersistence))
	})

	t.Run("non transient pg error is not retried", func(t *testing.T) {
		calls := 0
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			calls++
			return &pgconn.PgError{Code: "23505"}
		})
		assert.Equal(t, 1, calls)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "23505", pgErr.Code)
	})

	t.Run("nested unit joins the outer transaction", func(t *testing.T) {
		calls := 0
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			return tx.WithinTx(ctx, func(ctx context.Context) error {
				calls++
				return leave.ErrOverlappingLeave
			})
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, leave.ErrOverlappingLeave)
	})
}
