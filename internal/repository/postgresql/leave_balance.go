package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const balanceColumns = `b.id, b.user_id, b.leave_type, b.year,
	b.total_days, b.used_days, b.pending_days, b.carried_over,
	b.created_at, b.updated_at`

type leaveBalanceRepositoryImpl struct {
	db *database.DB
}

func NewLeaveBalanceRepository(db *database.DB) leave.LeaveBalanceRepository {
	return &leaveBalanceRepositoryImpl{db: db}
}

func scanBalance(row pgx.Row, extra ...any) (leave.LeaveBalance, error) {
	var b leave.LeaveBalance
	dest := []any{
		&b.ID, &b.UserID, &b.LeaveType, &b.Year,
		&b.TotalDays, &b.UsedDays, &b.PendingDays, &b.CarriedOver,
		&b.CreatedAt, &b.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return b, err
}

// GetOrCreate implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) GetOrCreate(ctx context.Context, key leave.BalanceKey, defaultTotal float64) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("generate balance id: %w", err)
	}

	insert := `
		INSERT INTO leave_balances (id, user_id, leave_type, year, total_days, used_days, pending_days, carried_over)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0)
		ON CONFLICT (user_id, leave_type, year) DO NOTHING
	`
	if _, err := q.Exec(ctx, insert, id.String(), key.UserID, key.LeaveType, key.Year, defaultTotal); err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("create leave balance: %w", err)
	}

	query := `SELECT ` + balanceColumns + ` FROM leave_balances b
		WHERE b.user_id = $1 AND b.leave_type = $2 AND b.year = $3`

	balance, err := scanBalance(q.QueryRow(ctx, query, key.UserID, key.LeaveType, key.Year))
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("get leave balance: %w", err)
	}
	return balance, nil
}

// GetForUpdate implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) GetForUpdate(ctx context.Context, key leave.BalanceKey) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + balanceColumns + ` FROM leave_balances b
		WHERE b.user_id = $1 AND b.leave_type = $2 AND b.year = $3
		FOR UPDATE`

	balance, err := scanBalance(q.QueryRow(ctx, query, key.UserID, key.LeaveType, key.Year))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveBalance{}, leave.ErrBalanceNotFound
		}
		return leave.LeaveBalance{}, fmt.Errorf("lock leave balance: %w", err)
	}
	return balance, nil
}

// ListByUserYear implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) ListByUserYear(ctx context.Context, userID string, year int) ([]leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + balanceColumns + ` FROM leave_balances b
		WHERE b.user_id = $1 AND b.year = $2
		ORDER BY b.leave_type`

	rows, err := q.Query(ctx, query, userID, year)
	if err != nil {
		return nil, fmt.Errorf("list leave balances: %w", err)
	}
	defer rows.Close()

	balances := make([]leave.LeaveBalance, 0)
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}

	return balances, rows.Err()
}

// SetAllotment implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) SetAllotment(ctx context.Context, key leave.BalanceKey, totalDays, carriedOver float64) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("generate balance id: %w", err)
	}

	// The conflict update is skipped when the new allotment would not cover
	// days already used or reserved, which surfaces as no returned row.
	query := `
		INSERT INTO leave_balances AS b (id, user_id, leave_type, year, total_days, used_days, pending_days, carried_over)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6)
		ON CONFLICT (user_id, leave_type, year) DO UPDATE
		SET total_days = EXCLUDED.total_days,
			carried_over = EXCLUDED.carried_over,
			updated_at = NOW()
		WHERE b.used_days + b.pending_days <= EXCLUDED.total_days + EXCLUDED.carried_over
		RETURNING ` + balanceColumns

	balance, err := scanBalance(q.QueryRow(ctx, query, id.String(), key.UserID, key.LeaveType, key.Year, totalDays, carriedOver))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveBalance{}, leave.ErrAllotmentBelowCommitted
		}
		return leave.LeaveBalance{}, fmt.Errorf("set leave allotment: %w", err)
	}
	return balance, nil
}

// AddPending implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) AddPending(ctx context.Context, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	query := `
		UPDATE leave_balances b
		SET pending_days = b.pending_days + $4, updated_at = NOW()
		WHERE b.user_id = $1 AND b.leave_type = $2 AND b.year = $3
		RETURNING ` + balanceColumns + `, false`

	return r.mutate(ctx, "add pending days", query, key, days)
}

// RemovePending implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) RemovePending(ctx context.Context, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	query := `
		WITH prev AS (
			SELECT id, pending_days FROM leave_balances
			WHERE user_id = $1 AND leave_type = $2 AND year = $3
			FOR UPDATE
		)
		UPDATE leave_balances b
		SET pending_days = GREATEST(b.pending_days - $4, 0), updated_at = NOW()
		FROM prev
		WHERE b.id = prev.id
		RETURNING ` + balanceColumns + `, prev.pending_days < $4`

	return r.mutate(ctx, "remove pending days", query, key, days)
}

// ApprovePending implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) ApprovePending(ctx context.Context, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	query := `
		WITH prev AS (
			SELECT id, pending_days FROM leave_balances
			WHERE user_id = $1 AND leave_type = $2 AND year = $3
			FOR UPDATE
		)
		UPDATE leave_balances b
		SET pending_days = GREATEST(b.pending_days - $4, 0),
			used_days = b.used_days + $4,
			updated_at = NOW()
		FROM prev
		WHERE b.id = prev.id
		RETURNING ` + balanceColumns + `, prev.pending_days < $4`

	return r.mutate(ctx, "approve pending days", query, key, days)
}

// ReleaseUsed implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) ReleaseUsed(ctx context.Context, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	query := `
		WITH prev AS (
			SELECT id, used_days FROM leave_balances
			WHERE user_id = $1 AND leave_type = $2 AND year = $3
			FOR UPDATE
		)
		UPDATE leave_balances b
		SET used_days = GREATEST(b.used_days - $4, 0), updated_at = NOW()
		FROM prev
		WHERE b.id = prev.id
		RETURNING ` + balanceColumns + `, prev.used_days < $4`

	return r.mutate(ctx, "release used days", query, key, days)
}

func (r *leaveBalanceRepositoryImpl) mutate(ctx context.Context, op, query string, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	q := GetQuerier(ctx, r.db)

	var clamped bool
	balance, err := scanBalance(q.QueryRow(ctx, query, key.UserID, key.LeaveType, key.Year, days), &clamped)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.BalanceMutation{}, nil
		}
		return leave.BalanceMutation{}, fmt.Errorf("%s: %w", op, err)
	}

	return leave.BalanceMutation{Applied: true, Clamped: clamped, Balance: balance}, nil
}
