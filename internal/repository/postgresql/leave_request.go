package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, user_id, leave_type, start_date, end_date, half_day,
	days_requested, reason, status,
	approved_by, approved_at, rejection_reason, cancelled_by, cancelled_at,
	created_at, updated_at`

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

func scanRequest(row pgx.Row) (leave.LeaveRequest, error) {
	var req leave.LeaveRequest
	err := row.Scan(
		&req.ID, &req.UserID, &req.LeaveType, &req.StartDate, &req.EndDate, &req.HalfDay,
		&req.DaysRequested, &req.Reason, &req.Status,
		&req.ApprovedBy, &req.ApprovedAt, &req.RejectionReason, &req.CancelledBy, &req.CancelledAt,
		&req.CreatedAt, &req.UpdatedAt,
	)
	return req, err
}

func collectRequests(rows pgx.Rows) ([]leave.LeaveRequest, error) {
	defer rows.Close()

	requests := make([]leave.LeaveRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Create implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) Create(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_requests (
			id, user_id, leave_type, start_date, end_date, half_day,
			days_requested, reason, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING ` + requestColumns

	created, err := scanRequest(q.QueryRow(ctx, query,
		request.ID, request.UserID, request.LeaveType, request.StartDate, request.EndDate, request.HalfDay,
		request.DaysRequested, request.Reason, request.Status, request.CreatedAt,
	))
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("create leave request: %w", err)
	}
	return created, nil
}

// GetByID implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.getByID(ctx, id, "")
}

// GetByIDForUpdate implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.getByID(ctx, id, "FOR UPDATE")
}

func (r *leaveRequestRepositoryImpl) getByID(ctx context.Context, id, lock string) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = $1 ` + lock

	req, err := scanRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
		}
		return leave.LeaveRequest{}, fmt.Errorf("get leave request: %w", err)
	}
	return req, nil
}

// UpdateStatus implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) UpdateStatus(ctx context.Context, change leave.StatusChange) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	args := []any{change.ID, change.To, change.ActorID, change.At, change.From}

	var set string
	switch change.To {
	case leave.StatusApproved:
		set = "approved_by = $3, approved_at = $4"
	case leave.StatusRejected:
		set = "approved_by = $3, approved_at = $4, rejection_reason = $6"
		args = append(args, change.Reason)
	case leave.StatusCancelled:
		set = "cancelled_by = $3, cancelled_at = $4"
	default:
		return leave.LeaveRequest{}, leave.ErrInvalidStatus
	}

	query := `
		UPDATE leave_requests
		SET status = $2, ` + set + `, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + requestColumns

	updated, err := scanRequest(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveRequest{}, leave.ErrLeaveAlreadyProcessed
		}
		return leave.LeaveRequest{}, fmt.Errorf("update leave request status: %w", err)
	}
	return updated, nil
}

// HasOverlap implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) HasOverlap(ctx context.Context, query leave.OverlapQuery) (bool, error) {
	q := GetQuerier(ctx, r.db)

	sql := `
		SELECT EXISTS (
			SELECT 1
			FROM leave_requests
			WHERE user_id = $1
			AND start_date <= $3
			AND end_date >= $2
			AND status <> 'rejected'
			AND ($4 OR status <> 'cancelled')
			AND ($5 = '' OR id <> $5)
		)
	`

	var exists bool
	err := q.QueryRow(ctx, sql, query.UserID, query.Start, query.End, query.IncludeCancelled, query.ExcludeRequestID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check overlapping leave: %w", err)
	}
	return exists, nil
}

// ListByUser implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListByUser(ctx context.Context, userID string, status *leave.Status) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM leave_requests
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY start_date DESC, created_at DESC`

	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}

	rows, err := q.Query(ctx, query, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return collectRequests(rows)
}

// ListByStatus implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListByStatus(ctx context.Context, status leave.Status, excludeUserID string) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM leave_requests
		WHERE status = $1 AND ($2 = '' OR user_id <> $2)
		ORDER BY created_at ASC`

	rows, err := q.Query(ctx, query, status, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("list leave requests by status: %w", err)
	}
	return collectRequests(rows)
}

// LockUser implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) LockUser(ctx context.Context, userID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('leave_requests:' || $1))`, userID); err != nil {
		return fmt.Errorf("lock user leave requests: %w", err)
	}
	return nil
}
