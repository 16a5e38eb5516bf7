package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/google/uuid"
)

// Policy holds the configurable leave rules.
type Policy struct {
	DayCount               leave.DayCountPolicy
	CancelledBlocksOverlap bool
}

// RequestService runs each request transition as one unit of work.
type RequestService struct {
	tx       leave.Transactor
	requests leave.LeaveRequestRepository
	users    user.UserRepository
	balances *BalanceService
	policy   Policy
	now      func() time.Time
}

func NewRequestService(
	tx leave.Transactor,
	requests leave.LeaveRequestRepository,
	users user.UserRepository,
	balances *BalanceService,
	policy Policy,
) *RequestService {
	if policy.DayCount == "" {
		policy.DayCount = leave.DayCountCalendar
	}
	return &RequestService{
		tx:       tx,
		requests: requests,
		users:    users,
		balances: balances,
		policy:   policy,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for "today" and audit timestamps.
func (r *RequestService) SetClock(now func() time.Time) {
	r.now = now
}

func (r *RequestService) today() time.Time {
	return leave.DateOnly(r.now().UTC())
}

func userLookupError(err, notFound error) error {
	if errors.Is(err, user.ErrUserNotFound) {
		return notFound
	}
	return fmt.Errorf("lookup user: %w", err)
}

// Submit validates the request, then reserves its days and stores it.
func (r *RequestService) Submit(ctx context.Context, req leave.SubmitLeaveRequest) (leave.LeaveRequest, leave.LeaveBalance, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequest{}, leave.LeaveBalance{}, err
	}

	requester, err := r.users.GetByID(ctx, req.UserID)
	if err != nil {
		return leave.LeaveRequest{}, leave.LeaveBalance{}, userLookupError(err, leave.ErrUnknownUser)
	}
	if requester.IsInactive() {
		return leave.LeaveRequest{}, leave.LeaveBalance{}, leave.ErrInactiveUser
	}
	if !r.balances.allowances.Known(req.LeaveType) {
		return leave.LeaveRequest{}, leave.LeaveBalance{}, leave.ErrUnknownLeaveType
	}

	start, end, days, err := r.validateDates(req.StartDate, req.EndDate, req.HalfDay)
	if err != nil {
		return leave.LeaveRequest{}, leave.LeaveBalance{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return leave.LeaveRequest{}, leave.LeaveBalance{}, fmt.Errorf("generate request id: %w", err)
	}

	now := r.now().UTC()
	newRequest := leave.LeaveRequest{
		ID:            id.String(),
		UserID:        req.UserID,
		LeaveType:     req.LeaveType,
		StartDate:     start,
		EndDate:       end,
		HalfDay:       req.HalfDay && start.Equal(end),
		DaysRequested: days,
		Reason:        req.Reason,
		Status:        leave.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var (
		created leave.LeaveRequest
		balance leave.LeaveBalance
	)
	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.requests.LockUser(ctx, req.UserID); err != nil {
			return err
		}

		overlap, err := r.requests.HasOverlap(ctx, leave.OverlapQuery{
			UserID:           req.UserID,
			Start:            start,
			End:              end,
			IncludeCancelled: r.policy.CancelledBlocksOverlap,
		})
		if err != nil {
			return err
		}
		if overlap {
			return leave.ErrOverlappingLeave
		}

		current, err := r.balances.Lock(ctx, newRequest.BalanceKey())
		if err != nil {
			return err
		}
		if !current.HasEnoughBalance(days) {
			return &leave.InsufficientBalanceError{Available: current.Available(), Requested: days}
		}

		created, err = r.requests.Create(ctx, newRequest)
		if err != nil {
			return err
		}

		balance, err = r.balances.Reserve(ctx, created.BalanceKey(), days)
		return err
	})
	if err != nil {
		return leave.LeaveRequest{}, leave.LeaveBalance{}, err
	}

	slog.Info("Leave request submitted", "request_id", created.ID, "user_id", created.UserID,
		"leave_type", created.LeaveType, "days", days)
	return created, balance, nil
}

// validateDates parses the range, checks it against today and counts it
// under the configured policy.
func (r *RequestService) validateDates(startDate, endDate string, halfDay bool) (time.Time, time.Time, float64, error) {
	start, err := leave.ParseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	end, err := leave.ParseDate(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}

	if start.Before(r.today()) {
		return time.Time{}, time.Time{}, 0, leave.ErrStartInPast
	}

	days, err := r.policy.DayCount.Count(start, end, halfDay)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	if days <= 0 {
		return time.Time{}, time.Time{}, 0, leave.ErrNoWorkingDays
	}
	return start, end, days, nil
}

// PreviewDays counts a range under both policies without touching any store.
func (r *RequestService) PreviewDays(req leave.DayPreviewRequest) (leave.DayPreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.DayPreviewResponse{}, err
	}
	start, err := leave.ParseDate(req.StartDate)
	if err != nil {
		return leave.DayPreviewResponse{}, err
	}
	end, err := leave.ParseDate(req.EndDate)
	if err != nil {
		return leave.DayPreviewResponse{}, err
	}

	calendar, err := leave.CalendarDays(start, end, req.HalfDay)
	if err != nil {
		return leave.DayPreviewResponse{}, err
	}
	business, err := leave.BusinessDays(start, end, req.HalfDay)
	if err != nil {
		return leave.DayPreviewResponse{}, err
	}

	days := calendar
	if r.policy.DayCount == leave.DayCountBusiness {
		days = business
	}
	return leave.DayPreviewResponse{
		Days:         days,
		Policy:       r.policy.DayCount,
		CalendarDays: calendar,
		BusinessDays: business,
	}, nil
}

// requireApprover loads approverID and checks it may decide on request.
func (r *RequestService) requireApprover(ctx context.Context, approverID string, request leave.LeaveRequest) error {
	approver, err := r.users.GetByID(ctx, approverID)
	if err != nil {
		return userLookupError(err, leave.ErrApproverNotManager)
	}
	if !approver.CanApprove() {
		return leave.ErrApproverNotManager
	}
	if approver.ID == request.UserID {
		return leave.ErrSelfApproval
	}
	return nil
}

// Approve moves a pending request to approved and its days from pending to used.
func (r *RequestService) Approve(ctx context.Context, requestID, approverID string) (leave.LeaveRequest, error) {
	return r.decide(ctx, requestID, approverID, leave.StatusApproved, nil)
}

// Reject moves a pending request to rejected and releases its reserved days.
func (r *RequestService) Reject(ctx context.Context, requestID, approverID, reason string) (leave.LeaveRequest, error) {
	return r.decide(ctx, requestID, approverID, leave.StatusRejected, &reason)
}

func (r *RequestService) decide(ctx context.Context, requestID, approverID string, to leave.Status, reason *string) (leave.LeaveRequest, error) {
	var updated leave.LeaveRequest
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err := r.requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !request.IsPending() {
			return leave.ErrLeaveAlreadyProcessed
		}
		if err := r.requireApprover(ctx, approverID, request); err != nil {
			return err
		}

		updated, err = r.requests.UpdateStatus(ctx, leave.StatusChange{
			ID:      request.ID,
			From:    leave.StatusPending,
			To:      to,
			ActorID: approverID,
			At:      r.now().UTC(),
			Reason:  reason,
		})
		if err != nil {
			return err
		}

		if to == leave.StatusApproved {
			_, err = r.balances.Consume(ctx, request.BalanceKey(), request.DaysRequested, request.ID)
		} else {
			_, err = r.balances.Release(ctx, request.BalanceKey(), request.DaysRequested, request.ID)
		}
		return err
	})
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	slog.Info("Leave request decided", "request_id", updated.ID, "status", updated.Status, "approver_id", approverID)
	return updated, nil
}

// Cancel lets the owner withdraw a pending request.
func (r *RequestService) Cancel(ctx context.Context, requestID, userID string) (leave.LeaveRequest, error) {
	var updated leave.LeaveRequest
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err := r.requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if request.UserID != userID {
			return leave.ErrNotRequestOwner
		}
		if !request.IsPending() {
			return leave.ErrLeaveAlreadyProcessed
		}

		updated, err = r.requests.UpdateStatus(ctx, leave.StatusChange{
			ID:      request.ID,
			From:    leave.StatusPending,
			To:      leave.StatusCancelled,
			ActorID: userID,
			At:      r.now().UTC(),
		})
		if err != nil {
			return err
		}

		_, err = r.balances.Release(ctx, request.BalanceKey(), request.DaysRequested, request.ID)
		return err
	})
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	slog.Info("Leave request cancelled", "request_id", updated.ID, "user_id", userID)
	return updated, nil
}

// CancelApproved withdraws approved leave that has not started yet and
// returns its used days. The owner or any manager may do this.
func (r *RequestService) CancelApproved(ctx context.Context, requestID, actorID string) (leave.LeaveRequest, error) {
	var updated leave.LeaveRequest
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err := r.requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		if request.UserID != actorID {
			actor, err := r.users.GetByID(ctx, actorID)
			if err != nil {
				return userLookupError(err, leave.ErrCancelNotAllowed)
			}
			if !actor.CanApprove() {
				return leave.ErrCancelNotAllowed
			}
		}

		if request.Status != leave.StatusApproved {
			return leave.ErrLeaveAlreadyProcessed
		}
		if !request.CanTransitionTo(leave.StatusCancelled, r.today()) {
			return leave.ErrLeaveAlreadyStarted
		}

		updated, err = r.requests.UpdateStatus(ctx, leave.StatusChange{
			ID:      request.ID,
			From:    leave.StatusApproved,
			To:      leave.StatusCancelled,
			ActorID: actorID,
			At:      r.now().UTC(),
		})
		if err != nil {
			return err
		}

		_, err = r.balances.Restore(ctx, request.BalanceKey(), request.DaysRequested, request.ID)
		return err
	})
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	slog.Info("Approved leave cancelled", "request_id", updated.ID, "actor_id", actorID)
	return updated, nil
}

func (r *RequestService) ListForUser(ctx context.Context, userID string, status *leave.Status) ([]leave.LeaveRequest, error) {
	return r.requests.ListByUser(ctx, userID, status)
}

// ListPendingForApprover lists requests awaiting a decision, excluding the
// approver's own.
func (r *RequestService) ListPendingForApprover(ctx context.Context, approverID string) ([]leave.LeaveRequest, error) {
	approver, err := r.users.GetByID(ctx, approverID)
	if err != nil {
		return nil, userLookupError(err, leave.ErrApproverNotManager)
	}
	if !approver.CanApprove() {
		return nil, leave.ErrApproverNotManager
	}
	return r.requests.ListByStatus(ctx, leave.StatusPending, approverID)
}
