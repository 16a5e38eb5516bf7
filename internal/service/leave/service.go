package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/notification"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/validator"
)

const retryMessage = "Leave service is temporarily unavailable, please retry"

type LeaveServiceImpl struct {
	requestService *RequestService
	balanceService *BalanceService
	notifier       notification.Notifier
}

func NewLeaveService(requestService *RequestService, balanceService *BalanceService, notifier notification.Notifier) leave.LeaveService {
	return &LeaveServiceImpl{
		requestService: requestService,
		balanceService: balanceService,
		notifier:       notifier,
	}
}

// Submit implements leave.LeaveService.
func (l *LeaveServiceImpl) Submit(ctx context.Context, req leave.SubmitLeaveRequest) (res leave.Result) {
	defer recoverResult("submit", &res)

	created, balance, err := l.requestService.Submit(ctx, req)
	if err != nil {
		return failure("submit", err)
	}

	return leave.OK("Leave request submitted successfully", leave.SubmitLeaveResponse{
		RequestID: created.ID,
		Days:      created.DaysRequested,
		Available: balance.Available(),
	})
}

// Approve implements leave.LeaveService.
func (l *LeaveServiceImpl) Approve(ctx context.Context, req leave.ApproveLeaveRequest) (res leave.Result) {
	defer recoverResult("approve", &res)

	if err := req.Validate(); err != nil {
		return failure("approve", err)
	}

	approved, err := l.requestService.Approve(ctx, req.RequestID, req.ApproverID)
	if err != nil {
		return failure("approve", err)
	}

	l.notify(ctx, approved, req.ApproverID, "")
	return leave.OK("Leave request approved successfully", leave.NewLeaveRequestResponse(approved))
}

// Reject implements leave.LeaveService.
func (l *LeaveServiceImpl) Reject(ctx context.Context, req leave.RejectLeaveRequest) (res leave.Result) {
	defer recoverResult("reject", &res)

	if err := req.Validate(); err != nil {
		return failure("reject", err)
	}

	rejected, err := l.requestService.Reject(ctx, req.RequestID, req.ApproverID, req.Reason)
	if err != nil {
		return failure("reject", err)
	}

	l.notify(ctx, rejected, req.ApproverID, req.Reason)
	return leave.OK("Leave request rejected successfully", leave.NewLeaveRequestResponse(rejected))
}

// Cancel implements leave.LeaveService.
func (l *LeaveServiceImpl) Cancel(ctx context.Context, req leave.CancelLeaveRequest) (res leave.Result) {
	defer recoverResult("cancel", &res)

	if err := req.Validate(); err != nil {
		return failure("cancel", err)
	}

	cancelled, err := l.requestService.Cancel(ctx, req.RequestID, req.ActorID)
	if err != nil {
		return failure("cancel", err)
	}

	return leave.OK("Leave request cancelled successfully", leave.NewLeaveRequestResponse(cancelled))
}

// CancelApproved implements leave.LeaveService.
func (l *LeaveServiceImpl) CancelApproved(ctx context.Context, req leave.CancelLeaveRequest) (res leave.Result) {
	defer recoverResult("cancel_approved", &res)

	if err := req.Validate(); err != nil {
		return failure("cancel_approved", err)
	}

	cancelled, err := l.requestService.CancelApproved(ctx, req.RequestID, req.ActorID)
	if err != nil {
		return failure("cancel_approved", err)
	}

	l.notify(ctx, cancelled, req.ActorID, "")
	return leave.OK("Approved leave cancelled successfully", leave.NewLeaveRequestResponse(cancelled))
}

// ListForUser implements leave.LeaveService.
func (l *LeaveServiceImpl) ListForUser(ctx context.Context, req leave.ListLeaveRequestsRequest) (res leave.Result) {
	defer recoverResult("list_for_user", &res)

	if err := req.Validate(); err != nil {
		return failure("list_for_user", err)
	}

	var status *leave.Status
	if req.Status != nil && *req.Status != "" {
		s, err := leave.ParseStatus(*req.Status)
		if err != nil {
			return failure("list_for_user", err)
		}
		status = &s
	}

	requests, err := l.requestService.ListForUser(ctx, req.UserID, status)
	if err != nil {
		return failure("list_for_user", err)
	}

	return leave.OK("Leave requests retrieved successfully", toResponses(requests))
}

// ListPendingForApprover implements leave.LeaveService.
func (l *LeaveServiceImpl) ListPendingForApprover(ctx context.Context, approverID string) (res leave.Result) {
	defer recoverResult("list_pending", &res)

	requests, err := l.requestService.ListPendingForApprover(ctx, approverID)
	if err != nil {
		return failure("list_pending", err)
	}

	return leave.OK("Pending leave requests retrieved successfully", toResponses(requests))
}

// GetBalances implements leave.LeaveService.
func (l *LeaveServiceImpl) GetBalances(ctx context.Context, userID string, year int) (res leave.Result) {
	defer recoverResult("get_balances", &res)

	balances, err := l.balanceService.ListForUser(ctx, userID, year)
	if err != nil {
		return failure("get_balances", err)
	}

	data := make([]leave.LeaveBalanceResponse, 0, len(balances))
	for _, b := range balances {
		data = append(data, leave.NewLeaveBalanceResponse(b))
	}
	return leave.OK("Leave balances retrieved successfully", data)
}

// SetBalance implements leave.LeaveService.
func (l *LeaveServiceImpl) SetBalance(ctx context.Context, req leave.SetBalanceRequest) (res leave.Result) {
	defer recoverResult("set_balance", &res)

	if err := req.Validate(); err != nil {
		return failure("set_balance", err)
	}

	balance, err := l.balanceService.SetAllotment(ctx, req)
	if err != nil {
		return failure("set_balance", err)
	}

	return leave.OK("Leave balance updated successfully", leave.NewLeaveBalanceResponse(balance))
}

// PreviewDays implements leave.LeaveService.
func (l *LeaveServiceImpl) PreviewDays(ctx context.Context, req leave.DayPreviewRequest) (res leave.Result) {
	defer recoverResult("preview_days", &res)

	preview, err := l.requestService.PreviewDays(req)
	if err != nil {
		return failure("preview_days", err)
	}
	return leave.OK("Leave days calculated", preview)
}

// notify runs after the unit of work has committed.
func (l *LeaveServiceImpl) notify(ctx context.Context, request leave.LeaveRequest, actorID, reason string) {
	event := notification.NewEvent(request, actorID, reason, l.requestService.now().UTC())
	l.notifier.Notify(context.WithoutCancel(ctx), event)
}

func toResponses(requests []leave.LeaveRequest) []leave.LeaveRequestResponse {
	data := make([]leave.LeaveRequestResponse, 0, len(requests))
	for _, r := range requests {
		data = append(data, leave.NewLeaveRequestResponse(r))
	}
	return data
}

// failure translates err into a failed Result.
func failure(op string, err error) leave.Result {
	res := leave.Result{
		Success: false,
		Code:    leave.ErrorCode(err),
		Message: err.Error(),
	}

	var fields validator.ValidationErrors
	var insufficient *leave.InsufficientBalanceError
	switch {
	case errors.As(err, &fields):
		res.Message = "Validation failed"
		res.Data = fields.ToMap()
	case errors.As(err, &insufficient):
		res.Data = map[string]float64{
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		}
	case res.Code == leave.CodePersistence:
		slog.Error("Leave operation failed", "op", op, "error", err)
		res.Message = retryMessage
	}
	return res
}

func recoverResult(op string, res *leave.Result) {
	if p := recover(); p != nil {
		*res = failure(op, fmt.Errorf("panic: %v", p))
	}
}
