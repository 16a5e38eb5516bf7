package leave

import "context"

// Result is the caller-facing outcome of every leave operation. Failures are
// reported here and never returned as Go errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

type LeaveService interface {
	Submit(ctx context.Context, req SubmitLeaveRequest) Result
	Approve(ctx context.Context, req ApproveLeaveRequest) Result
	Reject(ctx context.Context, req RejectLeaveRequest) Result
	Cancel(ctx context.Context, req CancelLeaveRequest) Result
	CancelApproved(ctx context.Context, req CancelLeaveRequest) Result
	ListForUser(ctx context.Context, req ListLeaveRequestsRequest) Result
	ListPendingForApprover(ctx context.Context, approverID string) Result

	GetBalances(ctx context.Context, userID string, year int) Result
	SetBalance(ctx context.Context, req SetBalanceRequest) Result
	PreviewDays(ctx context.Context, req DayPreviewRequest) Result
}
