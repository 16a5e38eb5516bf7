package leave

import (
	"errors"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/validator"
)

func validate(v any) error {
	err := validator.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		return &FieldErrors{Fields: fields}
	}
	return err
}

type SubmitLeaveRequest struct {
	UserID    string `json:"user_id,omitempty" validate:"required"`
	LeaveType string `json:"leave_type" validate:"required,max=50"`
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
	HalfDay   bool   `json:"half_day"`
	Reason    string `json:"reason" validate:"max=1000"`
}

func (r *SubmitLeaveRequest) Validate() error {
	return validate(r)
}

type ApproveLeaveRequest struct {
	RequestID  string `json:"request_id" validate:"required"`
	ApproverID string `json:"approver_id" validate:"required"`
}

func (r *ApproveLeaveRequest) Validate() error {
	return validate(r)
}

type RejectLeaveRequest struct {
	RequestID  string `json:"request_id" validate:"required"`
	ApproverID string `json:"approver_id" validate:"required"`
	Reason     string `json:"reason" validate:"max=1000"`
}

func (r *RejectLeaveRequest) Validate() error {
	return validate(r)
}

// CancelLeaveRequest is used for both self-cancel and cancel-approved.
// ActorID is the caller attempting the cancellation.
type CancelLeaveRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	ActorID   string `json:"actor_id" validate:"required"`
}

func (r *CancelLeaveRequest) Validate() error {
	return validate(r)
}

type ListLeaveRequestsRequest struct {
	UserID string  `json:"user_id" validate:"required"`
	Status *string `json:"status,omitempty"`
}

func (r *ListLeaveRequestsRequest) Validate() error {
	return validate(r)
}

type SetBalanceRequest struct {
	UserID      string  `json:"user_id" validate:"required"`
	LeaveType   string  `json:"leave_type" validate:"required,max=50"`
	Year        int     `json:"year" validate:"gte=2000,lte=2100"`
	TotalDays   float64 `json:"total_days" validate:"gte=0,lte=366"`
	CarriedOver float64 `json:"carried_over" validate:"gte=0,lte=366"`
}

func (r *SetBalanceRequest) Validate() error {
	return validate(r)
}

type DayPreviewRequest struct {
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
	HalfDay   bool   `json:"half_day"`
}

func (r *DayPreviewRequest) Validate() error {
	return validate(r)
}

// Responses

type SubmitLeaveResponse struct {
	RequestID string  `json:"request_id"`
	Days      float64 `json:"days"`
	Available float64 `json:"available"`
}

type LeaveRequestResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	LeaveType       string     `json:"leave_type"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	HalfDay         bool       `json:"half_day"`
	DaysRequested   float64    `json:"days_requested"`
	Reason          string     `json:"reason,omitempty"`
	Status          Status     `json:"status"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CancelledBy     *string    `json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func NewLeaveRequestResponse(r LeaveRequest) LeaveRequestResponse {
	return LeaveRequestResponse{
		ID:              r.ID,
		UserID:          r.UserID,
		LeaveType:       r.LeaveType,
		StartDate:       r.StartDate.Format(DateLayout),
		EndDate:         r.EndDate.Format(DateLayout),
		HalfDay:         r.HalfDay,
		DaysRequested:   r.DaysRequested,
		Reason:          r.Reason,
		Status:          r.Status,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		RejectionReason: r.RejectionReason,
		CancelledBy:     r.CancelledBy,
		CancelledAt:     r.CancelledAt,
		CreatedAt:       r.CreatedAt,
	}
}

type LeaveBalanceResponse struct {
	UserID      string  `json:"user_id"`
	LeaveType   string  `json:"leave_type"`
	Year        int     `json:"year"`
	TotalDays   float64 `json:"total_days"`
	UsedDays    float64 `json:"used_days"`
	PendingDays float64 `json:"pending_days"`
	CarriedOver float64 `json:"carried_over"`
	Available   float64 `json:"available"`
}

func NewLeaveBalanceResponse(b LeaveBalance) LeaveBalanceResponse {
	return LeaveBalanceResponse{
		UserID:      b.UserID,
		LeaveType:   b.LeaveType,
		Year:        b.Year,
		TotalDays:   b.TotalDays,
		UsedDays:    b.UsedDays,
		PendingDays: b.PendingDays,
		CarriedOver: b.CarriedOver,
		Available:   b.Available(),
	}
}

type DayPreviewResponse struct {
	Days         float64        `json:"days"`
	Policy       DayCountPolicy `json:"policy"`
	CalendarDays float64        `json:"calendar_days"`
	BusinessDays float64        `json:"business_days"`
}
