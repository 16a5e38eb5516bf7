package leave

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// ParseStatus validates a caller supplied status filter.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// LeaveRequest entity
type LeaveRequest struct {
	ID            string
	UserID        string
	LeaveType     string
	StartDate     time.Time
	EndDate       time.Time
	HalfDay       bool
	DaysRequested float64
	Reason        string
	Status        Status

	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string
	CancelledBy     *string
	CancelledAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Year is the balance year the request is charged to.
func (r LeaveRequest) Year() int {
	return r.StartDate.Year()
}

func (r LeaveRequest) BalanceKey() BalanceKey {
	return BalanceKey{UserID: r.UserID, LeaveType: r.LeaveType, Year: r.Year()}
}

func (r LeaveRequest) IsPending() bool {
	return r.Status == StatusPending
}

// CanBeCancelled reports whether the request may still be cancelled on the given day.
// Approved leave can only be withdrawn while its start date is strictly ahead.
func (r LeaveRequest) CanBeCancelled(today time.Time) bool {
	switch r.Status {
	case StatusPending:
		return true
	case StatusApproved:
		return r.StartDate.After(DateOnly(today))
	}
	return false
}

// CanTransitionTo encodes the request state machine.
func (r LeaveRequest) CanTransitionTo(next Status, today time.Time) bool {
	switch r.Status {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected || next == StatusCancelled
	case StatusApproved:
		return next == StatusCancelled && r.CanBeCancelled(today)
	}
	return false
}

// BalanceKey identifies one balance row.
type BalanceKey struct {
	UserID    string
	LeaveType string
	Year      int
}

// LeaveBalance entity
type LeaveBalance struct {
	ID          string
	UserID      string
	LeaveType   string
	Year        int
	TotalDays   float64
	UsedDays    float64
	PendingDays float64
	CarriedOver float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Available returns days that can still be reserved.
func (b LeaveBalance) Available() float64 {
	return b.TotalDays + b.CarriedOver - b.UsedDays - b.PendingDays
}

func (b LeaveBalance) HasEnoughBalance(days float64) bool {
	return b.Available() >= days
}

// BalanceMutation reports the outcome of one atomic balance update.
// Applied is false when no row matched the key. Clamped is true when a
// decrement would have gone below zero and was floored.
type BalanceMutation struct {
	Applied bool
	Clamped bool
	Balance LeaveBalance
}

// StatusChange describes a guarded status transition on a request row.
type StatusChange struct {
	ID      string
	From    Status
	To      Status
	ActorID string
	At      time.Time
	Reason  *string
}

type OverlapQuery struct {
	UserID           string
	Start            time.Time
	End              time.Time
	ExcludeRequestID string
	IncludeCancelled bool
}

// Overlaps applies the inclusive interval test used by every store.
func (q OverlapQuery) Overlaps(r LeaveRequest) bool {
	if r.UserID != q.UserID || (q.ExcludeRequestID != "" && r.ID == q.ExcludeRequestID) {
		return false
	}
	if r.Status == StatusRejected {
		return false
	}
	if r.Status == StatusCancelled && !q.IncludeCancelled {
		return false
	}
	return !r.StartDate.After(q.End) && !r.EndDate.Before(q.Start)
}
