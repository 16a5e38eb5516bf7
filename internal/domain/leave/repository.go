package leave

import "context"

// Transactor runs fn inside one unit of work. Repositories called with the
// context handed to fn participate in that unit; nested calls join it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type LeaveRequestRepository interface {
	Create(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	// GetByIDForUpdate locks the request row until the surrounding unit of work ends.
	GetByIDForUpdate(ctx context.Context, id string) (LeaveRequest, error)
	// UpdateStatus applies change only while the row is still in change.From.
	UpdateStatus(ctx context.Context, change StatusChange) (LeaveRequest, error)
	HasOverlap(ctx context.Context, query OverlapQuery) (bool, error)
	ListByUser(ctx context.Context, userID string, status *Status) ([]LeaveRequest, error)
	ListByStatus(ctx context.Context, status Status, excludeUserID string) ([]LeaveRequest, error)
	// LockUser serialises submissions by one user for the rest of the unit of work.
	LockUser(ctx context.Context, userID string) error
}

type LeaveBalanceRepository interface {
	GetOrCreate(ctx context.Context, key BalanceKey, defaultTotal float64) (LeaveBalance, error)
	GetForUpdate(ctx context.Context, key BalanceKey) (LeaveBalance, error)
	ListByUserYear(ctx context.Context, userID string, year int) ([]LeaveBalance, error)
	SetAllotment(ctx context.Context, key BalanceKey, totalDays, carriedOver float64) (LeaveBalance, error)
	AddPending(ctx context.Context, key BalanceKey, days float64) (BalanceMutation, error)
	RemovePending(ctx context.Context, key BalanceKey, days float64) (BalanceMutation, error)
	// ApprovePending moves days from pending to used in a single statement.
	ApprovePending(ctx context.Context, key BalanceKey, days float64) (BalanceMutation, error)
	ReleaseUsed(ctx context.Context, key BalanceKey, days float64) (BalanceMutation, error)
}
