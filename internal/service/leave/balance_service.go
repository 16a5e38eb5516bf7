package leave

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
)

// BalanceService owns every mutation of leave balances.
type BalanceService struct {
	balances   leave.LeaveBalanceRepository
	users      user.UserRepository
	allowances AllowanceTable
}

func NewBalanceService(balances leave.LeaveBalanceRepository, users user.UserRepository, allowances AllowanceTable) *BalanceService {
	return &BalanceService{
		balances:   balances,
		users:      users,
		allowances: allowances,
	}
}

// Ensure returns the balance row for key, creating it with the configured allotment.
func (s *BalanceService) Ensure(ctx context.Context, key leave.BalanceKey) (leave.LeaveBalance, error) {
	return s.balances.GetOrCreate(ctx, key, s.allowances.For(key.LeaveType))
}

// Lock ensures the row exists and locks it for the rest of the unit of work.
func (s *BalanceService) Lock(ctx context.Context, key leave.BalanceKey) (leave.LeaveBalance, error) {
	if _, err := s.Ensure(ctx, key); err != nil {
		return leave.LeaveBalance{}, err
	}
	return s.balances.GetForUpdate(ctx, key)
}

// Reserve holds days as pending against the balance.
func (s *BalanceService) Reserve(ctx context.Context, key leave.BalanceKey, days float64) (leave.LeaveBalance, error) {
	m, err := s.balances.AddPending(ctx, key, days)
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("reserve leave days: %w", err)
	}
	if !m.Applied {
		return leave.LeaveBalance{}, leave.ErrBalanceNotFound
	}

	slog.Debug("Reserved leave days", "user_id", key.UserID, "leave_type", key.LeaveType, "year", key.Year,
		"days", days, "pending_days", m.Balance.PendingDays)
	return m.Balance, nil
}

// Release returns reserved days after a rejection or cancellation.
func (s *BalanceService) Release(ctx context.Context, key leave.BalanceKey, days float64, requestID string) (leave.LeaveBalance, error) {
	m, err := s.balances.RemovePending(ctx, key, days)
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("release leave days: %w", err)
	}
	return s.applied(m, "release", key, days, requestID)
}

// Consume converts reserved days into used days on approval.
func (s *BalanceService) Consume(ctx context.Context, key leave.BalanceKey, days float64, requestID string) (leave.LeaveBalance, error) {
	m, err := s.balances.ApprovePending(ctx, key, days)
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("consume leave days: %w", err)
	}
	return s.applied(m, "consume", key, days, requestID)
}

// Restore gives back used days when approved leave is withdrawn.
func (s *BalanceService) Restore(ctx context.Context, key leave.BalanceKey, days float64, requestID string) (leave.LeaveBalance, error) {
	m, err := s.balances.ReleaseUsed(ctx, key, days)
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("restore leave days: %w", err)
	}
	return s.applied(m, "restore", key, days, requestID)
}

func (s *BalanceService) applied(m leave.BalanceMutation, op string, key leave.BalanceKey, days float64, requestID string) (leave.LeaveBalance, error) {
	if !m.Applied {
		slog.Error("Leave balance missing for request", "op", op, "request_id", requestID,
			"user_id", key.UserID, "leave_type", key.LeaveType, "year", key.Year)
		return leave.LeaveBalance{}, leave.ErrBalanceNotFound
	}
	if m.Clamped {
		// A clamp means more days were released than were held.
		slog.Warn("Leave balance clamped at zero", "op", op, "request_id", requestID,
			"user_id", key.UserID, "leave_type", key.LeaveType, "year", key.Year, "days", days,
			"pending_days", m.Balance.PendingDays, "used_days", m.Balance.UsedDays)
	}
	return m.Balance, nil
}

// ListForUser lazily creates a row for every configured leave type and
// returns all of the user's balances for year.
func (s *BalanceService) ListForUser(ctx context.Context, userID string, year int) ([]leave.LeaveBalance, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, userLookupError(err, leave.ErrUnknownUser)
	}
	for _, leaveType := range s.allowances.Types() {
		if _, err := s.Ensure(ctx, leave.BalanceKey{UserID: userID, LeaveType: leaveType, Year: year}); err != nil {
			return nil, err
		}
	}
	return s.balances.ListByUserYear(ctx, userID, year)
}

func (s *BalanceService) SetAllotment(ctx context.Context, req leave.SetBalanceRequest) (leave.LeaveBalance, error) {
	if !s.allowances.Known(req.LeaveType) {
		return leave.LeaveBalance{}, leave.ErrUnknownLeaveType
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return leave.LeaveBalance{}, userLookupError(err, leave.ErrUnknownUser)
	}

	key := leave.BalanceKey{UserID: req.UserID, LeaveType: req.LeaveType, Year: req.Year}
	b, err := s.balances.SetAllotment(ctx, key, req.TotalDays, req.CarriedOver)
	if err != nil {
		return leave.LeaveBalance{}, err
	}

	slog.Info("Leave allotment updated", "user_id", req.UserID, "leave_type", req.LeaveType, "year", req.Year,
		"total_days", req.TotalDays, "carried_over", req.CarriedOver)
	return b, nil
}

// InitializeYear creates balances for every active user and configured leave
// type. Existing rows are left untouched. It returns the number of rows checked.
func (s *BalanceService) InitializeYear(ctx context.Context, year int) (int, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}

	checked := 0
	for _, u := range users {
		for _, leaveType := range s.allowances.Types() {
			if _, err := s.Ensure(ctx, leave.BalanceKey{UserID: u.ID, LeaveType: leaveType, Year: year}); err != nil {
				return checked, fmt.Errorf("initialize balance for user %s: %w", u.ID, err)
			}
			checked++
		}
	}
	return checked, nil
}
