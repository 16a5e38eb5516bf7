package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/google/uuid"
)

type requestRepository struct {
	store *Store
}

// Create implements leave.LeaveRequestRepository.
func (r *requestRepository) Create(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = request.CreatedAt
	}
	r.store.write(ctx, func() {
		r.store.requests[request.ID] = request
	})
	return request, nil
}

// GetByID implements leave.LeaveRequestRepository.
func (r *requestRepository) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	var (
		req leave.LeaveRequest
		ok  bool
	)
	r.store.read(ctx, func() {
		req, ok = r.store.requests[id]
	})
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	return req, nil
}

// GetByIDForUpdate implements leave.LeaveRequestRepository. The unit of work
// already holds the store lock.
func (r *requestRepository) GetByIDForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.GetByID(ctx, id)
}

// UpdateStatus implements leave.LeaveRequestRepository.
func (r *requestRepository) UpdateStatus(ctx context.Context, change leave.StatusChange) (leave.LeaveRequest, error) {
	var (
		req leave.LeaveRequest
		err error
	)
	r.store.write(ctx, func() {
		current, ok := r.store.requests[change.ID]
		if !ok || current.Status != change.From {
			err = leave.ErrLeaveAlreadyProcessed
			return
		}

		actor, at := change.ActorID, change.At
		switch change.To {
		case leave.StatusApproved:
			current.ApprovedBy, current.ApprovedAt = &actor, &at
		case leave.StatusRejected:
			current.ApprovedBy, current.ApprovedAt = &actor, &at
			current.RejectionReason = change.Reason
		case leave.StatusCancelled:
			current.CancelledBy, current.CancelledAt = &actor, &at
		default:
			err = leave.ErrInvalidStatus
			return
		}
		current.Status = change.To
		current.UpdatedAt = at
		r.store.requests[change.ID] = current
		req = current
	})
	return req, err
}

// HasOverlap implements leave.LeaveRequestRepository.
func (r *requestRepository) HasOverlap(ctx context.Context, query leave.OverlapQuery) (bool, error) {
	var found bool
	r.store.read(ctx, func() {
		for _, req := range r.store.requests {
			if query.Overlaps(req) {
				found = true
				return
			}
		}
	})
	return found, nil
}

// ListByUser implements leave.LeaveRequestRepository.
func (r *requestRepository) ListByUser(ctx context.Context, userID string, status *leave.Status) ([]leave.LeaveRequest, error) {
	result := r.filter(ctx, func(req leave.LeaveRequest) bool {
		return req.UserID == userID && (status == nil || req.Status == *status)
	})
	slices.SortFunc(result, func(a, b leave.LeaveRequest) int {
		if c := b.StartDate.Compare(a.StartDate); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

// ListByStatus implements leave.LeaveRequestRepository.
func (r *requestRepository) ListByStatus(ctx context.Context, status leave.Status, excludeUserID string) ([]leave.LeaveRequest, error) {
	result := r.filter(ctx, func(req leave.LeaveRequest) bool {
		return req.Status == status && (excludeUserID == "" || req.UserID != excludeUserID)
	})
	slices.SortFunc(result, func(a, b leave.LeaveRequest) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// LockUser implements leave.LeaveRequestRepository. Units of work are
// already serialised by the store lock.
func (r *requestRepository) LockUser(ctx context.Context, userID string) error {
	return nil
}

func (r *requestRepository) filter(ctx context.Context, keep func(leave.LeaveRequest) bool) []leave.LeaveRequest {
	result := make([]leave.LeaveRequest, 0)
	r.store.read(ctx, func() {
		for _, req := range r.store.requests {
			if keep(req) {
				result = append(result, req)
			}
		}
	})
	return result
}

type balanceRepository struct {
	store *Store
}

// GetOrCreate implements leave.LeaveBalanceRepository.
func (r *balanceRepository) GetOrCreate(ctx context.Context, key leave.BalanceKey, defaultTotal float64) (leave.LeaveBalance, error) {
	var b leave.LeaveBalance
	r.store.write(ctx, func() {
		existing, ok := r.store.balances[key]
		if ok {
			b = existing
			return
		}
		now := time.Now().UTC()
		b = leave.LeaveBalance{
			ID:        uuid.NewString(),
			UserID:    key.UserID,
			LeaveType: key.LeaveType,
			Year:      key.Year,
			TotalDays: defaultTotal,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.store.balances[key] = b
	})
	return b, nil
}

// GetForUpdate implements leave.LeaveBalanceRepository.
func (r *balanceRepository) GetForUpdate(ctx context.Context, key leave.BalanceKey) (leave.LeaveBalance, error) {
	var (
		b  leave.LeaveBalance
		ok bool
	)
	r.store.read(ctx, func() {
		b, ok = r.store.balances[key]
	})
	if !ok {
		return leave.LeaveBalance{}, leave.ErrBalanceNotFound
	}
	return b, nil
}

// ListByUserYear implements leave.LeaveBalanceRepository.
func (r *balanceRepository) ListByUserYear(ctx context.Context, userID string, year int) ([]leave.LeaveBalance, error) {
	result := make([]leave.LeaveBalance, 0)
	r.store.read(ctx, func() {
		for key, b := range r.store.balances {
			if key.UserID == userID && key.Year == year {
				result = append(result, b)
			}
		}
	})
	slices.SortFunc(result, func(a, b leave.LeaveBalance) int {
		return cmp.Compare(a.LeaveType, b.LeaveType)
	})
	return result, nil
}

// SetAllotment implements leave.LeaveBalanceRepository.
func (r *balanceRepository) SetAllotment(ctx context.Context, key leave.BalanceKey, totalDays, carriedOver float64) (leave.LeaveBalance, error) {
	var (
		b   leave.LeaveBalance
		err error
	)
	r.store.write(ctx, func() {
		now := time.Now().UTC()
		existing, ok := r.store.balances[key]
		if !ok {
			existing = leave.LeaveBalance{
				ID:        uuid.NewString(),
				UserID:    key.UserID,
				LeaveType: key.LeaveType,
				Year:      key.Year,
				CreatedAt: now,
			}
		}
		if existing.UsedDays+existing.PendingDays > totalDays+carriedOver {
			err = leave.ErrAllotmentBelowCommitted
			return
		}
		existing.TotalDays = totalDays
		existing.CarriedOver = carriedOver
		existing.UpdatedAt = now
		r.store.balances[key] = existing
		b = existing
	})
	return b, err
}

// AddPending implements leave.LeaveBalanceRepository.
func (r *balanceRepository) AddPending(ctx context.Context, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	return r.mutate(ctx, key, func(b *leave.LeaveBalance) bool {
		b.PendingDays += days
		return false
	})
}

// RemovePending implements leave.LeaveBalanceRepository.
func (r *balanceRepository) RemovePending(ctx context.Context, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	return r.mutate(ctx, key, func(b *leave.LeaveBalance) bool {
		var clamped bool
		b.PendingDays, clamped = floorAtZero(b.PendingDays - days)
		return clamped
	})
}

// ApprovePending implements leave.LeaveBalanceRepository.
func (r *balanceRepository) ApprovePending(ctx context.Context, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	return r.mutate(ctx, key, func(b *leave.LeaveBalance) bool {
		var clamped bool
		b.PendingDays, clamped = floorAtZero(b.PendingDays - days)
		b.UsedDays += days
		return clamped
	})
}

// ReleaseUsed implements leave.LeaveBalanceRepository.
func (r *balanceRepository) ReleaseUsed(ctx context.Context, key leave.BalanceKey, days float64) (leave.BalanceMutation, error) {
	return r.mutate(ctx, key, func(b *leave.LeaveBalance) bool {
		var clamped bool
		b.UsedDays, clamped = floorAtZero(b.UsedDays - days)
		return clamped
	})
}

func (r *balanceRepository) mutate(ctx context.Context, key leave.BalanceKey, apply func(b *leave.LeaveBalance) bool) (leave.BalanceMutation, error) {
	var m leave.BalanceMutation
	r.store.write(ctx, func() {
		b, ok := r.store.balances[key]
		if !ok {
			return
		}
		m.Clamped = apply(&b)
		b.UpdatedAt = time.Now().UTC()
		r.store.balances[key] = b
		m.Applied = true
		m.Balance = b
	})
	return m, nil
}

func floorAtZero(v float64) (float64, bool) {
	if v < 0 {
		return 0, true
	}
	return v, false
}

type userRepository struct {
	store *Store
}

// GetByID implements user.UserRepository.
func (r *userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	var (
		u  user.User
		ok bool
	)
	r.store.read(ctx, func() {
		u, ok = r.store.users[id]
	})
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

// ListActive implements user.UserRepository.
func (r *userRepository) ListActive(ctx context.Context) ([]user.User, error) {
	result := make([]user.User, 0)
	r.store.read(ctx, func() {
		for _, u := range r.store.users {
			if u.IsActive() {
				result = append(result, u)
			}
		}
	})
	slices.SortFunc(result, func(a, b user.User) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}
