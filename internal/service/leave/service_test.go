package leave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/notification"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/cloudincsa/leave-plugin-sub004/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

// failingBalances fails AddPending after the request row has been written.
type failingBalances struct {
	leave.LeaveBalanceRepository
}

func (f failingBalances) AddPending(context.Context, leave.BalanceKey, float64) (leave.BalanceMutation, error) {
	return leave.BalanceMutation{}, errors.New("connection reset")
}

type fixture struct {
	store    *memory.Store
	requests *RequestService
	balances *BalanceService
	notifier *recordingNotifier
	svc      leave.LeaveService
}

func newFixture(t *testing.T, policy Policy) *fixture {
	return newFixtureWith(t, policy, nil)
}

func newFixtureWith(t *testing.T, policy Policy, wrap func(leave.LeaveBalanceRepository) leave.LeaveBalanceRepository) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutUser(user.User{ID: "u1", Role: user.RoleEmployee, Status: user.StatusActive})
	store.PutUser(user.User{ID: "u2", Role: user.RoleEmployee, Status: user.StatusActive})
	store.PutUser(user.User{ID: "m1", Role: user.RoleManager, Status: user.StatusActive})
	store.PutUser(user.User{ID: "a1", Role: user.RoleAdmin, Status: user.StatusActive})
	store.PutUser(user.User{ID: "gone", Role: user.RoleEmployee, Status: user.StatusInactive})

	balanceRepo := store.Balances()
	if wrap != nil {
		balanceRepo = wrap(balanceRepo)
	}

	allowances := NewAllowanceTable(10, map[string]float64{"annual": 10, "sick": 5})
	balances := NewBalanceService(balanceRepo, store.Users(), allowances)
	requests := NewRequestService(store, store.Requests(), store.Users(), balances, policy)
	requests.SetClock(func() time.Time { return today })

	notifier := &recordingNotifier{}
	return &fixture{
		store:    store,
		requests: requests,
		balances: balances,
		notifier: notifier,
		svc:      NewLeaveService(requests, balances, notifier),
	}
}

func (f *fixture) submit(t *testing.T, userID, start, end string) string {
	t.Helper()
	res := f.svc.Submit(context.Background(), leave.SubmitLeaveRequest{
		UserID:    userID,
		LeaveType: "annual",
		StartDate: start,
		EndDate:   end,
		Reason:    "trip",
	})
	require.True(t, res.Success, res.Message)
	return res.Data.(leave.SubmitLeaveResponse).RequestID
}

func (f *fixture) balance(t *testing.T, userID string) leave.LeaveBalance {
	t.Helper()
	b, err := f.store.Balances().GetForUpdate(context.Background(), leave.BalanceKey{UserID: userID, LeaveType: "annual", Year: 2025})
	require.NoError(t, err)
	return b
}

func (f *fixture) request(t *testing.T, id string) leave.LeaveRequest {
	t.Helper()
	r, err := f.store.Requests().GetByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

func TestLeaveService_SubmitReservesDays(t *testing.T) {
	f := newFixture(t, Policy{})

	res := f.svc.Submit(context.Background(), leave.SubmitLeaveRequest{
		UserID:    "u1",
		LeaveType: "annual",
		StartDate: "2025-06-10",
		EndDate:   "2025-06-12",
		Reason:    "trip",
	})
	require.True(t, res.Success, res.Message)
	data := res.Data.(leave.SubmitLeaveResponse)
	assert.Equal(t, 3.0, data.Days)
	assert.Equal(t, 7.0, data.Available)

	b := f.balance(t, "u1")
	assert.Equal(t, 3.0, b.PendingDays)
	assert.Equal(t, 0.0, b.UsedDays)
	assert.Equal(t, 7.0, b.Available())

	r := f.request(t, data.RequestID)
	assert.Equal(t, leave.StatusPending, r.Status)
	assert.Equal(t, 3.0, r.DaysRequested)
}

func TestLeaveService_ApproveMovesPendingToUsed(t *testing.T) {
	f := newFixture(t, Policy{})
	id := f.submit(t, "u1", "2025-06-10", "2025-06-12")

	res := f.svc.Approve(context.Background(), leave.ApproveLeaveRequest{RequestID: id, ApproverID: "m1"})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, leave.StatusApproved, res.Data.(leave.LeaveRequestResponse).Status)

	b := f.balance(t, "u1")
	assert.Equal(t, 3.0, b.UsedDays)
	assert.Equal(t, 0.0, b.PendingDays)
	assert.Equal(t, 7.0, b.Available())

	r := f.request(t, id)
	require.NotNil(t, r.ApprovedBy)
	assert.Equal(t, "m1", *r.ApprovedBy)
	require.NotNil(t, r.ApprovedAt)
	assert.Equal(t, today, *r.ApprovedAt)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.TypeLeaveApproved, events[0].Type)
	assert.Equal(t, "u1", events[0].UserID)
	assert.Equal(t, "m1", events[0].ActorID)
}

func TestLeaveService_OverlapConflict(t *testing.T) {
	f := newFixture(t, Policy{})
	f.submit(t, "u1", "2025-06-10", "2025-06-12")

	res := f.svc.Submit(context.Background(), leave.SubmitLeaveRequest{
		UserID:    "u1",
		LeaveType: "annual",
		StartDate: "2025-06-11",
		EndDate:   "2025-06-13",
	})
	assert.False(t, res.Success)
	assert.Equal(t, leave.CodeConflict, res.Code)
	assert.Equal(t, 3.0, f.balance(t, "u1").PendingDays)

	// Another user's range is independent.
	f.submit(t, "u2", "2025-06-11", "2025-06-13")
}

func TestLeaveService_InsufficientBalance(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	res := f.svc.SetBalance(ctx, leave.SetBalanceRequest{UserID: "u1", LeaveType: "annual", Year: 2025, TotalDays: 3})
	require.True(t, res.Success, res.Message)

	res = f.svc.Submit(ctx, leave.SubmitLeaveRequest{
		UserID:    "u1",
		LeaveType: "annual",
		StartDate: "2025-06-16",
		EndDate:   "2025-06-20",
	})
	assert.False(t, res.Success)
	assert.Equal(t, leave.CodeInsufficientBalance, res.Code)
	assert.Equal(t, map[string]float64{"available": 3, "requested": 5}, res.Data)

	b := f.balance(t, "u1")
	assert.Equal(t, 0.0, b.PendingDays)
	assert.Equal(t, 3.0, b.Available())

	mine, err := f.requests.ListForUser(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestLeaveService_RejectReleasesPending(t *testing.T) {
	f := newFixture(t, Policy{})
	id := f.submit(t, "u1", "2025-06-10", "2025-06-12")

	res := f.svc.Reject(context.Background(), leave.RejectLeaveRequest{RequestID: id, ApproverID: "m1", Reason: "understaffed"})
	require.True(t, res.Success, res.Message)

	b := f.balance(t, "u1")
	assert.Equal(t, 0.0, b.PendingDays)
	assert.Equal(t, 0.0, b.UsedDays)

	r := f.request(t, id)
	assert.Equal(t, leave.StatusRejected, r.Status)
	require.NotNil(t, r.RejectionReason)
	assert.Equal(t, "understaffed", *r.RejectionReason)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.TypeLeaveRejected, events[0].Type)
	assert.Equal(t, "understaffed", events[0].Reason)
}

func TestLeaveService_CancelByNonOwner(t *testing.T) {
	f := newFixture(t, Policy{})
	id := f.submit(t, "u1", "2025-06-10", "2025-06-12")

	res := f.svc.Cancel(context.Background(), leave.CancelLeaveRequest{RequestID: id, ActorID: "u2"})
	assert.False(t, res.Success)
	assert.Equal(t, leave.CodeForbidden, res.Code)

	assert.Equal(t, leave.StatusPending, f.request(t, id).Status)
	assert.Equal(t, 3.0, f.balance(t, "u1").PendingDays)
}

func TestLeaveService_SubmitThenCancelRestoresBalance(t *testing.T) {
	f := newFixture(t, Policy{})
	before := f.svc.GetBalances(context.Background(), "u1", 2025)
	require.True(t, before.Success)

	id := f.submit(t, "u1", "2025-06-10", "2025-06-12")
	res := f.svc.Cancel(context.Background(), leave.CancelLeaveRequest{RequestID: id, ActorID: "u1"})
	require.True(t, res.Success, res.Message)

	b := f.balance(t, "u1")
	assert.Equal(t, 0.0, b.PendingDays)
	assert.Equal(t, 10.0, b.Available())

	r := f.request(t, id)
	assert.Equal(t, leave.StatusCancelled, r.Status)
	require.NotNil(t, r.CancelledBy)
	assert.Equal(t, "u1", *r.CancelledBy)

	// Pending cancellation is the requester's own action.
	assert.Empty(t, f.notifier.Events())

	res = f.svc.Cancel(context.Background(), leave.CancelLeaveRequest{RequestID: id, ActorID: "u1"})
	assert.Equal(t, leave.CodeAlreadyProcessed, res.Code)
}

func TestLeaveService_TerminalRequestsStayPut(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()
	id := f.submit(t, "u1", "2025-06-10", "2025-06-12")

	require.True(t, f.svc.Approve(ctx, leave.ApproveLeaveRequest{RequestID: id, ApproverID: "m1"}).Success)

	tests := []struct {
		name string
		run  func() leave.Result
	}{
		{"approve again", func() leave.Result {
			return f.svc.Approve(ctx, leave.ApproveLeaveRequest{RequestID: id, ApproverID: "a1"})
		}},
		{"reject approved", func() leave.Result {
			return f.svc.Reject(ctx, leave.RejectLeaveRequest{RequestID: id, ApproverID: "m1"})
		}},
		{"cancel approved as pending", func() leave.Result {
			return f.svc.Cancel(ctx, leave.CancelLeaveRequest{RequestID: id, ActorID: "u1"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.run()
			assert.False(t, res.Success)
			assert.Equal(t, leave.CodeAlreadyProcessed, res.Code)
		})
	}

	b := f.balance(t, "u1")
	assert.Equal(t, 3.0, b.UsedDays)
	assert.Equal(t, 0.0, b.PendingDays)
	assert.Len(t, f.notifier.Events(), 1)
}

func TestLeaveService_ConcurrentApprovalsApplyOnce(t *testing.T) {
	f := newFixture(t, Policy{})
	id := f.submit(t, "u1", "2025-06-10", "2025-06-12")

	var wg sync.WaitGroup
	results := make([]leave.Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			approver := "m1"
			if i%2 == 1 {
				approver = "a1"
			}
			results[i] = f.svc.Approve(context.Background(), leave.ApproveLeaveRequest{RequestID: id, ApproverID: approver})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
			continue
		}
		assert.Equal(t, leave.CodeAlreadyProcessed, res.Code)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3.0, f.balance(t, "u1").UsedDays)
	assert.Len(t, f.notifier.Events(), 1)
}

func TestLeaveService_ApproverChecks(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()
	own := f.submit(t, "m1", "2025-06-10", "2025-06-12")
	other := f.submit(t, "u1", "2025-06-10", "2025-06-12")

	tests := []struct {
		name       string
		requestID  string
		approverID string
		code       string
	}{
		{"employee cannot approve", other, "u2", leave.CodeForbidden},
		{"unknown approver", other, "nobody", leave.CodeForbidden},
		{"self approval", own, "m1", leave.CodeForbidden},
		{"unknown request", "missing", "m1", leave.CodeNotFound},
		{"missing approver id", other, "", leave.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.svc.Approve(ctx, leave.ApproveLeaveRequest{RequestID: tt.requestID, ApproverID: tt.approverID})
			assert.False(t, res.Success)
			assert.Equal(t, tt.code, res.Code)
		})
	}

	assert.Equal(t, leave.StatusPending, f.request(t, own).Status)
	assert.Equal(t, leave.StatusPending, f.request(t, other).Status)

	// Admins may approve a manager's request.
	res := f.svc.Approve(ctx, leave.ApproveLeaveRequest{RequestID: own, ApproverID: "a1"})
	assert.True(t, res.Success, res.Message)
}

func TestLeaveService_SubmitValidation(t *testing.T) {
	f := newFixture(t, Policy{})

	tests := []struct {
		name string
		req  leave.SubmitLeaveRequest
	}{
		{"missing leave type", leave.SubmitLeaveRequest{UserID: "u1", StartDate: "2025-06-10", EndDate: "2025-06-10"}},
		{"malformed date", leave.SubmitLeaveRequest{UserID: "u1", LeaveType: "annual", StartDate: "2025-13-01", EndDate: "2025-06-10"}},
		{"end before start", leave.SubmitLeaveRequest{UserID: "u1", LeaveType: "annual", StartDate: "2025-06-12", EndDate: "2025-06-10"}},
		{"start in the past", leave.SubmitLeaveRequest{UserID: "u1", LeaveType: "annual", StartDate: "2025-05-30", EndDate: "2025-06-02"}},
		{"unknown user", leave.SubmitLeaveRequest{UserID: "nobody", LeaveType: "annual", StartDate: "2025-06-10", EndDate: "2025-06-10"}},
		{"inactive user", leave.SubmitLeaveRequest{UserID: "gone", LeaveType: "annual", StartDate: "2025-06-10", EndDate: "2025-06-10"}},
		{"unknown leave type", leave.SubmitLeaveRequest{UserID: "u1", LeaveType: "sabbatical", StartDate: "2025-06-10", EndDate: "2025-06-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.svc.Submit(context.Background(), tt.req)
			assert.False(t, res.Success)
			assert.Equal(t, leave.CodeValidation, res.Code)
		})
	}

	res := f.svc.Submit(context.Background(), tests[0].req)
	assert.Equal(t, "Validation failed", res.Message)
	assert.Equal(t, map[string]string{"leave_type": "leave_type is required"}, res.Data)
}

func TestLeaveService_SubmitStartingToday(t *testing.T) {
	f := newFixture(t, Policy{})

	res := f.svc.Submit(context.Background(), leave.SubmitLeaveRequest{
		UserID:    "u1",
		LeaveType: "annual",
		StartDate: "2025-06-01",
		EndDate:   "2025-06-01",
		HalfDay:   true,
	})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 0.5, res.Data.(leave.SubmitLeaveResponse).Days)
}

func TestLeaveService_CancelApproved(t *testing.T) {
	ctx := context.Background()

	t.Run("before start returns used days", func(t *testing.T) {
		f := newFixture(t, Policy{})
		id := f.submit(t, "u1", "2025-06-10", "2025-06-12")
		require.True(t, f.svc.Approve(ctx, leave.ApproveLeaveRequest{RequestID: id, ApproverID: "m1"}).Success)

		res := f.svc.CancelApproved(ctx, leave.CancelLeaveRequest{RequestID: id, ActorID: "u1"})
		require.True(t, res.Success, res.Message)

		b := f.balance(t, "u1")
		assert.Equal(t, 0.0, b.UsedDays)
		assert.Equal(t, 10.0, b.Available())
		assert.Equal(t, leave.StatusCancelled, f.request(t, id).Status)

		events := f.notifier.Events()
		require.Len(t, events, 2)
		assert.Equal(t, notification.TypeLeaveCancelled, events[1].Type)
	})

	t.Run("manager may cancel", func(t *testing.T) {
		f := newFixture(t, Policy{})
		id := f.submit(t, "u1", "2025-06-10", "2025-06-12")
		require.True(t, f.svc.Approve(ctx, leave.ApproveLeaveRequest{RequestID: id, ApproverID: "m1"}).Success)

		res := f.svc.CancelApproved(ctx, leave.CancelLeaveRequest{RequestID: id, ActorID: "u2"})
		assert.Equal(t, leave.CodeForbidden, res.Code)

		res = f.svc.CancelApproved(ctx, leave.CancelLeaveRequest{RequestID: id, ActorID: "a1"})
		assert.True(t, res.Success, res.Message)
	})

	t.Run("after start is refused", func(t *testing.T) {
		f := newFixture(t, Policy{})
		id := f.submit(t, "u1", "2025-06-10", "2025-06-12")
		require.True(t, f.svc.Approve(ctx, leave.ApproveLeaveRequest{RequestID: id, ApproverID: "m1"}).Success)

		f.requests.SetClock(func() time.Time { return time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) })
		res := f.svc.CancelApproved(ctx, leave.CancelLeaveRequest{RequestID: id, ActorID: "u1"})
		assert.False(t, res.Success)
		assert.Equal(t, leave.CodeAlreadyProcessed, res.Code)
		assert.Equal(t, 3.0, f.balance(t, "u1").UsedDays)
	})

	t.Run("pending request is not approved leave", func(t *testing.T) {
		f := newFixture(t, Policy{})
		id := f.submit(t, "u1", "2025-06-10", "2025-06-12")

		res := f.svc.CancelApproved(ctx, leave.CancelLeaveRequest{RequestID: id, ActorID: "u1"})
		assert.Equal(t, leave.CodeAlreadyProcessed, res.Code)
	})
}

func TestLeaveService_CancelledOverlapPolicy(t *testing.T) {
	tests := []struct {
		name    string
		blocks  bool
		success bool
	}{
		{"cancelled requests free the range", false, true},
		{"cancelled requests keep blocking", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Policy{CancelledBlocksOverlap: tt.blocks})
			ctx := context.Background()
			id := f.submit(t, "u1", "2025-06-10", "2025-06-12")
			require.True(t, f.svc.Cancel(ctx, leave.CancelLeaveRequest{RequestID: id, ActorID: "u1"}).Success)

			res := f.svc.Submit(ctx, leave.SubmitLeaveRequest{
				UserID:    "u1",
				LeaveType: "annual",
				StartDate: "2025-06-12",
				EndDate:   "2025-06-13",
			})
			assert.Equal(t, tt.success, res.Success, res.Message)
			if !tt.success {
				assert.Equal(t, leave.CodeConflict, res.Code)
			}
		})
	}
}

func TestLeaveService_RejectedRequestsDoNotBlock(t *testing.T) {
	f := newFixture(t, Policy{CancelledBlocksOverlap: true})
	id := f.submit(t, "u1", "2025-06-10", "2025-06-12")
	require.True(t, f.svc.Reject(context.Background(), leave.RejectLeaveRequest{RequestID: id, ApproverID: "m1"}).Success)

	f.submit(t, "u1", "2025-06-10", "2025-06-12")
}

func TestLeaveService_BusinessDayPolicy(t *testing.T) {
	f := newFixture(t, Policy{DayCount: leave.DayCountBusiness})
	ctx := context.Background()

	// Friday to Monday.
	res := f.svc.Submit(ctx, leave.SubmitLeaveRequest{UserID: "u1", LeaveType: "annual", StartDate: "2025-06-13", EndDate: "2025-06-16"})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 2.0, res.Data.(leave.SubmitLeaveResponse).Days)
	assert.Equal(t, 2.0, f.balance(t, "u1").PendingDays)

	res = f.svc.Submit(ctx, leave.SubmitLeaveRequest{UserID: "u2", LeaveType: "annual", StartDate: "2025-06-14", EndDate: "2025-06-15"})
	assert.False(t, res.Success)
	assert.Equal(t, leave.CodeValidation, res.Code)

	res = f.svc.PreviewDays(ctx, leave.DayPreviewRequest{StartDate: "2025-06-13", EndDate: "2025-06-16"})
	require.True(t, res.Success)
	assert.Equal(t, leave.DayPreviewResponse{
		Days:         2,
		Policy:       leave.DayCountBusiness,
		CalendarDays: 4,
		BusinessDays: 2,
	}, res.Data)
}

func TestLeaveService_PersistenceFailureRollsBack(t *testing.T) {
	failing := newFixtureWith(t, Policy{}, func(repo leave.LeaveBalanceRepository) leave.LeaveBalanceRepository {
		return failingBalances{LeaveBalanceRepository: repo}
	})
	ctx := context.Background()

	res := failing.svc.Submit(ctx, leave.SubmitLeaveRequest{
		UserID:    "u1",
		LeaveType: "annual",
		StartDate: "2025-06-10",
		EndDate:   "2025-06-12",
	})
	assert.False(t, res.Success)
	assert.Equal(t, leave.CodePersistence, res.Code)
	assert.Equal(t, retryMessage, res.Message)

	mine, err := failing.requests.ListForUser(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestLeaveService_Lists(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()
	first := f.submit(t, "u1", "2025-06-10", "2025-06-12")
	f.submit(t, "u1", "2025-07-01", "2025-07-02")
	f.submit(t, "m1", "2025-06-20", "2025-06-20")
	require.True(t, f.svc.Approve(ctx, leave.ApproveLeaveRequest{RequestID: first, ApproverID: "m1"}).Success)

	res := f.svc.ListForUser(ctx, leave.ListLeaveRequestsRequest{UserID: "u1"})
	require.True(t, res.Success)
	all := res.Data.([]leave.LeaveRequestResponse)
	require.Len(t, all, 2)
	assert.Equal(t, "2025-07-01", all[0].StartDate)

	status := "approved"
	res = f.svc.ListForUser(ctx, leave.ListLeaveRequestsRequest{UserID: "u1", Status: &status})
	require.True(t, res.Success)
	approved := res.Data.([]leave.LeaveRequestResponse)
	require.Len(t, approved, 1)
	assert.Equal(t, first, approved[0].ID)

	bogus := "archived"
	res = f.svc.ListForUser(ctx, leave.ListLeaveRequestsRequest{UserID: "u1", Status: &bogus})
	assert.Equal(t, leave.CodeValidation, res.Code)

	res = f.svc.ListPendingForApprover(ctx, "m1")
	require.True(t, res.Success)
	pending := res.Data.([]leave.LeaveRequestResponse)
	require.Len(t, pending, 1)
	assert.Equal(t, "u1", pending[0].UserID)

	res = f.svc.ListPendingForApprover(ctx, "u2")
	assert.Equal(t, leave.CodeForbidden, res.Code)
}

func TestLeaveService_Balances(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	res := f.svc.GetBalances(ctx, "u1", 2025)
	require.True(t, res.Success)
	balances := res.Data.([]leave.LeaveBalanceResponse)
	require.Len(t, balances, 2)
	assert.Equal(t, "annual", balances[0].LeaveType)
	assert.Equal(t, 10.0, balances[0].Available)
	assert.Equal(t, "sick", balances[1].LeaveType)
	assert.Equal(t, 5.0, balances[1].Available)

	res = f.svc.GetBalances(ctx, "no-such-user", 2025)
	assert.False(t, res.Success)
	assert.Equal(t, leave.CodeValidation, res.Code)
	stored, err := f.store.Balances().ListByUserYear(ctx, "no-such-user", 2025)
	require.NoError(t, err)
	assert.Empty(t, stored)

	f.submit(t, "u1", "2025-06-10", "2025-06-14")

	tests := []struct {
		name string
		req  leave.SetBalanceRequest
		code string
	}{
		{"below committed days", leave.SetBalanceRequest{UserID: "u1", LeaveType: "annual", Year: 2025, TotalDays: 4}, leave.CodeValidation},
		{"unknown leave type", leave.SetBalanceRequest{UserID: "u1", LeaveType: "sabbatical", Year: 2025, TotalDays: 4}, leave.CodeValidation},
		{"unknown user", leave.SetBalanceRequest{UserID: "nobody", LeaveType: "annual", Year: 2025, TotalDays: 4}, leave.CodeValidation},
		{"negative days", leave.SetBalanceRequest{UserID: "u1", LeaveType: "annual", Year: 2025, TotalDays: -1}, leave.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.svc.SetBalance(ctx, tt.req)
			assert.False(t, res.Success)
			assert.Equal(t, tt.code, res.Code)
		})
	}

	res = f.svc.SetBalance(ctx, leave.SetBalanceRequest{UserID: "u1", LeaveType: "annual", Year: 2025, TotalDays: 15, CarriedOver: 2})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 12.0, res.Data.(leave.LeaveBalanceResponse).Available)
}

func TestBalanceService_InitializeYear(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	checked, err := f.balances.InitializeYear(ctx, 2026)
	require.NoError(t, err)
	// Four active users, two leave types.
	assert.Equal(t, 8, checked)

	b, err := f.store.Balances().GetForUpdate(ctx, leave.BalanceKey{UserID: "m1", LeaveType: "sick", Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 5.0, b.TotalDays)

	_, err = f.store.Balances().GetForUpdate(ctx, leave.BalanceKey{UserID: "gone", LeaveType: "sick", Year: 2026})
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)

	// Running again leaves existing rows alone.
	_, err = f.store.Balances().AddPending(ctx, leave.BalanceKey{UserID: "m1", LeaveType: "sick", Year: 2026}, 1)
	require.NoError(t, err)
	_, err = f.balances.InitializeYear(ctx, 2026)
	require.NoError(t, err)
	b, err = f.store.Balances().GetForUpdate(ctx, leave.BalanceKey{UserID: "m1", LeaveType: "sick", Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.PendingDays)
}
