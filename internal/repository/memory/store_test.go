package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = leave.BalanceKey{UserID: "u1", LeaveType: "annual", Year: 2025}

func TestStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	requests, balances := store.Requests(), store.Balances()

	_, err := balances.GetOrCreate(ctx, key, 10)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(ctx context.Context) error {
		_, err := requests.Create(ctx, leave.LeaveRequest{ID: "r1", UserID: "u1", Status: leave.StatusPending})
		require.NoError(t, err)
		m, err := balances.AddPending(ctx, key, 3)
		require.NoError(t, err)
		require.True(t, m.Applied)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = requests.GetByID(ctx, "r1")
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)

	b, err := balances.GetForUpdate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.PendingDays)
}

func TestStore_NestedTxJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	balances := store.Balances()

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		return store.WithinTx(ctx, func(ctx context.Context) error {
			_, err := balances.GetOrCreate(ctx, key, 5)
			return err
		})
	})
	require.NoError(t, err)

	b, err := balances.GetForUpdate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 5.0, b.TotalDays)
}

func TestStore_TxIsScopedToItsStore(t *testing.T) {
	ctx := context.Background()
	outer, other := NewStore(), NewStore()
	boom := errors.New("boom")

	err := outer.WithinTx(ctx, func(ctx context.Context) error {
		err := other.WithinTx(ctx, func(ctx context.Context) error {
			_, err := other.Requests().Create(ctx, leave.LeaveRequest{ID: "r1", UserID: "u1", Status: leave.StatusPending})
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		return nil
	})
	require.NoError(t, err)

	// The failed unit on the other store rolled back on its own.
	_, err = other.Requests().GetByID(ctx, "r1")
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)
}

func TestBalanceRepository_Mutations(t *testing.T) {
	ctx := context.Background()
	balances := NewStore().Balances()

	m, err := balances.AddPending(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, m.Applied)

	_, err = balances.GetOrCreate(ctx, key, 10)
	require.NoError(t, err)

	m, err = balances.AddPending(ctx, key, 3)
	require.NoError(t, err)
	assert.Equal(t, 7.0, m.Balance.Available())

	m, err = balances.ApprovePending(ctx, key, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Balance.PendingDays)
	assert.Equal(t, 3.0, m.Balance.UsedDays)
	assert.False(t, m.Clamped)

	m, err = balances.RemovePending(ctx, key, 1)
	require.NoError(t, err)
	assert.True(t, m.Clamped)
	assert.Equal(t, 0.0, m.Balance.PendingDays)

	m, err = balances.ReleaseUsed(ctx, key, 4)
	require.NoError(t, err)
	assert.True(t, m.Clamped)
	assert.Equal(t, 0.0, m.Balance.UsedDays)

	_, err = balances.AddPending(ctx, key, 2)
	require.NoError(t, err)
	_, err = balances.SetAllotment(ctx, key, 1, 0)
	assert.ErrorIs(t, err, leave.ErrAllotmentBelowCommitted)
}

func TestRequestRepository_UpdateStatusGuard(t *testing.T) {
	ctx := context.Background()
	requests := NewStore().Requests()

	_, err := requests.Create(ctx, leave.LeaveRequest{ID: "r1", UserID: "u1", Status: leave.StatusPending})
	require.NoError(t, err)

	change := leave.StatusChange{ID: "r1", From: leave.StatusPending, To: leave.StatusApproved, ActorID: "m1", At: time.Now()}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := requests.UpdateStatus(ctx, change); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)

	got, err := requests.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "m1", *got.ApprovedBy)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutUser(user.User{ID: "b", Role: user.RoleEmployee, Status: user.StatusActive})
	store.PutUser(user.User{ID: "a", Role: user.RoleManager, Status: user.StatusActive})
	store.PutUser(user.User{ID: "c", Role: user.RoleEmployee, Status: user.StatusInactive})

	users := store.Users()
	u, err := users.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, u.IsManager())

	_, err = users.GetByID(ctx, "zzz")
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	active, err := users.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
}
