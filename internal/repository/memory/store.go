// Package memory is an in-process implementation of the leave stores. It is
// used in development mode and by the engine tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
)

type txKey struct{}

// Store holds all tables behind one lock. A unit of work holds the write lock
// for its whole duration, which serialises transitions the way row locks do.
type Store struct {
	mu       sync.RWMutex
	users    map[string]user.User
	requests map[string]leave.LeaveRequest
	balances map[leave.BalanceKey]leave.LeaveBalance
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]user.User),
		requests: make(map[string]leave.LeaveRequest),
		balances: make(map[leave.BalanceKey]leave.LeaveBalance),
	}
}

// inTx reports whether ctx carries a unit of work opened on s itself.
func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// read runs fn under the read lock unless ctx already owns the write lock.
func (s *Store) read(ctx context.Context, fn func()) {
	if s.inTx(ctx) {
		fn()
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// write runs fn under the write lock unless ctx already owns it.
func (s *Store) write(ctx context.Context, fn func()) {
	if s.inTx(ctx) {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// WithinTx implements leave.Transactor. On error every table is restored to
// its state at the start of the unit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requests := maps.Clone(s.requests)
	balances := maps.Clone(s.balances)

	defer func() {
		if p := recover(); p != nil {
			s.requests, s.balances = requests, balances
			panic(p)
		}
		if err != nil {
			s.requests, s.balances = requests, balances
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// PutUser adds or replaces a user record.
func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) Users() user.UserRepository {
	return &userRepository{store: s}
}

func (s *Store) Requests() leave.LeaveRequestRepository {
	return &requestRepository{store: s}
}

func (s *Store) Balances() leave.LeaveBalanceRepository {
	return &balanceRepository{store: s}
}
