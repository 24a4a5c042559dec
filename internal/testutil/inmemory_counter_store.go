package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/numera/numera/internal/domain/sequence"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
)

var _ sequence.Repository = (*InMemoryCounterStore)(nil)

// counterEntry is one counter row. The lock channel emulates the exclusive
// row lock: held from first allocation in a transaction until that
// transaction commits or rolls back.
type counterEntry struct {
	lock       chan struct{}
	lastIssued int64
	updatedAt  time.Time
}

// counterTxState is the uncommitted view of a locked counter within one
// transaction.
type counterTxState struct {
	entry   *counterEntry
	scope   string
	base    int64
	pending int64
}

// InMemoryCounterStore emulates the counters table with row-level locking.
// A second transaction allocating on the same scope blocks until the first
// finishes, bounded by lockTimeout, and then fails with contention exactly
// like a lock_timeout on the real store.
type InMemoryCounterStore struct {
	mu          sync.Mutex
	counters    map[string]*counterEntry
	lockTimeout time.Duration

	callsMu  sync.Mutex
	calls    int
	failNext func(call int, scope types.ScopeKey) error
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		counters:    make(map[string]*counterEntry),
		lockTimeout: 250 * time.Millisecond,
	}
}

// SetLockTimeout overrides how long Next waits on a contended scope.
func (s *InMemoryCounterStore) SetLockTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockTimeout = d
}

// FailNext installs a fault hook invoked before each allocation with the
// 1-based call count. Returning a non-nil error fails that allocation.
func (s *InMemoryCounterStore) FailNext(fn func(call int, scope types.ScopeKey) error) {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	s.failNext = fn
}

// Calls reports how many allocations were attempted.
func (s *InMemoryCounterStore) Calls() int {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	return s.calls
}

func (s *InMemoryCounterStore) entry(key string) *counterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.counters[key]
	if !ok {
		e = &counterEntry{lock: make(chan struct{}, 1)}
		s.counters[key] = e
	}
	return e
}

func (s *InMemoryCounterStore) Next(ctx context.Context, scope types.ScopeKey) (int64, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return 0, ierr.NewError("sequence allocation requires a transaction").
			WithHint("internal misuse of the allocator").
			Mark(ierr.ErrSystem)
	}

	s.callsMu.Lock()
	s.calls++
	call := s.calls
	failNext := s.failNext
	s.callsMu.Unlock()

	if failNext != nil {
		if err := failNext(call, scope); err != nil {
			return 0, err
		}
	}

	key := scope.Key()

	tx.mu.Lock()
	state, held := tx.counters[key]
	tx.mu.Unlock()
	if held {
		state.pending++
		return state.base + state.pending, nil
	}

	e := s.entry(key)

	s.mu.Lock()
	timeout := s.lockTimeout
	s.mu.Unlock()

	select {
	case e.lock <- struct{}{}:
	case <-time.After(timeout):
		return 0, ierr.NewError("counter row is locked by another transaction").
			WithHint("another document is being numbered in this scope, retry").
			WithReportableDetails(map[string]any{"scope_key": key}).
			Mark(ierr.ErrSequenceContention)
	case <-ctx.Done():
		return 0, ierr.WithError(ctx.Err()).
			WithHint("allocation canceled while waiting for the counter lock").
			Mark(ierr.ErrTimeout)
	}

	s.mu.Lock()
	state = &counterTxState{entry: e, scope: key, base: e.lastIssued, pending: 1}
	s.mu.Unlock()

	tx.mu.Lock()
	tx.counters[key] = state
	tx.mu.Unlock()

	tx.stage(
		func() {
			s.mu.Lock()
			e.lastIssued = state.base + state.pending
			e.updatedAt = time.Now().UTC()
			s.mu.Unlock()
			<-e.lock
		},
		func() {
			<-e.lock
		},
	)

	return state.base + 1, nil
}

func (s *InMemoryCounterStore) Get(ctx context.Context, scope types.ScopeKey) (*sequence.Counter, error) {
	key := scope.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.counters[key]
	if !ok || e.lastIssued == 0 {
		return nil, ierr.NewError("counter not found").
			WithHintf("no numbers allocated for scope %s yet", key).
			Mark(ierr.ErrNotFound)
	}

	return &sequence.Counter{
		ScopeKey:   key,
		LastIssued: e.lastIssued,
		UpdatedAt:  e.updatedAt,
	}, nil
}
