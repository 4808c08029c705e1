package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
	"github.com/malcolmmathew-zz/bot-engine/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	mu        sync.Mutex
	data      map[string]*domain.SessionState
	records   []domain.CommittedRecord
	conflicts int // Apply calls that fail with a version conflict before succeeding
	applies   int
	loadErr   error
}

func (s *SlowStore) Load(ctx context.Context, userID string) (*domain.SessionState, error) {
	time.Sleep(time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if state, ok := s.data[userID]; ok {
		return state.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Apply(ctx context.Context, userID string, expected int64, next *domain.SessionState, records []domain.CommittedRecord) error {
	time.Sleep(time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applies++
	if s.conflicts > 0 {
		s.conflicts--
		return domain.ErrVersionConflict
	}
	if s.data == nil {
		s.data = make(map[string]*domain.SessionState)
	}
	var current int64
	if cur, ok := s.data[userID]; ok {
		current = cur.Version
	}
	if current != expected {
		return domain.ErrVersionConflict
	}
	stored := next.Clone()
	stored.Version = expected + 1
	s.data[userID] = stored
	s.records = append(s.records, records...)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func advance(userID string) session.UpdateFunc {
	return func(ctx context.Context, current *domain.SessionState) (*session.Mutation, error) {
		next := domain.NewSessionState(userID, time.Now())
		if current != nil {
			next = current.Clone()
		}
		next.Cursor++
		return &session.Mutation{Next: next}, nil
	}
}

func TestManager_SerializesUpdates(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	concurrentWrites := 10
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, advance(id))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, concurrentWrites, state.Cursor, "no update is lost")
	assert.Equal(t, int64(concurrentWrites), state.Version)
}

func TestManager_RetriesVersionConflicts(t *testing.T) {
	store := &SlowStore{conflicts: 2}
	manager := session.NewManager(store)

	var calls int
	_, err := manager.Update(context.Background(), "u1", func(ctx context.Context, current *domain.SessionState) (*session.Mutation, error) {
		calls++
		return advance("u1")(ctx, current)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "the update is re-run on fresh state after each conflict")
	assert.Equal(t, 3, store.applies)
}

func TestManager_GivesUpAfterAttempts(t *testing.T) {
	store := &SlowStore{conflicts: 100}
	manager := session.NewManager(store, session.WithAttempts(2))

	_, err := manager.Update(context.Background(), "u1", advance("u1"))
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.Equal(t, 2, store.applies)
}

func TestManager_NilMutationWritesNothing(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)

	mut, err := manager.Update(context.Background(), "u1", func(ctx context.Context, current *domain.SessionState) (*session.Mutation, error) {
		assert.Nil(t, current)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, mut)
	assert.Zero(t, store.applies)
}

func TestManager_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	store := &SlowStore{loadErr: boom}
	_, err := session.NewManager(store).Update(context.Background(), "u1", advance("u1"))
	assert.ErrorIs(t, err, boom)

	_, err = session.NewManager(&SlowStore{}).Update(context.Background(), "u1", func(ctx context.Context, current *domain.SessionState) (*session.Mutation, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestManager_CommitsRecordsWithState(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)

	rec := domain.CommittedRecord{ID: "r1", Collection: "transactions", UserID: "u1"}
	mut, err := manager.Update(context.Background(), "u1", func(ctx context.Context, current *domain.SessionState) (*session.Mutation, error) {
		return &session.Mutation{Next: domain.NewSessionState("u1", time.Now()), Records: []domain.CommittedRecord{rec}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mut.Next.Version)
	assert.Equal(t, []domain.CommittedRecord{rec}, store.records)
}

type countingLocker struct {
	locks   atomic.Int32
	unlocks atomic.Int32
	keys    sync.Map
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.locks.Add(1)
	l.keys.Store(key, ttl)
	return func(ctx context.Context) error {
		l.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(5*time.Second))

	_, err := manager.Update(context.Background(), "u1", advance("u1"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), locker.locks.Load())
	assert.Equal(t, int32(1), locker.unlocks.Load())
	ttl, ok := locker.keys.Load("u1")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, ttl)
}
