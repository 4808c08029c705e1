package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/internal/logging"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
)

const (
	// DefaultAttempts bounds how often an update is re-run after a version conflict.
	DefaultAttempts = 3
	// DefaultLockTTL is the lease requested from the distributed locker.
	DefaultLockTTL = 30 * time.Second
)

// Mutation is what an update wants persisted. Records are committed in the
// same unit as Next.
type Mutation struct {
	Next    *domain.SessionState
	Records []domain.CommittedRecord
}

// UpdateFunc computes a mutation from the current state. current is nil when
// the user has no session yet. Returning a nil Mutation writes nothing.
type UpdateFunc func(ctx context.Context, current *domain.SessionState) (*Mutation, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker   ports.DistributedLocker // Optional distributed locker
	lockTTL  time.Duration
	attempts int
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock lease.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithAttempts sets how many times an update runs before a version
// conflict is returned to the caller.
func WithAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.attempts = n
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		attempts: DefaultAttempts,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.SessionState, error) {
	var state *domain.SessionState
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, userID)
		return err
	})
	return state, err
}

// Update runs fn against the user's current state and persists the result.
// fn may run more than once if another writer wins the version race; it
// must be free of side effects beyond its return value.
func (m *Manager) Update(ctx context.Context, userID string, fn UpdateFunc) (*Mutation, error) {
	var applied *Mutation
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		for attempt := 1; ; attempt++ {
			current, expected, err := m.loadCurrent(ctx, userID)
			if err != nil {
				return err
			}

			mut, err := fn(ctx, current)
			if err != nil {
				return err
			}
			if mut == nil || mut.Next == nil {
				applied = mut
				return nil
			}

			mut.Next.Version = expected + 1
			err = m.store.Apply(ctx, userID, expected, mut.Next, mut.Records)
			if err == nil {
				applied = mut
				return nil
			}
			if !errors.Is(err, domain.ErrVersionConflict) || attempt >= m.attempts {
				return fmt.Errorf("failed to apply session update: %w", err)
			}
			m.logger.Debug("session version conflict, retrying",
				"user_id", userID,
				"attempt", attempt,
			)
		}
	})
	return applied, err
}

func (m *Manager) loadCurrent(ctx context.Context, userID string) (*domain.SessionState, int64, error) {
	state, err := m.store.Load(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return nil, 0, nil
	case err != nil:
		return nil, 0, fmt.Errorf("failed to load session: %w", err)
	}
	return state, state.Version, nil
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the user.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"user_id", userID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
