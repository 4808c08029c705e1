package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// Store implements ports.SessionStore, ports.RecordReader and
// ports.CollectionRegistrar in memory.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.SessionState
	records  map[string][]domain.CommittedRecord
	seen     map[string]bool // committed record ids
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*domain.SessionState),
		records:  make(map[string][]domain.CommittedRecord),
		seen:     make(map[string]bool),
	}
}

// Load retrieves the state from memory.
func (s *Store) Load(ctx context.Context, userID string) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	// Copy on read so callers can't mutate store state through the pointer
	return state.Clone(), nil
}

// Apply checks the version, then stores the state and appends the records
// under one lock.
func (s *Store) Apply(ctx context.Context, userID string, expected int64, next *domain.SessionState, records []domain.CommittedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if state, ok := s.sessions[userID]; ok {
		current = state.Version
	}
	if current != expected {
		return domain.ErrVersionConflict
	}

	stored := next.Clone()
	stored.Version = expected + 1
	s.sessions[userID] = stored

	for _, rec := range records {
		if rec.ID != "" && s.seen[rec.ID] {
			continue
		}
		s.seen[rec.ID] = true
		s.records[rec.Collection] = append(s.records[rec.Collection], copyRecord(rec))
	}
	return nil
}

// List returns known users, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

// Records returns a copy of a collection in commit order.
func (s *Store) Records(ctx context.Context, collection string) ([]domain.CommittedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CommittedRecord, 0, len(s.records[collection]))
	for _, rec := range s.records[collection] {
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

// RegisterCollections makes empty collections visible before their first record.
func (s *Store) RegisterCollections(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if _, ok := s.records[name]; !ok {
			s.records[name] = nil
		}
	}
	return nil
}

// Collections lists every collection that is registered or has records.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyRecord(rec domain.CommittedRecord) domain.CommittedRecord {
	fields := make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	rec.Fields = fields
	if rec.CompletedAt != nil {
		ts := *rec.CompletedAt
		rec.CompletedAt = &ts
	}
	return rec
}
