// Package file persists sessions and the record ledger on the local
// filesystem. It is meant for a single process: concurrent writers in other
// processes are not detected.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

const (
	sessionsDir = "sessions"
	ledgerDir   = "ledger"
	sessionExt  = ".json"
	ledgerExt   = ".jsonl"
)

// Store implements ports.SessionStore, ports.RecordReader and
// ports.CollectionRegistrar on top of a directory:
//
//	<base>/sessions/<user>.json      one file per user, replaced atomically
//	<base>/ledger/<collection>.jsonl append-only records, one JSON per line
type Store struct {
	BasePath string

	mu        sync.Mutex
	seen      map[string]bool // record ids already in the ledger; nil until loaded
	writeFile func(path string, data []byte) error
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".botengine".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = ".botengine"
	}
	return &Store{BasePath: basePath, writeFile: writeAtomic}
}

func (s *Store) sessionPath(userID string) string {
	return filepath.Join(s.BasePath, sessionsDir, url.PathEscape(userID)+sessionExt)
}

func (s *Store) ledgerPath(collection string) string {
	return filepath.Join(s.BasePath, ledgerDir, url.PathEscape(collection)+ledgerExt)
}

// Load retrieves the session state from its JSON file.
func (s *Store) Load(ctx context.Context, userID string) (*domain.SessionState, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}
	return s.read(userID)
}

func (s *Store) read(userID string) (*domain.SessionState, error) {
	data, err := os.ReadFile(s.sessionPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

// Apply checks the stored version, appends unseen records and then replaces
// the session file. Records carry deterministic ids, so a crash between the
// two steps is repaired by the redelivered event without duplicates.
func (s *Store) Apply(ctx context.Context, userID string, expected int64, next *domain.SessionState, records []domain.CommittedRecord) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	state, err := s.read(userID)
	switch {
	case err == nil:
		current = state.Version
	case !errors.Is(err, domain.ErrSessionNotFound):
		return err
	}
	if current != expected {
		return domain.ErrVersionConflict
	}

	if err := s.appendRecords(records); err != nil {
		return err
	}

	stored := next.Clone()
	stored.Version = expected + 1
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return s.writeFile(s.sessionPath(userID), data)
}

func (s *Store) appendRecords(records []domain.CommittedRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.loadSeen(); err != nil {
		return err
	}

	byCollection := make(map[string][]domain.CommittedRecord)
	for _, rec := range records {
		if rec.ID != "" && s.seen[rec.ID] {
			continue
		}
		byCollection[rec.Collection] = append(byCollection[rec.Collection], rec)
	}

	for collection, recs := range byCollection {
		if err := s.appendLines(collection, recs); err != nil {
			return err
		}
		for _, rec := range recs {
			s.seen[rec.ID] = true
		}
	}
	return nil
}

func (s *Store) appendLines(collection string, recs []domain.CommittedRecord) error {
	path := s.ledgerPath(collection)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to ensure ledger directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	var buf []byte
	for _, rec := range recs {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		buf = append(append(buf, line...), '\n')
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("failed to append records: %w", err)
	}
	return f.Sync()
}

// loadSeen indexes the ids of every ledger file once.
func (s *Store) loadSeen() error {
	if s.seen != nil {
		return nil
	}
	seen := make(map[string]bool)
	names, err := s.collections()
	if err != nil {
		return err
	}
	for _, name := range names {
		recs, err := s.readLedger(name)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			seen[rec.ID] = true
		}
	}
	s.seen = seen
	return nil
}

// List returns all known user ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.BasePath, sessionsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	users := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != sessionExt || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, sessionExt))
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

// Records returns a collection in commit order.
func (s *Store) Records(ctx context.Context, collection string) ([]domain.CommittedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLedger(collection)
}

func (s *Store) readLedger(collection string) ([]domain.CommittedRecord, error) {
	f, err := os.Open(s.ledgerPath(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.CommittedRecord{}, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	var out []domain.CommittedRecord
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.CommittedRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corrupted ledger %s: %w", collection, err)
		}
		if rec.ID != "" && seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if out == nil {
		out = []domain.CommittedRecord{}
	}
	return out, nil
}

// RegisterCollections creates an empty ledger file per collection.
func (s *Store) RegisterCollections(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(s.BasePath, ledgerDir), 0o755); err != nil {
		return fmt.Errorf("failed to ensure ledger directory: %w", err)
	}
	for _, name := range names {
		f, err := os.OpenFile(s.ledgerPath(name), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		f.Close()
	}
	return nil
}

// Collections lists every collection with a ledger file, sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collections()
}

func (s *Store) collections() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.BasePath, ledgerDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ledgerExt {
			continue
		}
		if id, err := url.PathUnescape(strings.TrimSuffix(name, ledgerExt)); err == nil {
			names = append(names, id)
		}
	}
	sort.Strings(names)
	return names, nil
}

// writeAtomic writes to a temporary file in the same directory, syncs it and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-*"+sessionExt)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to session: %w", err)
	}
	return nil
}
