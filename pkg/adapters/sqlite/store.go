// Package sqlite stores sessions and the committed-record ledger in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements ports.SessionStore, ports.RecordReader and
// ports.CollectionRegistrar. Apply runs in a single SQL transaction.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at dsn.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			active_node TEXT NOT NULL DEFAULT '',
			cursor INTEGER NOT NULL DEFAULT 0,
			flow_open INTEGER NOT NULL DEFAULT 0,
			pending_data TEXT,
			last_event_kind TEXT NOT NULL DEFAULT '',
			recent_events TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT UNIQUE,
			collection TEXT NOT NULL,
			user_id TEXT NOT NULL,
			fields TEXT NOT NULL,
			completed_at TEXT,
			node TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_records_user ON records(user_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load retrieves a session by user id.
func (s *Store) Load(ctx context.Context, userID string) (*domain.SessionState, error) {
	var (
		state                domain.SessionState
		flowOpen             int
		pending, recent      sql.NullString
		lastKind             string
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, version, active_node, cursor, flow_open, pending_data, last_event_kind, recent_events, created_at, updated_at
		 FROM sessions WHERE user_id = ?`, userID).
		Scan(&state.UserID, &state.Version, &state.ActiveNode, &state.Cursor, &flowOpen, &pending, &lastKind, &recent, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	state.FlowOpen = flowOpen != 0
	state.LastEventKind = domain.EventKind(lastKind)
	state.PendingData = make(map[string]string)
	if pending.Valid && pending.String != "" {
		if err := json.Unmarshal([]byte(pending.String), &state.PendingData); err != nil {
			return nil, fmt.Errorf("failed to decode pending data: %w", err)
		}
	}
	if recent.Valid && recent.String != "" {
		if err := json.Unmarshal([]byte(recent.String), &state.RecentEvents); err != nil {
			return nil, fmt.Errorf("failed to decode recent events: %w", err)
		}
	}
	if state.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if state.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &state, nil
}

// Apply writes the session and appends records in one transaction.
func (s *Store) Apply(ctx context.Context, userID string, expected int64, next *domain.SessionState, records []domain.CommittedRecord) error {
	pending, err := json.Marshal(next.PendingData)
	if err != nil {
		return fmt.Errorf("failed to encode pending data: %w", err)
	}
	recent, err := json.Marshal(next.RecentEvents)
	if err != nil {
		return fmt.Errorf("failed to encode recent events: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if expected == 0 {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO sessions (user_id, version, active_node, cursor, flow_open, pending_data, last_event_kind, recent_events, created_at, updated_at)
			 VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO NOTHING`,
			userID, next.ActiveNode, next.Cursor, boolInt(next.FlowOpen), string(pending), string(next.LastEventKind), string(recent),
			formatTime(next.CreatedAt), formatTime(next.UpdatedAt))
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE sessions SET version = version + 1, active_node = ?, cursor = ?, flow_open = ?, pending_data = ?,
			 last_event_kind = ?, recent_events = ?, updated_at = ?
			 WHERE user_id = ? AND version = ?`,
			next.ActiveNode, next.Cursor, boolInt(next.FlowOpen), string(pending), string(next.LastEventKind), string(recent),
			formatTime(next.UpdatedAt), userID, expected)
	}
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if n == 0 {
		return domain.ErrVersionConflict
	}

	for _, rec := range records {
		if err := insertRecord(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec domain.CommittedRecord) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode record fields: %w", err)
	}
	var id, completed sql.NullString
	if rec.ID != "" {
		id = sql.NullString{String: rec.ID, Valid: true}
	}
	if rec.CompletedAt != nil {
		completed = sql.NullString{String: formatTime(*rec.CompletedAt), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name) VALUES (?)`, rec.Collection); err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO records (record_id, collection, user_id, fields, completed_at, node) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.Collection, rec.UserID, string(fields), completed, rec.Node)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// List returns every known user id.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM sessions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// Records returns a collection in commit order.
func (s *Store) Records(ctx context.Context, collection string) ([]domain.CommittedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, collection, user_id, fields, completed_at, node FROM records WHERE collection = ? ORDER BY seq`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []domain.CommittedRecord
	for rows.Next() {
		var (
			rec           domain.CommittedRecord
			id, completed sql.NullString
			fields        string
		)
		if err := rows.Scan(&id, &rec.Collection, &rec.UserID, &fields, &completed, &rec.Node); err != nil {
			return nil, err
		}
		rec.ID = id.String
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode record fields: %w", err)
		}
		if completed.Valid {
			ts, err := parseTime(completed.String)
			if err != nil {
				return nil, err
			}
			rec.CompletedAt = &ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RegisterCollections creates collection entries ahead of their first record.
func (s *Store) RegisterCollections(ctx context.Context, names []string) error {
	for _, name := range names {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("failed to register collection %q: %w", name, err)
		}
	}
	return nil
}

// Collections lists registered collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
