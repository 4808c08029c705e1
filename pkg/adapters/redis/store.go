// Package redis provides the Redis session store and distributed locker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix       = "botengine:session:"
	defaultLedgerPrefix = "botengine:ledger:"
	// farFuture is the index score of sessions without a TTL (2100-01-01).
	farFuture = 4102444800
)

// Store implements ports.SessionStore, ports.RecordReader and
// ports.CollectionRegistrar using Redis.
//
// Sessions are JSON strings under prefix+userID, indexed in a ZSET. Records
// are JSON list entries per collection; a set of committed record ids makes
// appends idempotent. Apply runs under WATCH so the state write and the
// record appends land in the same MULTI/EXEC.
type Store struct {
	client       *backend.Client
	prefix       string
	ledgerPrefix string
	ttl          time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for idle sessions. A session in the middle of a
// flow, or holding uncommitted answers, is stored without expiry until it
// returns to idle. Records never expire.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLedgerPrefix sets the key prefix for committed records.
func WithLedgerPrefix(prefix string) Option {
	return func(s *Store) {
		s.ledgerPrefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client:       client,
		prefix:       defaultPrefix,
		ledgerPrefix: defaultLedgerPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(userID string) string {
	return s.prefix + userID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) recordsKey(collection string) string {
	return s.ledgerPrefix + "records:" + collection
}

func (s *Store) recordIDsKey() string {
	return s.ledgerPrefix + "ids"
}

func (s *Store) collectionsKey() string {
	return s.ledgerPrefix + "collections"
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, userID string) (*domain.SessionState, error) {
	return s.load(ctx, s.client, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, userID string) (*domain.SessionState, error) {
	val, err := c.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

func (s *Store) expiry(state *domain.SessionState) time.Duration {
	if !state.Idle() || len(state.PendingData) > 0 {
		return 0
	}
	return s.ttl
}

// Apply writes the state and appends records in one transaction.
func (s *Store) Apply(ctx context.Context, userID string, expected int64, next *domain.SessionState, records []domain.CommittedRecord) error {
	stored := next.Clone()
	stored.Version = expected + 1
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	txf := func(tx *backend.Tx) error {
		var current int64
		state, err := s.load(ctx, tx, userID)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
		case err != nil:
			return err
		default:
			current = state.Version
		}
		if current != expected {
			return domain.ErrVersionConflict
		}

		fresh, err := s.unseen(ctx, tx, records)
		if err != nil {
			return err
		}

		ttl := s.expiry(stored)
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, s.key(userID), data, ttl)

			// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
			score := float64(time.Now().Add(ttl).Unix())
			if ttl == 0 {
				score = farFuture
			}
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: userID})

			for _, rec := range fresh {
				pipe.RPush(ctx, s.recordsKey(rec.Collection), rec.raw)
				if rec.ID != "" {
					pipe.SAdd(ctx, s.recordIDsKey(), rec.ID)
				}
				pipe.SAdd(ctx, s.collectionsKey(), rec.Collection)
			}
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, s.key(userID), s.recordIDsKey())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, backend.TxFailedErr):
		return domain.ErrVersionConflict
	default:
		return fmt.Errorf("failed to apply session to redis: %w", err)
	}
}

// encodedRecord is a record with its JSON encoding.
type encodedRecord struct {
	domain.CommittedRecord
	raw []byte
}

// unseen drops records whose id was already committed.
func (s *Store) unseen(ctx context.Context, tx *backend.Tx, records []domain.CommittedRecord) ([]encodedRecord, error) {
	out := make([]encodedRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID != "" {
			dup, err := tx.SIsMember(ctx, s.recordIDsKey(), rec.ID).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to check record id: %w", err)
			}
			if dup {
				continue
			}
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record: %w", err)
		}
		out = append(out, encodedRecord{CommittedRecord: rec, raw: raw})
	}
	return out, nil
}

// List returns active sessions from the index.
// Expired entries are pruned lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	users, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return users, nil
}

// Records returns a collection in commit order.
func (s *Store) Records(ctx context.Context, collection string) ([]domain.CommittedRecord, error) {
	vals, err := s.client.LRange(ctx, s.recordsKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	out := make([]domain.CommittedRecord, 0, len(vals))
	for _, v := range vals {
		var rec domain.CommittedRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RegisterCollections records the declared collections.
func (s *Store) RegisterCollections(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	members := make([]any, len(names))
	for i, n := range names {
		members[i] = n
	}
	if err := s.client.SAdd(ctx, s.collectionsKey(), members...).Err(); err != nil {
		return fmt.Errorf("failed to register collections: %w", err)
	}
	return nil
}

// Collections lists registered collections and those holding records.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.collectionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
