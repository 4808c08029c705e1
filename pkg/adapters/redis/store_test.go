package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/redis"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunSessionStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	store, mr := newStore(t, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, "u1", 0, domain.NewSessionState("u1", time.Now()), nil))

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, "u1")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned against the wall clock.
	time.Sleep(1200 * time.Millisecond)
	users, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRedisStore_TTL_KeepsSessionsMidFlow(t *testing.T) {
	store, mr := newStore(t, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	state := domain.NewSessionState("u1", time.Now())
	state.ActiveNode = "expense_prompt"
	state.Cursor = 1
	state.PendingData = map[string]string{"transactions_amount": "12"}
	require.NoError(t, store.Apply(ctx, "u1", 0, state, nil))
	assert.Zero(t, mr.TTL("botengine:session:u1"))

	mr.FastForward(2 * time.Second)

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "expense_prompt", loaded.ActiveNode)
	assert.Equal(t, map[string]string{"transactions_amount": "12"}, loaded.PendingData)

	// Back to idle, the expiry applies again.
	idle := loaded.Clone()
	idle.ActiveNode = ""
	idle.Cursor = 0
	idle.PendingData = nil
	require.NoError(t, store.Apply(ctx, "u1", loaded.Version, idle, nil))
	mr.FastForward(2 * time.Second)
	_, err = store.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("custom:app:"), redis.WithLedgerPrefix("custom:ledger:"))
	ctx := context.Background()

	rec := domain.CommittedRecord{ID: "r1", Collection: "transactions", UserID: "me", Fields: map[string]string{"amount": "1"}}
	require.NoError(t, store.Apply(ctx, "me", 0, domain.NewSessionState("me", time.Now()), []domain.CommittedRecord{rec}))

	assert.True(t, mr.Exists("custom:app:me"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")
	assert.True(t, mr.Exists("custom:ledger:records:transactions"))
	ok, err := mr.SIsMember("custom:ledger:ids", "r1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_Collections(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterCollections(ctx, []string{"user", "transactions"}))
	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user", "transactions"}, names)
}
