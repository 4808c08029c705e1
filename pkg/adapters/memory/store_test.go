package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/memory"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	state := domain.NewSessionState("u1", fixedTime)
	state.PendingData["user_name"] = "Ada"
	require.NoError(t, store.Apply(ctx, "u1", 0, state, nil))

	state.PendingData["user_name"] = "changed"
	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", loaded.PendingData["user_name"])

	loaded.PendingData["user_name"] = "again"
	reloaded, _ := store.Load(ctx, "u1")
	assert.Equal(t, "Ada", reloaded.PendingData["user_name"])
}

func TestMemoryStore_RegisterCollections(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.RegisterCollections(context.Background(), []string{"user", "transactions"}))
	assert.Equal(t, []string{"transactions", "user"}, store.Collections())

	records, err := store.Records(context.Background(), "user")
	require.NoError(t, err)
	assert.Empty(t, records)
}
