package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract. Ledger checks run
// only when the store also implements RecordReader.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405.000000000")
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	reader, hasLedger := store.(RecordReader)

	newState := func(userID string) *domain.SessionState {
		s := domain.NewSessionState(userID, now)
		s.ActiveNode = "onboarding"
		s.Cursor = 1
		s.FlowOpen = true
		s.PendingData["user_name"] = "Ada"
		s.LastEventKind = domain.EventTextResponse
		s.Remember("mid.1")
		return s
	}

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Create and Load", func(t *testing.T) {
		userID := prefix + "-create"
		require.NoError(t, store.Apply(ctx, userID, 0, newState(userID), nil))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, userID, loaded.UserID)
		assert.Equal(t, int64(1), loaded.Version)
		assert.Equal(t, "onboarding", loaded.ActiveNode)
		assert.Equal(t, 1, loaded.Cursor)
		assert.True(t, loaded.FlowOpen)
		assert.Equal(t, map[string]string{"user_name": "Ada"}, loaded.PendingData)
		assert.Equal(t, domain.EventTextResponse, loaded.LastEventKind)
		assert.Equal(t, []string{"mid.1"}, loaded.RecentEvents)
		assert.True(t, now.Equal(loaded.CreatedAt))
	})

	t.Run("Update Bumps Version", func(t *testing.T) {
		userID := prefix + "-update"
		require.NoError(t, store.Apply(ctx, userID, 0, newState(userID), nil))

		next := newState(userID)
		next.ResetFlow()
		require.NoError(t, store.Apply(ctx, userID, 1, next, nil))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), loaded.Version)
		assert.True(t, loaded.Idle())
		assert.Empty(t, loaded.PendingData)
	})

	t.Run("Version Conflict", func(t *testing.T) {
		userID := prefix + "-conflict"
		require.NoError(t, store.Apply(ctx, userID, 0, newState(userID), nil))

		stale := newState(userID)
		stale.ActiveNode = "elsewhere"
		rec := domain.CommittedRecord{ID: prefix + "-conflict-rec", Collection: "user", UserID: userID, Fields: map[string]string{"name": "x"}}

		err := store.Apply(ctx, userID, 0, stale, []domain.CommittedRecord{rec})
		assert.ErrorIs(t, err, domain.ErrVersionConflict, "creating an existing session conflicts")
		err = store.Apply(ctx, userID, 7, stale, []domain.CommittedRecord{rec})
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "onboarding", loaded.ActiveNode, "a conflicting write changes nothing")

		if hasLedger {
			records, err := reader.Records(ctx, "user")
			require.NoError(t, err)
			for _, r := range records {
				assert.NotEqual(t, rec.ID, r.ID, "records of a conflicting write are not appended")
			}
		}
	})

	t.Run("Records Commit With State", func(t *testing.T) {
		if !hasLedger {
			t.Skip("store does not expose its ledger")
		}
		userID := prefix + "-ledger"
		collection := "transactions"
		date := now.Add(time.Minute)
		recs := []domain.CommittedRecord{
			{ID: userID + "-1", Collection: collection, UserID: userID, Fields: map[string]string{"amount": "12.50"}, CompletedAt: &date, Node: "income_prompt"},
		}
		before, err := reader.Records(ctx, collection)
		require.NoError(t, err)

		require.NoError(t, store.Apply(ctx, userID, 0, newState(userID), recs))

		after, err := reader.Records(ctx, collection)
		require.NoError(t, err)
		require.Len(t, after, len(before)+1)
		got := after[len(after)-1]
		assert.Equal(t, recs[0].ID, got.ID)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, map[string]string{"amount": "12.50"}, got.Fields)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, date.Equal(*got.CompletedAt))
		assert.Equal(t, "income_prompt", got.Node)

		// The same record id is never stored twice.
		require.NoError(t, store.Apply(ctx, userID, 1, newState(userID), recs))
		again, err := reader.Records(ctx, collection)
		require.NoError(t, err)
		assert.Len(t, again, len(after))
	})

	t.Run("List", func(t *testing.T) {
		id1 := prefix + "-list-1"
		id2 := prefix + "-list-2"
		require.NoError(t, store.Apply(ctx, id1, 0, newState(id1), nil))
		require.NoError(t, store.Apply(ctx, id2, 0, newState(id2), nil))

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, id1)
		assert.Contains(t, users, id2)
	})

	t.Run("Concurrent Writers", func(t *testing.T) {
		userID := prefix + "-race"
		require.NoError(t, store.Apply(ctx, userID, 0, newState(userID), nil))

		const writers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Apply(ctx, userID, 1, newState(userID), nil)
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, domain.ErrVersionConflict)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded, "exactly one writer wins a version")
	})
}
