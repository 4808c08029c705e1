package middleware_test

import (
	"context"
	"testing"

	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/memory"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	// Mask answers containing "phone" or "ssn"
	secure := middleware.NewPIIMiddleware([]string{"phone", "ssn"})(underlying)
	ctx := context.Background()

	state := pendingState("u1", map[string]string{
		"user_name":       "jdoe",
		"user_phone":      "555-0100",
		"identity_ssn_no": "999-99-9999",
	})
	rec := domain.CommittedRecord{ID: "r1", Collection: "user", UserID: "u1", Fields: map[string]string{"name": "jdoe", "phone": "555-0100"}}
	require.NoError(t, secure.Apply(ctx, "u1", 0, state, []domain.CommittedRecord{rec}))

	assert.Equal(t, "555-0100", state.PendingData["user_phone"], "Middleware modified original state in memory!")
	assert.Equal(t, "555-0100", rec.Fields["phone"])

	stored, err := underlying.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.PendingData["user_name"])
	assert.Equal(t, middleware.Mask, stored.PendingData["user_phone"])
	assert.Equal(t, middleware.Mask, stored.PendingData["identity_ssn_no"])

	records, err := underlying.Records(ctx, "user")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "jdoe", records[0].Fields["name"])
	assert.Equal(t, middleware.Mask, records[0].Fields["phone"])
}

func TestChain_OrderAndPassthrough(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"phone"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, "u1", 0, pendingState("u1", map[string]string{"user_phone": "1", "user_name": "Ada"}), nil))
	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.PendingData["user_phone"])
	assert.Equal(t, "Ada", loaded.PendingData["user_name"])

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)
}
