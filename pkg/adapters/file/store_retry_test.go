package file

import (
	"bufio"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/internal/runtime"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RetryAfterFailedSessionWrite(t *testing.T) {
	g, err := flow.Load(&flow.Spec{
		Database: flow.DatabaseSpec{Collections: []string{"transactions"}},
		Flow: map[string]flow.NodeSpec{
			"default": {Type: "carousel", Options: []flow.OptionSpec{{Name: "log", Target: "amount"}}},
			"amount": {Type: "message_list", Messages: []flow.MessageSpec{
				{Message: "How much?", ExpectedInput: "float", Storage: "transactions.amount"},
			}},
		},
	})
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := runtime.New(g, runtime.WithClock(func() time.Time { return now }))
	store := New(t.TempDir())
	ctx := context.Background()

	// Selection, persisted normally. Events carry no id.
	tr, err := in.Step(domain.NewSessionState("u1", now), domain.ClassifiedEvent{Kind: domain.EventSelection, SenderID: "u1", Payload: "LOG"})
	require.NoError(t, err)
	require.NoError(t, store.Apply(ctx, "u1", 0, tr.Next, tr.Records))

	answer := domain.ClassifiedEvent{Kind: domain.EventTextResponse, SenderID: "u1", Text: "12"}
	state, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	tr, err = in.Step(state, answer)
	require.NoError(t, err)
	require.Len(t, tr.Records, 1)

	diskFull := errors.New("disk full")
	store.writeFile = func(string, []byte) error { return diskFull }
	err = store.Apply(ctx, "u1", state.Version, tr.Next, tr.Records)
	require.ErrorIs(t, err, diskFull)

	// The redelivered answer runs against the same stored state.
	store.writeFile = writeAtomic
	state, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	retry, err := in.Step(state, answer)
	require.NoError(t, err)
	require.Len(t, retry.Records, 1)
	assert.Equal(t, tr.Records[0].ID, retry.Records[0].ID)
	require.NoError(t, store.Apply(ctx, "u1", state.Version, retry.Next, retry.Records))

	assert.Equal(t, 1, countLines(t, store.ledgerPath("transactions")))
	recs, err := store.Records(ctx, "transactions")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]string{"amount": "12"}, recs[0].Fields)

	// A fresh store reading the same directory agrees.
	reopened := New(store.BasePath)
	recs, err = reopened.Records(ctx, "transactions")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) > 0 {
			n++
		}
	}
	require.NoError(t, sc.Err())
	return n
}
