package botengine_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/memory"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay(t *testing.T) {
	eng := newEngine(t)
	input := strings.Join([]string{
		`{"sender_id":"u1","kind":"message","payload_or_text":"hi","event_id":"m1"}`,
		``,
		`{"sender_id":"u1","kind":"postback","payload_or_text":"log_income","event_id":"m2"}`,
		`{"sender_id":"u1","kind":"message","payload_or_text":"lots","event_id":"m3"}`,
		`{"sender_id":"u1","kind":"message","payload_or_text":"12","event_id":"m4"}`,
		`{"sender_id":"u1","kind":"delivery","event_id":"d1"}`,
	}, "\n")

	var out bytes.Buffer
	stats, err := botengine.Replay(context.Background(), eng, strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, botengine.ReplayStats{Events: 5}, stats)

	var lines []botengine.ReplayLine
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var l botengine.ReplayLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 5)

	assert.Equal(t, 1, lines[0].Line)
	assert.Equal(t, domain.OutcomeAdvanced, lines[0].Outcome)

	assert.Equal(t, 3, lines[1].Line)
	assert.Equal(t, []string{"income_prompt_0"}, lines[1].ContentKeys)

	assert.Equal(t, domain.OutcomeReprompt, lines[2].Outcome)
	assert.NotEmpty(t, lines[2].Reason)

	assert.Equal(t, domain.OutcomeCompleted, lines[3].Outcome)
	require.Len(t, lines[3].Records, 1)
	assert.Equal(t, "transactions", lines[3].Records[0].Collection)

	assert.Equal(t, domain.EventDeliveryReceipt, lines[4].Event)
	assert.Equal(t, domain.OutcomeIgnored, lines[4].Outcome)
}

func TestReplay_MalformedLine(t *testing.T) {
	eng := newEngine(t)
	input := `{"sender_id":"u1","kind":"message","payload_or_text":"hi"}` + "\n{not json\n"

	var out bytes.Buffer
	stats, err := botengine.Replay(context.Background(), eng, strings.NewReader(input), &out)
	require.Error(t, err)
	assert.ErrorContains(t, err, "line 2")
	assert.Equal(t, 1, stats.Events)
}

func TestReplay_ReportsEngineFailures(t *testing.T) {
	store := memory.NewStore()
	broken := domain.NewSessionState("broken", fixedNow)
	broken.ActiveNode = "deleted_node"
	require.NoError(t, store.Apply(context.Background(), "broken", 0, broken, nil))
	eng := newEngine(t, botengine.WithStore(store))
	input := `{"sender_id":"broken","kind":"message","payload_or_text":"hi"}` + "\n"

	var out bytes.Buffer
	stats, err := botengine.Replay(context.Background(), eng, strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, botengine.ReplayStats{Events: 1, Failed: 1}, stats)
	assert.Contains(t, out.String(), `"error"`)
}
