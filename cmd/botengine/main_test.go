package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const budgetFlow = "../../pkg/flow/testdata/budget.yaml"

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, _, err := execute(t, "", "validate", budgetFlow)
	require.NoError(t, err)
	assert.Contains(t, out, `Flow is valid: 5 nodes, entry "default"`)
}

func TestValidateCommand_ReportsProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
flow:
  default:
    type: carousel
    options:
      - {name: go, target: nowhere}
  lonely:
    type: message_list
    messages: [Hi]
`), 0o644))

	_, stderr, err := execute(t, "", "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, stderr, `target "nowhere" is not a declared node`)
}

func TestGraphCommand(t *testing.T) {
	out, _, err := execute(t, "", "graph", budgetFlow)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Contains(t, out, "income_prompt")
}

func TestReplayCommand(t *testing.T) {
	t.Setenv("BOTENGINE_STORE", "memory")
	t.Setenv("BOTENGINE_LOG_LEVEL", "error")
	events := `{"sender_id":"u1","kind":"postback","payload_or_text":"log_income","event_id":"a"}
{"sender_id":"u1","kind":"message","payload_or_text":"40","event_id":"b"}
`
	out, stderr, err := execute(t, events, "replay", "--flow", budgetFlow)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"outcome":"completed"`)
	assert.Contains(t, stderr, "Replayed 2 event(s), 0 failed.")
}
