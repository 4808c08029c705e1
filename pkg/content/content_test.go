package content_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/malcolmmathew-zz/bot-engine/pkg/content"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver(t *testing.T) {
	g, err := flow.LoadFile("../flow/testdata/budget.yaml")
	require.NoError(t, err)
	r := content.NewResolver(g, map[string]string{"default": "What would you like to do?"})

	menu := r.Resolve("default")
	assert.Equal(t, content.KindMenu, menu.Kind)
	assert.Equal(t, "What would you like to do?", menu.Text)
	require.NotEmpty(t, menu.Choices)
	assert.Equal(t, content.Choice{Label: "log_income", Payload: "LOG_INCOME"}, menu.Choices[0])

	prompt := r.Resolve("expense_prompt_1")
	assert.Equal(t, content.KindPrompt, prompt.Kind)
	assert.Equal(t, "expense_prompt", prompt.Node)
	assert.Equal(t, "What was it for?", prompt.Text)
	assert.Equal(t, domain.InputString, prompt.Expects)

	assert.Equal(t, content.KindLiteral, r.Resolve("expense_prompt_9").Kind, "index out of range")
	lit := r.Resolve("thanks_for_feedback")
	assert.Equal(t, content.KindLiteral, lit.Kind)
	assert.Equal(t, "thanks_for_feedback", lit.Text)

	assert.Len(t, r.ResolveAll([]string{"default", "income_prompt_0"}), 2)
}

func TestLoadTexts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: Main menu\nthanks: Thank you!\n"), 0o644))

	texts, err := content.LoadTexts(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"default": "Main menu", "thanks": "Thank you!"}, texts)
}
