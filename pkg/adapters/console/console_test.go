package console_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/console"
	"github.com/malcolmmathew-zz/bot-engine/pkg/content"
	"github.com/malcolmmathew-zz/bot-engine/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverer(t *testing.T) {
	g, err := flow.LoadFile("../../flow/testdata/budget.yaml")
	require.NoError(t, err)

	var buf bytes.Buffer
	d := console.New(&buf, content.NewResolver(g, nil), nil)
	require.NoError(t, d.Deliver(context.Background(), "local", []string{"default", "income_prompt_0", "bye"}))

	out := buf.String()
	assert.Contains(t, out, "- `/select LOG_INCOME`  log_income")
	assert.Contains(t, out, "**How much did you earn?** _(number)_")
	assert.Contains(t, out, "bye\n")
}
