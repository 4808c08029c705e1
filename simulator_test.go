package botengine_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_Run(t *testing.T) {
	var keys []string
	eng := newEngine(t, botengine.WithDeliverer(ports.DelivererFunc(func(_ context.Context, _ string, k []string) error {
		keys = append(keys, k...)
		return nil
	})))

	input := strings.Join([]string{
		"hello",
		"/select log_income",
		"a lot",
		"250",
		"/state",
		"exit",
		"never read",
	}, "\n")
	var out bytes.Buffer
	sim := botengine.NewSimulator(strings.NewReader(input), &out)
	sim.Headless = true

	require.NoError(t, sim.Run(context.Background(), eng))

	assert.Equal(t, []string{"default", "income_prompt_0", "income_prompt_0", "default"}, keys)
	assert.Contains(t, out.String(), "! input type mismatch")
	assert.Contains(t, out.String(), "+ transactions map[amount:250]")
	assert.Contains(t, out.String(), `"version": 3`)
	assert.Contains(t, out.String(), "Bye!")
}

func TestSimulator_EOFWithoutNewline(t *testing.T) {
	eng := newEngine(t)
	var out bytes.Buffer
	sim := botengine.NewSimulator(strings.NewReader("/select help"), &out)

	require.NoError(t, sim.Run(context.Background(), eng))
	assert.Contains(t, out.String(), "--- botengine simulator")

	state, err := eng.Session(context.Background(), botengine.DefaultSimulatorUser)
	require.NoError(t, err)
	assert.Equal(t, "help_message", state.ActiveNode)
}

func TestSimulator_RequiresIO(t *testing.T) {
	eng := newEngine(t)
	assert.Error(t, (&botengine.Simulator{}).Run(context.Background(), eng))
}
