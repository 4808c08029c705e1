package dsl_test

import (
	"testing"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/dsl"
	"github.com/malcolmmathew-zz/bot-engine/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_BudgetFlow(t *testing.T) {
	b := dsl.New("user", "transactions")

	b.Carousel("default").
		Option("onboard", "onboarding").
		Option("log_expense", "expense").Store("transactions.kind")

	b.MessageList("onboarding").
		Ask("What is your name?").Store("user.name").
		Ask("How old are you?").Expect("integer").Store("user.age").
		Then("default")

	b.MessageList("expense").
		Ask("How much did you spend?").Expect("float").Store("transactions.amount")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "default", g.Entry)
	assert.Equal(t, []string{"user", "transactions"}, g.Collections)

	menu, ok := g.Node("default")
	require.True(t, ok)
	require.Len(t, menu.Options, 2)
	assert.Equal(t, "transactions.kind", menu.Options[1].Storage.String())

	onboarding, ok := g.Node("onboarding")
	require.True(t, ok)
	require.Len(t, onboarding.Prompts, 2)
	assert.Equal(t, domain.InputInteger, onboarding.Prompts[1].ExpectedInput)
	assert.Equal(t, "user_age", onboarding.Prompts[1].Storage.Key())
	assert.Equal(t, "default", onboarding.Next)

	_, opt, ok := g.LookupPayload("LOG_EXPENSE")
	require.True(t, ok)
	assert.Equal(t, "expense", opt.Target)

	assert.Empty(t, flow.Unreachable(g))
}

func TestBuilder_ReusesNodes(t *testing.T) {
	b := dsl.New()
	first := b.MessageList("welcome").Ask("Hi")
	second := b.MessageList("welcome").Ask("Still here?")

	assert.Same(t, first, second)
	assert.Equal(t, "welcome", second.ID())
	assert.Len(t, second.Build().Messages, 2)
}

func TestBuilder_ValidationErrors(t *testing.T) {
	b := dsl.New("user").Entry("menu")
	b.Carousel("menu").Option("go", "missing")
	b.MessageList("ask").Ask("Age?").Expect("date").Store("orders.age")

	_, err := b.Build()
	require.Error(t, err)

	problems := flow.ValidationErrors(err)
	assert.Len(t, problems, 3)
	assert.ErrorContains(t, err, `target "missing" is not a declared node`)
	assert.ErrorContains(t, err, `unknown expected_input "date"`)
	assert.ErrorContains(t, err, `collection "orders" is not declared`)
}
