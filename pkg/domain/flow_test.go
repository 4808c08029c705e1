package domain_test

import (
	"testing"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoragePath(t *testing.T) {
	p, err := domain.ParseStoragePath("transactions.amount")
	require.NoError(t, err)
	assert.Equal(t, "transactions", p.Collection)
	assert.Equal(t, "amount", p.Attribute)
	assert.Equal(t, "transactions_amount", p.Key())
	assert.Equal(t, "transactions.amount", p.String())

	for _, bad := range []string{"", "transactions", "a.b.c", ".amount", "transactions."} {
		_, err := domain.ParseStoragePath(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestFlowGraph_LookupPayload(t *testing.T) {
	g := domain.NewFlowGraph("default", nil, []*domain.Node{
		{
			ID:   "default",
			Kind: domain.NodeKindSelection,
			Options: []domain.Option{
				{Name: "A", Target: "target1"},
				{Name: "log_income", Target: "target2"},
			},
		},
		{ID: "target1", Kind: domain.NodeKindPromptList, Prompts: []domain.Prompt{{Message: "one"}}},
		{ID: "target2", Kind: domain.NodeKindPromptList, Prompts: []domain.Prompt{{Message: "two"}}},
	})

	node, opt, ok := g.LookupPayload("LOG_INCOME")
	require.True(t, ok)
	assert.Equal(t, "default", node.ID)
	assert.Equal(t, "target2", opt.Target)

	_, _, ok = g.LookupPayload(" log_income ")
	assert.True(t, ok, "payload lookup normalizes case and whitespace")

	_, _, ok = g.LookupPayload("NOPE")
	assert.False(t, ok)

	assert.Equal(t, []string{"target1", "target2"}, g.PromptLists())
	assert.Equal(t, "target2_0", domain.PromptKey("target2", 0))
}

func TestSessionState_RecentEvents(t *testing.T) {
	s := domain.NewSessionState("u-1", time.Now())
	for i := 0; i < domain.RecentEventWindow+5; i++ {
		s.Remember(string(rune('a' + i%26)) + time.Duration(i).String())
	}
	assert.Len(t, s.RecentEvents, domain.RecentEventWindow)
	assert.False(t, s.Seen(""), "empty ids are never duplicates")

	s.Remember("mid.1")
	assert.True(t, s.Seen("mid.1"))

	clone := s.Clone()
	clone.PendingData["x"] = "y"
	clone.RecentEvents[0] = "changed"
	assert.Empty(t, s.PendingData)
	assert.NotEqual(t, "changed", s.RecentEvents[0])
}

func TestIsReservedNodeID(t *testing.T) {
	for _, id := range []string{"flow_instantiated", "data", "current_type", "user_id"} {
		assert.True(t, domain.IsReservedNodeID(id))
	}
	assert.False(t, domain.IsReservedNodeID("default"))
}
