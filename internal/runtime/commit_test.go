package runtime

import (
	"testing"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storageGraph(collections []string, paths ...string) *domain.FlowGraph {
	prompts := make([]domain.Prompt, 0, len(paths))
	for _, raw := range paths {
		p, err := domain.ParseStoragePath(raw)
		if err != nil {
			panic(err)
		}
		prompts = append(prompts, domain.Prompt{Message: raw, Storage: p})
	}
	return domain.NewFlowGraph("ask", collections, []*domain.Node{
		{ID: "ask", Kind: domain.NodeKindPromptList, Prompts: prompts},
	})
}

func TestCommit(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := storageGraph([]string{"user", "user_profile", "transactions"},
		"user_profile.name", "user.age", "transactions.kind")
	pending := map[string]string{
		"user_profile_name": "Ada",
		"user_age":          "36",
		"transactions_kind": "expense",
	}

	records := Commit("u1", pending, true, g, now)
	require.Len(t, records, 3)
	assert.Equal(t, "transactions", records[0].Collection)
	assert.Equal(t, "user", records[1].Collection)
	assert.Equal(t, map[string]string{"age": "36"}, records[1].Fields)
	assert.Equal(t, "user_profile", records[2].Collection)
	assert.Equal(t, map[string]string{"name": "Ada"}, records[2].Fields)
	for _, r := range records {
		assert.Equal(t, "u1", r.UserID)
		require.NotNil(t, r.CompletedAt)
		assert.Equal(t, now, *r.CompletedAt)
	}

	doc := records[1].Document()
	assert.Equal(t, "u1", doc["user_id"])
	assert.Equal(t, now, doc["date"])
}

func TestCommit_UsesDeclaredStoragePath(t *testing.T) {
	tests := []struct {
		name        string
		collections []string
		path        string
		collection  string
		fields      map[string]string
	}{
		{
			name:        "attribute with underscore next to a longer collection",
			collections: []string{"user", "user_profile"},
			path:        "user.profile_name",
			collection:  "user",
			fields:      map[string]string{"profile_name": "ann"},
		},
		{
			name:       "collection with underscore and nothing declared",
			path:       "user_profile.age",
			collection: "user_profile",
			fields:     map[string]string{"age": "ann"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := storageGraph(tt.collections, tt.path)
			p, _ := domain.ParseStoragePath(tt.path)

			records := Commit("u1", map[string]string{p.Key(): "ann"}, true, g, time.Now())
			require.Len(t, records, 1)
			assert.Equal(t, tt.collection, records[0].Collection)
			assert.Equal(t, tt.fields, records[0].Fields)
		})
	}
}

func TestCommit_UnknownKeyFallsBackToSplit(t *testing.T) {
	g := storageGraph([]string{"user"}, "user.age")
	records := Commit("u1", map[string]string{"user_first_name": "Ada"}, true, g, time.Now())
	require.Len(t, records, 1)
	assert.Equal(t, "user", records[0].Collection)
	assert.Equal(t, map[string]string{"first_name": "Ada"}, records[0].Fields)
}

func TestCommit_Standalone(t *testing.T) {
	records := Commit("u1", map[string]string{"profile_mood": "ok"}, false, nil, time.Now())
	require.Len(t, records, 1)
	assert.Nil(t, records[0].CompletedAt)
	assert.NotContains(t, records[0].Document(), "date")
}

func TestCommit_Empty(t *testing.T) {
	assert.Nil(t, Commit("u1", nil, true, nil, time.Now()))
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key         string
		collections []string
		collection  string
		attribute   string
	}{
		{"transactions_amount", nil, "transactions", "amount"},
		{"user_first_name", []string{"user"}, "user", "first_name"},
		{"user_profile_name", []string{"user", "user_profile"}, "user_profile", "name"},
		{"lonely", nil, "lonely", ""},
		{"user_profile_age", nil, "user", "profile_age"},
	}
	for _, tt := range tests {
		c, a := SplitKey(tt.key, tt.collections)
		assert.Equal(t, tt.collection, c, tt.key)
		assert.Equal(t, tt.attribute, a, tt.key)
	}
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(" 12.50 ", "float")
	require.NoError(t, err)
	assert.Equal(t, "12.50", v)

	v, err = Coerce("42", "integer")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	_, err = Coerce("4.2", "integer")
	assert.Error(t, err)
	_, err = Coerce("NaN", "float")
	assert.Error(t, err)

	v, err = Coerce(" keep spaces ", "string")
	require.NoError(t, err)
	assert.Equal(t, " keep spaces ", v)
}
