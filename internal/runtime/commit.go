package runtime

import (
	"sort"
	"strings"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// Commit groups pending answers into one record per collection. Each key is
// resolved through the storage path the graph declares for it; keys the graph
// does not know (state written by an older flow) fall back to SplitKey. Only
// records that belong to a flow are dated.
//
// Record ids are left empty for the caller to assign.
func Commit(userID string, pending map[string]string, partOfFlow bool, graph *domain.FlowGraph, now time.Time) []domain.CommittedRecord {
	if len(pending) == 0 {
		return nil
	}

	groups := make(map[string]map[string]string)
	for key, value := range pending {
		collection, attribute := resolveKey(graph, key)
		fields, ok := groups[collection]
		if !ok {
			fields = make(map[string]string)
			groups[collection] = fields
		}
		fields[attribute] = value
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]domain.CommittedRecord, 0, len(names))
	for _, name := range names {
		rec := domain.CommittedRecord{
			Collection: name,
			UserID:     userID,
			Fields:     groups[name],
		}
		if partOfFlow {
			ts := now.UTC()
			rec.CompletedAt = &ts
		}
		records = append(records, rec)
	}
	return records
}

func resolveKey(graph *domain.FlowGraph, key string) (string, string) {
	if graph == nil {
		return SplitKey(key, nil)
	}
	if p, ok := graph.StoragePathFor(key); ok {
		return p.Collection, p.Attribute
	}
	return SplitKey(key, graph.Collections)
}

// SplitKey guesses collection and attribute from a bare pending_data key:
// the longest declared collection that prefixes the key wins, otherwise the
// text before the first underscore.
func SplitKey(key string, collections []string) (string, string) {
	best := ""
	for _, c := range collections {
		if len(c) > len(best) && strings.HasPrefix(key, c+"_") {
			best = c
		}
	}
	if best != "" {
		return best, key[len(best)+1:]
	}
	collection, attribute, found := strings.Cut(key, "_")
	if !found {
		return key, ""
	}
	return collection, attribute
}
