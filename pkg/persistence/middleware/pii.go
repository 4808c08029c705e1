package middleware

import (
	"context"
	"regexp"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
)

// Mask replaces the value of a masked field.
const Mask = "***"

type piiMiddleware struct {
	passthrough
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks answers whose
// collection_attribute key matches any pattern before they reach the store.
// Masking applies to pending data and committed records alike, so a masked
// answer is never persisted anywhere.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{passthrough: passthrough{next: next}, patterns: patterns}
	}
}

func (m *piiMiddleware) Apply(ctx context.Context, userID string, expected int64, next *domain.SessionState, records []domain.CommittedRecord) error {
	// Work on copies; the caller keeps using next.
	masked := next.Clone()
	m.maskMap(masked.PendingData, "")

	out := make([]domain.CommittedRecord, len(records))
	for i, rec := range records {
		fields := make(map[string]string, len(rec.Fields))
		for k, v := range rec.Fields {
			fields[k] = v
		}
		m.maskMap(fields, rec.Collection+"_")
		rec.Fields = fields
		out[i] = rec
	}
	return m.next.Apply(ctx, userID, expected, masked, out)
}

func (m *piiMiddleware) Load(ctx context.Context, userID string) (*domain.SessionState, error) {
	return m.next.Load(ctx, userID)
}

func (m *piiMiddleware) Records(ctx context.Context, collection string) ([]domain.CommittedRecord, error) {
	return m.records(ctx, collection)
}

// maskMap masks values whose prefix+key matches a pattern.
func (m *piiMiddleware) maskMap(values map[string]string, prefix string) {
	for k := range values {
		for _, p := range m.patterns {
			if p.MatchString(prefix + k) {
				values[k] = Mask
				break
			}
		}
	}
}
