package domain

import "time"

// Record field names.
const (
	FieldUserID = "user_id"
	FieldDate   = "date"
)

// CommittedRecord is a domain-collection document assembled from pending
// data at flow completion. It is never mutated after creation.
type CommittedRecord struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	UserID     string            `json:"user_id"`
	Fields     map[string]string `json:"fields"`
	// CompletedAt is set only for records produced by a flow.
	CompletedAt *time.Time `json:"date,omitempty"`
	// Node is the prompt list (or selection) that produced the record.
	Node string `json:"node,omitempty"`
}

// Document returns the flat document form: attributes plus user_id and,
// for flow records, the completion date.
func (r CommittedRecord) Document() map[string]any {
	doc := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc[FieldUserID] = r.UserID
	if r.CompletedAt != nil {
		doc[FieldDate] = *r.CompletedAt
	}
	return doc
}
