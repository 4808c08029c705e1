package domain

// Outcome classifies what an event did to a session.
type Outcome string

const (
	// OutcomeAdvanced moved into or through a prompt list.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeCompleted finished a prompt list and committed its data.
	OutcomeCompleted Outcome = "completed"
	// OutcomeReprompt rejected a response; the same prompt is re-emitted.
	OutcomeReprompt Outcome = "reprompt"
	// OutcomeIgnored left the session untouched (receipts, unknown payloads).
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate recognised an already processed event id.
	OutcomeDuplicate Outcome = "duplicate"
)

// Result is what the engine reports for one inbound event.
type Result struct {
	UserID      string            `json:"user_id"`
	Event       ClassifiedEvent   `json:"event"`
	Outcome     Outcome           `json:"outcome"`
	ContentKeys []string          `json:"content_keys,omitempty"`
	Records     []CommittedRecord `json:"records,omitempty"`
	State       *SessionState     `json:"state,omitempty"`
	// Reason holds the recoverable error behind a reprompt or ignore.
	Reason error `json:"-"`
}
