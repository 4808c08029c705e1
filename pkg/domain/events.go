package domain

import (
	"context"
	"time"
)

// RawKind is the transport-level kind of an inbound webhook event.
const (
	RawKindPostback = "postback"
	RawKindMessage  = "message"
	RawKindDelivery = "delivery"
	RawKindOptIn    = "optin"
)

// RawEvent is one inbound event as delivered by the webhook front door.
type RawEvent struct {
	SenderID string `json:"sender_id"`
	Kind     string `json:"kind"`
	// PayloadOrText carries the postback payload or the message text.
	PayloadOrText string `json:"payload_or_text,omitempty"`
	// EventID is a transport id (e.g. message mid) used for duplicate detection.
	EventID   string    `json:"event_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// EventKind is the classifier category of an event.
type EventKind string

const (
	EventSelection       EventKind = "selection"
	EventTextResponse    EventKind = "text_response"
	EventDeliveryReceipt EventKind = "delivery_receipt"
	EventOptIn           EventKind = "optin"
	EventUnrecognized    EventKind = "unrecognized"
)

// ClassifiedEvent is exactly one of the EventKind categories.
// Payload is set for selections (upper-cased), Text for text responses.
type ClassifiedEvent struct {
	Kind     EventKind `json:"kind"`
	SenderID string    `json:"sender_id"`
	EventID  string    `json:"event_id,omitempty"`
	Payload  string    `json:"payload,omitempty"`
	Text     string    `json:"text,omitempty"`
}

// Actionable reports whether the event may change session state.
func (e ClassifiedEvent) Actionable() bool {
	return e.Kind == EventSelection || e.Kind == EventTextResponse
}

// TransitionEvent is emitted after a session transition is committed.
type TransitionEvent struct {
	Timestamp   time.Time     `json:"timestamp"`
	UserID      string        `json:"user_id"`
	EventKind   EventKind     `json:"event_kind"`
	FromNode    string        `json:"from_node,omitempty"`
	ToNode      string        `json:"to_node,omitempty"`
	Cursor      int           `json:"cursor"`
	Outcome     Outcome       `json:"outcome"`
	ContentKeys []string      `json:"content_keys,omitempty"`
	Duration    time.Duration `json:"duration"`
	// Changes is nil when the event left the session untouched.
	Changes     *StateDiff    `json:"changes,omitempty"`
}

// CommitEvent is emitted for every committed record.
type CommitEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"user_id"`
	Record    CommittedRecord `json:"record"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnEvent      func(context.Context, ClassifiedEvent)
	OnTransition func(context.Context, *TransitionEvent)
	OnCommit     func(context.Context, *CommitEvent)
	OnError      func(context.Context, ClassifiedEvent, error)
}
