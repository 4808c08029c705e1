package domain

import "time"

// RecentEventWindow bounds how many processed event ids a session remembers.
const RecentEventWindow = 32

// SessionState is the per-user record of flow progress.
// It is the only mutable, long-lived entity and is never deleted.
type SessionState struct {
	UserID string `json:"user_id"`

	// Version increases by one on every successful write. Stores use it for
	// compare-and-swap; zero means the state was never persisted.
	Version int64 `json:"version"`

	// ActiveNode is the prompt list awaiting a response, or empty when idle.
	ActiveNode string `json:"active_node,omitempty"`

	// Cursor indexes the active node's prompts (0 <= Cursor <= len).
	Cursor int `json:"cursor"`

	// FlowOpen is true while a prompt sequence entered through a selection
	// (or chained from a previous list) is mid-flight.
	FlowOpen bool `json:"flow_open"`

	// PendingData accumulates "collection_attribute" -> value across one flow.
	PendingData map[string]string `json:"pending_data,omitempty"`

	// LastEventKind is the classifier category of the previous event.
	LastEventKind EventKind `json:"last_event_kind,omitempty"`

	// RecentEvents holds the ids of the last processed events, oldest first.
	RecentEvents []string `json:"recent_events,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionState creates the default state of a first-contact user: idle,
// cursor 0, no flow open, nothing pending.
func NewSessionState(userID string, now time.Time) *SessionState {
	return &SessionState{
		UserID:      userID,
		PendingData: make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Idle reports whether no prompt list is active.
func (s *SessionState) Idle() bool {
	return s.ActiveNode == ""
}

// Clone returns a deep copy safe for mutation.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	next := *s
	next.PendingData = make(map[string]string, len(s.PendingData))
	for k, v := range s.PendingData {
		next.PendingData[k] = v
	}
	next.RecentEvents = append([]string(nil), s.RecentEvents...)
	return &next
}

// Seen reports whether the event id was already processed.
func (s *SessionState) Seen(eventID string) bool {
	if eventID == "" {
		return false
	}
	for _, id := range s.RecentEvents {
		if id == eventID {
			return true
		}
	}
	return false
}

// Remember records an event id, keeping only the most recent window.
func (s *SessionState) Remember(eventID string) {
	if eventID == "" {
		return
	}
	s.RecentEvents = append(s.RecentEvents, eventID)
	if over := len(s.RecentEvents) - RecentEventWindow; over > 0 {
		s.RecentEvents = append([]string(nil), s.RecentEvents[over:]...)
	}
}

// ResetFlow returns the session to idle and clears pending data.
func (s *SessionState) ResetFlow() {
	s.ActiveNode = ""
	s.Cursor = 0
	s.FlowOpen = false
	s.PendingData = make(map[string]string)
}
