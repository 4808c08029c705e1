package domain

import (
	"reflect"
)

// StateDiff represents the changes between two session states.
// It is designed to be logged or serialized for partial updates.
type StateDiff struct {
	// UserID is always present to identify the target.
	UserID string `json:"user_id"`

	ActiveNode *string `json:"active_node,omitempty"`
	Cursor     *int    `json:"cursor,omitempty"`
	FlowOpen   *bool   `json:"flow_open,omitempty"`

	// Pending contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Pending map[string]any `json:"pending_data,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (first contact).
func Diff(oldState, newState *SessionState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{UserID: newState.UserID}

	if oldState == nil || oldState.ActiveNode != newState.ActiveNode {
		diff.ActiveNode = &newState.ActiveNode
	}
	if oldState == nil || oldState.Cursor != newState.Cursor {
		diff.Cursor = &newState.Cursor
	}
	if oldState == nil || oldState.FlowOpen != newState.FlowOpen {
		diff.FlowOpen = &newState.FlowOpen
	}
	diff.Pending = diffPending(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffPending(old *SessionState, new *SessionState) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.PendingData {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.PendingData {
			oldVal, exists := old.PendingData[k]
			if !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
		for k := range old.PendingData {
			if _, exists := new.PendingData[k]; !exists {
				delta[k] = nil
			}
		}
	}

	// Return nil if delta is empty so omitempty can remove the key
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.ActiveNode == nil &&
		d.Cursor == nil &&
		d.FlowOpen == nil &&
		len(d.Pending) == 0
}
