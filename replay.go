package botengine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// ReplayLine is the JSON object written for every replayed event.
type ReplayLine struct {
	Line        int                      `json:"line"`
	UserID      string                   `json:"user_id,omitempty"`
	Event       domain.EventKind         `json:"event,omitempty"`
	Outcome     domain.Outcome           `json:"outcome,omitempty"`
	ContentKeys []string                 `json:"content_keys,omitempty"`
	Records     []domain.CommittedRecord `json:"records,omitempty"`
	Reason      string                   `json:"reason,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// ReplayStats summarises a replay.
type ReplayStats struct {
	Events int
	Failed int
}

// Replay feeds JSON-Lines raw events through the engine, one per line, and
// writes one ReplayLine per event. Blank lines are skipped. Engine failures
// are reported inline and counted; malformed input stops the replay.
func Replay(ctx context.Context, e *Engine, r io.Reader, w io.Writer) (ReplayStats, error) {
	var stats ReplayStats
	enc := json.NewEncoder(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var raw domain.RawEvent
		if err := json.Unmarshal(text, &raw); err != nil {
			return stats, fmt.Errorf("line %d: invalid event: %w", line, err)
		}

		stats.Events++
		out := ReplayLine{Line: line, UserID: raw.SenderID}
		res, err := e.HandleEvent(ctx, raw)
		if err != nil {
			stats.Failed++
			out.Error = err.Error()
		} else {
			out.Event = res.Event.Kind
			out.Outcome = res.Outcome
			out.ContentKeys = res.ContentKeys
			out.Records = res.Records
			if res.Reason != nil {
				out.Reason = res.Reason.Error()
			}
		}
		if err := enc.Encode(out); err != nil {
			return stats, fmt.Errorf("failed to write result: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read events: %w", err)
	}
	return stats, nil
}
