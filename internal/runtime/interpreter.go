// Package runtime contains the flow interpreter: the per-user state machine
// that turns a classified event into the next session state, the content
// keys to emit, and the records to commit.
package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// Transition is the outcome of interpreting one event against one state.
type Transition struct {
	// Next is the state to persist. It is always a copy; Step never mutates
	// the state it was given.
	Next *domain.SessionState
	// Dirty reports whether Next differs from the input and must be written.
	Dirty bool
	// Keys are the content keys to deliver, in order.
	Keys []string
	// Records must be committed atomically with Next.
	Records []domain.CommittedRecord
	Outcome domain.Outcome
	// Reason carries the recoverable error behind a reprompt or ignore.
	Reason error
}

// IDFunc derives a record id from the user, the transition source (the
// event id, or a token for the stored state version when the event has none)
// and the record collection.
type IDFunc func(userID, eventID, collection string) string

// Interpreter applies events to session states for one flow graph.
// It performs no I/O and is safe for concurrent use.
type Interpreter struct {
	graph  *domain.FlowGraph
	logger *slog.Logger
	now    func() time.Time
	newID  IDFunc
}

// Option configures the Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger used for diagnostic messages.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Interpreter) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) {
		if now != nil {
			in.now = now
		}
	}
}

// WithIDFunc overrides record id generation.
func WithIDFunc(fn IDFunc) Option {
	return func(in *Interpreter) {
		if fn != nil {
			in.newID = fn
		}
	}
}

// New creates an interpreter for graph.
func New(graph *domain.FlowGraph, opts ...Option) *Interpreter {
	in := &Interpreter{
		graph:  graph,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  RecordID,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Graph returns the flow graph the interpreter runs.
func (in *Interpreter) Graph() *domain.FlowGraph {
	return in.graph
}

var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bot-engine/records"))

// RecordID is the default IDFunc. Ids are deterministic for a given event so
// a redelivered event cannot produce a second record.
func RecordID(userID, eventID, collection string) string {
	return uuid.NewSHA1(recordNamespace, []byte(userID+"\x00"+eventID+"\x00"+collection)).String()
}

// idSource names the transition for record ids: the transport event id, or
// the version of the state the step ran against when the event has none.
// A retried step without an event id therefore repeats the same ids.
func idSource(state *domain.SessionState, ev domain.ClassifiedEvent) string {
	if ev.EventID != "" {
		return ev.EventID
	}
	return fmt.Sprintf("\x00state-version:%d", state.Version)
}

// Step interprets ev against state. A nil state is a first contact and
// starts from a fresh idle session.
func (in *Interpreter) Step(state *domain.SessionState, ev domain.ClassifiedEvent) (*Transition, error) {
	now := in.now()
	if state == nil {
		state = domain.NewSessionState(ev.SenderID, now)
	}

	t := &Transition{Next: state.Clone(), Outcome: domain.OutcomeIgnored}

	if !ev.Actionable() {
		return t, nil
	}
	if state.Seen(ev.EventID) {
		t.Outcome = domain.OutcomeDuplicate
		return t, nil
	}

	active, err := in.activeNode(state)
	if err != nil {
		return nil, err
	}

	switch ev.Kind {
	case domain.EventSelection:
		in.selection(t, active, ev, now)
	case domain.EventTextResponse:
		in.textResponse(t, active, ev, now)
	}

	if t.Dirty {
		t.Next.LastEventKind = ev.Kind
		t.Next.Remember(ev.EventID)
		t.Next.UpdatedAt = now
		for i := range t.Records {
			t.Records[i].ID = in.newID(state.UserID, idSource(state, ev), t.Records[i].Collection)
		}
	}
	return t, nil
}

// activeNode resolves the prompt list the session is waiting on. A state
// that names a missing node, a selection node or an out of range cursor is
// never repaired.
func (in *Interpreter) activeNode(state *domain.SessionState) (*domain.Node, error) {
	if state.Idle() {
		return nil, nil
	}
	node, ok := in.graph.Node(state.ActiveNode)
	if !ok {
		return nil, &domain.CorruptedSessionError{UserID: state.UserID, Reason: fmt.Sprintf("active node %q does not exist", state.ActiveNode)}
	}
	if !node.IsPromptList() {
		return nil, &domain.CorruptedSessionError{UserID: state.UserID, Reason: fmt.Sprintf("active node %q is not a prompt list", state.ActiveNode)}
	}
	if state.Cursor < 0 || state.Cursor >= len(node.Prompts) {
		return nil, &domain.CorruptedSessionError{UserID: state.UserID, Reason: fmt.Sprintf("cursor %d out of range for %q", state.Cursor, state.ActiveNode)}
	}
	return node, nil
}

func (in *Interpreter) selection(t *Transition, active *domain.Node, ev domain.ClassifiedEvent, now time.Time) {
	menu, opt, ok := in.graph.LookupPayload(ev.Payload)
	if !ok {
		t.Reason = fmt.Errorf("%w: %q", domain.ErrUnknownPayload, ev.Payload)
		in.logger.Debug("ignoring selection", "user_id", ev.SenderID, "payload", ev.Payload)
		return
	}

	next := t.Next
	if active != nil && len(next.PendingData) > 0 {
		in.logger.Debug("abandoning flow", "user_id", next.UserID, "node", active.ID, "pending", len(next.PendingData))
	}
	next.ResetFlow()
	t.Dirty = true
	t.Outcome = domain.OutcomeAdvanced

	target, ok := in.graph.Node(opt.Target)
	if ok && target.IsPromptList() {
		in.enter(t, target.ID, true)
		if !opt.Storage.IsZero() {
			next.PendingData[opt.Storage.Key()] = opt.Name
		}
		return
	}

	t.Keys = append(t.Keys, opt.Target)
	if !opt.Storage.IsZero() {
		pending := map[string]string{opt.Storage.Key(): opt.Name}
		t.Records = Commit(next.UserID, pending, true, in.graph, now)
		for i := range t.Records {
			t.Records[i].Node = menu.ID
		}
		t.Outcome = domain.OutcomeCompleted
	}
}

func (in *Interpreter) textResponse(t *Transition, active *domain.Node, ev domain.ClassifiedEvent, now time.Time) {
	next := t.Next
	if active == nil {
		t.Dirty = true
		t.Outcome = domain.OutcomeAdvanced
		in.enter(t, in.graph.Entry, false)
		return
	}

	prompt := active.Prompts[next.Cursor]
	if !prompt.Storage.IsZero() {
		value, err := Coerce(ev.Text, prompt.ExpectedInput)
		if err != nil {
			t.Outcome = domain.OutcomeReprompt
			t.Reason = err
			t.Keys = []string{domain.PromptKey(active.ID, next.Cursor)}
			return
		}
		next.PendingData[prompt.Storage.Key()] = value
	}

	t.Dirty = true
	next.Cursor++

	partOfFlow := next.FlowOpen || len(active.Prompts) > 1
	done := next.Cursor >= len(active.Prompts) || (len(active.Prompts) == 1 && next.FlowOpen)
	if !done {
		t.Outcome = domain.OutcomeAdvanced
		t.Keys = []string{domain.PromptKey(active.ID, next.Cursor)}
		return
	}

	t.Outcome = domain.OutcomeCompleted
	t.Records = Commit(next.UserID, next.PendingData, partOfFlow, in.graph, now)
	for i := range t.Records {
		t.Records[i].Node = active.ID
	}
	next.ResetFlow()

	if !partOfFlow {
		// A standalone prompt answers once and stays put.
		next.ActiveNode = active.ID
		if active.Next == "" {
			t.Keys = []string{domain.PromptKey(active.ID, 0)}
			return
		}
		in.enter(t, active.Next, true)
		return
	}

	dest := active.Next
	if dest == "" {
		dest = in.graph.Entry
	}
	in.enter(t, dest, true)
}

// enter emits id. Prompt lists become the active node at cursor 0; anything
// else is a terminal content key.
func (in *Interpreter) enter(t *Transition, id string, flowOpen bool) {
	if id == "" {
		return
	}
	node, ok := in.graph.Node(id)
	if !ok || !node.IsPromptList() {
		t.Keys = append(t.Keys, id)
		return
	}
	t.Next.ActiveNode = node.ID
	t.Next.Cursor = 0
	t.Next.FlowOpen = flowOpen
	t.Keys = append(t.Keys, domain.PromptKey(node.ID, 0))
}
