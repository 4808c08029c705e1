package botengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/internal/logging"
	"github.com/malcolmmathew-zz/bot-engine/internal/runtime"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/memory"
	"github.com/malcolmmathew-zz/bot-engine/pkg/classifier"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/observability"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
	"github.com/malcolmmathew-zz/bot-engine/pkg/session"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNoLedger is returned by Records when the store keeps no readable ledger.
var ErrNoLedger = errors.New("store does not expose committed records")

// Engine is the high-level entry point of the library. It classifies raw
// events, runs them through the interpreter under the user's session lock,
// persists the outcome and hands emitted content keys to a Deliverer.
type Engine struct {
	graph       *domain.FlowGraph
	interpreter *runtime.Interpreter
	sessions    *session.Manager
	store       ports.SessionStore
	locker      ports.DistributedLocker
	deliverer   ports.Deliverer
	classifier  classifier.Classifier
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	now         func() time.Time
	idFunc      runtime.IDFunc
	lockTTL     time.Duration
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the session store. The default is an in-memory store.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables a distributed per-user lock around every update.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the lease requested from the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithDeliverer sets where emitted content keys are sent.
func WithDeliverer(d ports.Deliverer) Option {
	return func(e *Engine) {
		e.deliverer = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithClassifier sets classifier limits.
func WithClassifier(c classifier.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithIDFunc overrides how committed record ids are derived.
func WithIDFunc(fn runtime.IDFunc) Option {
	return func(e *Engine) {
		e.idFunc = fn
	}
}

// New creates an engine for a validated flow graph. Stores that prepare
// collections up front get the graph's declared collections here.
func New(graph *domain.FlowGraph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, fmt.Errorf("flow graph is required")
	}

	eng := &Engine{graph: graph}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.now == nil {
		eng.now = time.Now
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	eng.interpreter = runtime.New(graph,
		runtime.WithLogger(eng.logger),
		runtime.WithClock(eng.now),
		runtime.WithIDFunc(eng.idFunc),
	)

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	if eng.lockTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithLockTTL(eng.lockTTL))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	if r, ok := eng.store.(ports.CollectionRegistrar); ok && len(graph.Collections) > 0 {
		if err := r.RegisterCollections(context.Background(), graph.Collections); err != nil {
			return nil, fmt.Errorf("failed to register collections: %w", err)
		}
	}

	return eng, nil
}

// HandleEvent processes one inbound event end to end. Receipts, opt-ins and
// unrecognized events are acknowledged without touching the session.
// Store failures and corrupted sessions are returned as errors; recoverable
// problems (unknown payloads, invalid answers) are reported on the Result.
func (e *Engine) HandleEvent(ctx context.Context, raw domain.RawEvent) (res *domain.Result, err error) {
	start := e.now()
	ev := e.classifier.Classify(raw)

	ctx, span := observability.StartSpan(ctx, "botengine.HandleEvent",
		attribute.String("user_id", ev.SenderID),
		attribute.String("event.kind", string(ev.Kind)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if e.hooks.OnEvent != nil {
		e.hooks.OnEvent(ctx, ev)
	}

	res = &domain.Result{UserID: ev.SenderID, Event: ev, Outcome: domain.OutcomeIgnored}
	if !ev.Actionable() || ev.SenderID == "" {
		e.logger.Debug("event not actionable", "user_id", ev.SenderID, "event", ev.Kind)
		return res, nil
	}

	var (
		tr   *runtime.Transition
		prev *domain.SessionState
	)
	_, err = e.sessions.Update(ctx, ev.SenderID, func(ctx context.Context, current *domain.SessionState) (*session.Mutation, error) {
		t, err := e.interpreter.Step(current, ev)
		if err != nil {
			return nil, err
		}
		tr, prev = t, current
		if !t.Dirty {
			return nil, nil
		}
		return &session.Mutation{Next: t.Next, Records: t.Records}, nil
	})
	if err != nil {
		if e.hooks.OnError != nil {
			e.hooks.OnError(ctx, ev, err)
		}
		e.logger.Error("failed to handle event", "user_id", ev.SenderID, "event", ev.Kind, "err", err)
		return nil, err
	}

	res.Outcome = tr.Outcome
	res.ContentKeys = tr.Keys
	res.Records = tr.Records
	res.State = tr.Next
	res.Reason = tr.Reason

	e.emit(ctx, ev, prev, tr, e.now().Sub(start))
	e.deliver(ctx, ev, tr.Keys)
	return res, nil
}

func (e *Engine) emit(ctx context.Context, ev domain.ClassifiedEvent, prev *domain.SessionState, tr *runtime.Transition, elapsed time.Duration) {
	now := e.now()
	if e.hooks.OnCommit != nil {
		for _, rec := range tr.Records {
			e.hooks.OnCommit(ctx, &domain.CommitEvent{Timestamp: now, UserID: ev.SenderID, Record: rec})
		}
	}
	if e.hooks.OnTransition != nil {
		var from string
		var changes *domain.StateDiff
		if prev != nil {
			from = prev.ActiveNode
		}
		if tr.Dirty {
			changes = domain.Diff(prev, tr.Next)
		}
		e.hooks.OnTransition(ctx, &domain.TransitionEvent{
			Timestamp:   now,
			UserID:      ev.SenderID,
			EventKind:   ev.Kind,
			FromNode:    from,
			ToNode:      tr.Next.ActiveNode,
			Cursor:      tr.Next.Cursor,
			Outcome:     tr.Outcome,
			ContentKeys: tr.Keys,
			Duration:    elapsed,
			Changes:     changes,
		})
	}
	e.logger.Debug("event handled",
		"user_id", ev.SenderID,
		"node", tr.Next.ActiveNode,
		"cursor", tr.Next.Cursor,
		"outcome", tr.Outcome,
	)
}

// deliver runs after the state is durable. A failed delivery is logged and
// reported to OnError but never rolls the session back.
func (e *Engine) deliver(ctx context.Context, ev domain.ClassifiedEvent, keys []string) {
	if e.deliverer == nil || len(keys) == 0 {
		return
	}
	if err := e.deliverer.Deliver(ctx, ev.SenderID, keys); err != nil {
		e.logger.Warn("failed to deliver content", "user_id", ev.SenderID, "keys", keys, "err", err)
		if e.hooks.OnError != nil {
			e.hooks.OnError(ctx, ev, fmt.Errorf("delivery failed: %w", err))
		}
	}
}

// Graph returns the flow graph the engine runs.
func (e *Engine) Graph() *domain.FlowGraph {
	return e.graph
}

// Session returns the stored state of a user.
func (e *Engine) Session(ctx context.Context, userID string) (*domain.SessionState, error) {
	return e.sessions.Load(ctx, userID)
}

// Sessions lists every known user id.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Records returns the committed records of a collection.
func (e *Engine) Records(ctx context.Context, collection string) ([]domain.CommittedRecord, error) {
	r, ok := e.store.(ports.RecordReader)
	if !ok {
		return nil, ErrNoLedger
	}
	return r.Records(ctx, collection)
}
