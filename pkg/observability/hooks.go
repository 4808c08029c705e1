package observability

import (
	"context"
	"log/slog"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// LogHooks logs lifecycle events with the engine's structured keys.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"user_id", e.UserID,
				"event", e.EventKind,
				"from", e.FromNode,
				"node", e.ToNode,
				"cursor", e.Cursor,
				"outcome", e.Outcome,
				"keys", e.ContentKeys,
				"duration", e.Duration,
			)
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			logger.InfoContext(ctx, "commit",
				"user_id", e.UserID,
				"collection", e.Record.Collection,
				"record_id", e.Record.ID,
			)
		},
		OnError: func(ctx context.Context, ev domain.ClassifiedEvent, err error) {
			logger.ErrorContext(ctx, "event failed",
				"user_id", ev.SenderID,
				"event", ev.Kind,
				"err", err,
			)
		},
	}
}

// Chain merges hooks; each callback runs in argument order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		h := h
		if h.OnEvent != nil {
			prev := out.OnEvent
			out.OnEvent = func(ctx context.Context, ev domain.ClassifiedEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				h.OnEvent(ctx, ev)
			}
		}
		if h.OnTransition != nil {
			prev := out.OnTransition
			out.OnTransition = func(ctx context.Context, e *domain.TransitionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnTransition(ctx, e)
			}
		}
		if h.OnCommit != nil {
			prev := out.OnCommit
			out.OnCommit = func(ctx context.Context, e *domain.CommitEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnCommit(ctx, e)
			}
		}
		if h.OnError != nil {
			prev := out.OnError
			out.OnError = func(ctx context.Context, ev domain.ClassifiedEvent, err error) {
				if prev != nil {
					prev(ctx, ev, err)
				}
				h.OnError(ctx, ev, err)
			}
		}
	}
	return out
}
