// Package middleware wraps a ports.SessionStore with at-rest data
// protection: encryption of collected answers and masking of sensitive fields.
package middleware

import (
	"context"
	"errors"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
)

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// ErrNoLedger is returned by Records when the wrapped store has no ledger.
var ErrNoLedger = errors.New("wrapped store does not expose committed records")

// Chain applies middlewares so the first one is outermost.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// passthrough forwards the optional store interfaces.
type passthrough struct {
	next ports.SessionStore
}

func (p passthrough) List(ctx context.Context) ([]string, error) {
	return p.next.List(ctx)
}

func (p passthrough) records(ctx context.Context, collection string) ([]domain.CommittedRecord, error) {
	r, ok := p.next.(ports.RecordReader)
	if !ok {
		return nil, ErrNoLedger
	}
	return r.Records(ctx, collection)
}

func (p passthrough) RegisterCollections(ctx context.Context, names []string) error {
	if r, ok := p.next.(ports.CollectionRegistrar); ok {
		return r.RegisterCollections(ctx, names)
	}
	return nil
}
