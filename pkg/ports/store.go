package ports

import (
	"context"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// SessionStore persists conversation state, one record per user, together
// with the append-only ledger of committed records.
type SessionStore interface {
	// Load retrieves the state for a user.
	// Returns domain.ErrSessionNotFound if the user has never been seen.
	Load(ctx context.Context, userID string) (*domain.SessionState, error)

	// Apply writes next and appends records as a single unit: either both
	// are durable or neither is. expected is the version that was loaded
	// (0 when the session did not exist). If the stored version differs,
	// Apply returns domain.ErrVersionConflict and changes nothing.
	// On success the stored state carries version expected+1.
	Apply(ctx context.Context, userID string, expected int64, next *domain.SessionState, records []domain.CommittedRecord) error

	// List returns the ids of every known user.
	List(ctx context.Context) ([]string, error)
}

// RecordReader exposes the committed ledger.
type RecordReader interface {
	// Records returns the records of a collection in commit order.
	Records(ctx context.Context, collection string) ([]domain.CommittedRecord, error)
}

// CollectionRegistrar is implemented by stores that prepare collections
// ahead of the first commit.
type CollectionRegistrar interface {
	RegisterCollections(ctx context.Context, names []string) error
}
