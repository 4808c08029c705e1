package ports

import "context"

// Deliverer transmits content keys emitted by the interpreter to a user.
// Resolving a key into a renderable payload is the deliverer's concern.
type Deliverer interface {
	Deliver(ctx context.Context, userID string, keys []string) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, userID string, keys []string) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, userID string, keys []string) error {
	return f(ctx, userID, keys)
}
