// Package storage defines the key-value substrate consumed by the sync engine.
package storage

import "context"

// Event describes a change observed in the substrate.
//
// OldValue and NewValue are nil when the corresponding side of the change
// is absent: a nil NewValue is a deletion, a nil OldValue a fresh insert.
type Event struct {
	Key      string
	OldValue *string
	NewValue *string
}

// Subscription is an owned handle on a change-notification stream.
// Cancelling it stops delivery; cancelling twice is safe.
type Subscription interface {
	Cancel()
}

// Store is the key-value substrate the sync engine persists records into.
//
// Implementations deliver Watch events for changes made by other contexts
// sharing the same backing storage. Whether a context observes its own
// writes is implementation-defined; the engine filters self-echo anyway.
// Events for a given subscriber are delivered sequentially, never
// concurrently.
type Store interface {
	// Get returns the value at key, reporting presence explicitly.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value at key, overwriting any previous value.
	// Last write wins across contexts.
	Set(ctx context.Context, key, value string) error

	// Remove deletes the value at key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error

	// Watch subscribes fn to change events. The returned subscription is
	// owned by the caller and must be cancelled to release it.
	Watch(ctx context.Context, fn func(Event)) (Subscription, error)

	// Available reports whether the substrate is usable in this
	// environment. An unavailable substrate is a disabled condition,
	// not an error: the engine stays permanently idle.
	Available() bool

	// Close releases the substrate's resources.
	Close() error
}

// StrPtr returns a pointer to s, for building Events.
func StrPtr(s string) *string {
	return &s
}
