// Package memory provides an in-process storage substrate.
//
// A Hub models the shared storage backend (what web storage is to browser
// tabs); each Context handle models one execution context bound to it.
// Writes through one context are delivered as change events to watchers
// registered by every other context, never back to the writer itself.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/47ng/local-state-sync/pkg/cmap"
	"github.com/47ng/local-state-sync/storage"
)

// Hub is the shared in-process storage backend.
type Hub struct {
	records *cmap.Map[string]
	subs    *cmap.Map[*subscriber]
}

type subscriber struct {
	contextID string
	fn        func(storage.Event)

	// mu serializes event delivery so a subscriber's callback never
	// runs concurrently with itself.
	mu        sync.Mutex
	cancelled atomic.Bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		records: cmap.New[string](),
		subs:    cmap.New[*subscriber](),
	}
}

// Context returns a store handle representing one execution context.
// Every handle shares the hub's records; change events flow between
// handles, never back to the handle that made the change.
func (h *Hub) Context() *Store {
	return &Store{
		hub:       h,
		contextID: ulid.Make().String(),
	}
}

func (h *Hub) dispatch(originContext string, ev storage.Event) {
	h.subs.Range(func(_ string, sub *subscriber) bool {
		if sub.contextID == originContext || sub.cancelled.Load() {
			return true
		}
		sub.mu.Lock()
		if !sub.cancelled.Load() {
			sub.fn(ev)
		}
		sub.mu.Unlock()
		return true
	})
}

// Store is one context's handle on the hub. It implements storage.Store.
type Store struct {
	hub       *Hub
	contextID string
}

var _ storage.Store = (*Store)(nil)

// Get returns the value at key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.hub.records.Get(key)
	return v, ok, nil
}

// Set stores value at key and notifies watchers in other contexts.
func (s *Store) Set(_ context.Context, key, value string) error {
	previous, existed := s.hub.records.Swap(key, value)

	ev := storage.Event{Key: key, NewValue: storage.StrPtr(value)}
	if existed {
		ev.OldValue = storage.StrPtr(previous)
	}
	s.hub.dispatch(s.contextID, ev)
	return nil
}

// Remove deletes the value at key. Removing an absent key is a no-op and
// produces no event.
func (s *Store) Remove(_ context.Context, key string) error {
	previous, existed := s.hub.records.Get(key)
	if !existed {
		return nil
	}
	s.hub.records.Delete(key)

	s.hub.dispatch(s.contextID, storage.Event{
		Key:      key,
		OldValue: storage.StrPtr(previous),
	})
	return nil
}

// Watch subscribes fn to changes made by other contexts. The subscription
// is released by cancelling it or by cancelling ctx.
func (s *Store) Watch(ctx context.Context, fn func(storage.Event)) (storage.Subscription, error) {
	id := ulid.Make().String()
	sub := &subscriber{contextID: s.contextID, fn: fn}
	s.hub.subs.Set(id, sub)

	handle := &subscription{hub: s.hub, id: id, sub: sub}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			handle.Cancel()
		}()
	}
	return handle, nil
}

// Available always reports true: the hub has no external dependencies.
func (s *Store) Available() bool {
	return true
}

// Close cancels every subscription this context registered.
func (s *Store) Close() error {
	var stale []string
	s.hub.subs.Range(func(id string, sub *subscriber) bool {
		if sub.contextID == s.contextID {
			sub.cancelled.Store(true)
			stale = append(stale, id)
		}
		return true
	})
	for _, id := range stale {
		s.hub.subs.Delete(id)
	}
	return nil
}

type subscription struct {
	hub *Hub
	id  string
	sub *subscriber
}

// Cancel stops event delivery. Cancelling twice is safe.
func (s *subscription) Cancel() {
	s.sub.cancelled.Store(true)
	s.hub.subs.Delete(s.id)
}
