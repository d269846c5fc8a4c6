// Package localsync replicates encrypted application state between
// execution contexts sharing a storage substrate.
//
// A caller supplies an out-of-band 256-bit key and a state-updated
// callback. The engine derives a namespaced cipher key and a public
// storage identifier, encrypts state before persisting it, and decrypts
// change notifications observed from other contexts, keeping independent
// contexts eventually consistent without a shared process.
package localsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/47ng/local-state-sync/internal/core/domain"
	"github.com/47ng/local-state-sync/internal/frame"
	"github.com/47ng/local-state-sync/internal/keyring"
	"github.com/47ng/local-state-sync/internal/telemetry/metric"
	"github.com/47ng/local-state-sync/pkg/crypto/aead"
	"github.com/47ng/local-state-sync/storage"
)

// Engine synchronizes one encrypted state channel across contexts.
//
// The lifecycle is a one-way transition from idle to loaded. Key material
// and the storage identifier exist only in the loaded state; an engine
// that never reaches it (unavailable substrate) is permanently disabled
// and reports that explicitly from every write operation.
type Engine[T any] struct {
	store   storage.Store
	cfg     Config[T]
	logger  *slog.Logger
	metrics *metric.Metrics

	// mu guards the lifecycle fields below.
	mu          sync.Mutex
	loaded      *loadedState
	disabled    bool
	closed      bool
	lastWritten string

	// cbMu serializes state delivery so the caller's callback never runs
	// concurrently with itself, mirroring the single-flight property of
	// an event-loop host.
	cbMu sync.Mutex

	now func() time.Time
}

// loadedState holds what only exists once setup succeeds.
type loadedState struct {
	cipher aead.Cipher
	keys   *keyring.Keyring
	sub    storage.Subscription
}

// New constructs an engine over store and performs setup: key
// derivation, subscription to change notifications, and the initial
// load of any existing record (delivered through the callback before
// New returns).
//
// Configuration errors (bad key, missing callback) are returned
// immediately. An unavailable substrate is not an error: the engine is
// returned in a permanently disabled state and write operations report
// ErrSyncDisabled.
func New[T any](ctx context.Context, store storage.Store, cfg Config[T]) (*Engine[T], error) {
	if cfg.OnStateUpdated == nil {
		return nil, domain.ErrCallbackMissing
	}
	secret, err := keyring.ParseSecret(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	e := &Engine[T]{
		store:   store,
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: metric.New(cfg.Registerer),
		now:     time.Now,
	}

	if !store.Available() {
		e.disabled = true
		e.logger.Warn("storage substrate unavailable, sync disabled")
		return e, nil
	}

	keys, err := keyring.Derive(secret, cfg.Namespace)
	if err != nil {
		return nil, err
	}
	cipher, err := aead.New(keys.Key(), cfg.CipherSuite)
	if err != nil {
		return nil, err
	}

	sub, err := store.Watch(ctx, e.handleEvent)
	if err != nil {
		e.disabled = true
		e.logger.Warn("change notifications unavailable, sync disabled", "error", err)
		return e, nil
	}

	e.mu.Lock()
	e.loaded = &loadedState{cipher: cipher, keys: keys, sub: sub}
	e.mu.Unlock()
	e.metrics.EngineReady.Set(1)
	e.logger.Debug("sync engine loaded", "storage_id_len", len(keys.StorageID()))

	e.initialLoad(ctx)
	return e, nil
}

// SetState serializes, encrypts, and persists value. Other contexts
// observe it through their change notifications; the local callback is
// not invoked for our own write.
func (e *Engine[T]) SetState(ctx context.Context, value T, opts ...WriteOption) error {
	ls, err := e.ready()
	if err != nil {
		return err
	}

	ttl := e.cfg.DefaultTTL
	for _, opt := range opts {
		opt(&ttl)
	}

	plaintext, err := e.cfg.StateSerializer(value)
	if err != nil {
		return domain.ErrParse.WithDetails("serializer failed").WithCause(err)
	}
	record, err := frame.Seal(ls.cipher, plaintext, ttl, e.now())
	if err != nil {
		return err
	}
	if err := e.store.Set(ctx, ls.keys.StorageID(), record); err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	e.mu.Lock()
	e.lastWritten = record
	e.mu.Unlock()
	e.metrics.RecordsWritten.Inc()
	return nil
}

// ClearState removes the stored record. Clearing when nothing is stored
// is a no-op.
func (e *Engine[T]) ClearState(ctx context.Context) error {
	ls, err := e.ready()
	if err != nil {
		return err
	}
	if err := e.store.Remove(ctx, ls.keys.StorageID()); err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	e.mu.Lock()
	e.lastWritten = ""
	e.mu.Unlock()
	return nil
}

// GetState reads and decrypts the current record directly, outside the
// notification flow. Returns ok=false when nothing usable is stored.
func (e *Engine[T]) GetState(ctx context.Context) (value T, ok bool, err error) {
	var zero T
	ls, err := e.ready()
	if err != nil {
		return zero, false, err
	}

	record, present, err := e.store.Get(ctx, ls.keys.StorageID())
	if err != nil {
		return zero, false, domain.ErrStorage.WithCause(err)
	}
	if !present {
		return zero, false, nil
	}

	plaintext, err := frame.Open(ls.cipher, record, e.now())
	if err != nil {
		if errors.Is(err, domain.ErrStateExpired) {
			e.purgeExpired(ctx, ls)
		}
		return zero, false, err
	}
	parsed, err := e.cfg.StateParser(plaintext)
	if err != nil {
		return zero, false, domain.ErrParse.WithCause(err)
	}
	return parsed, true, nil
}

// Ready reports whether the engine reached the loaded state.
func (e *Engine[T]) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded != nil && !e.closed
}

// Disabled reports whether the substrate was determined unusable.
func (e *Engine[T]) Disabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disabled
}

// StorageID returns the public storage identifier, or "" before loading.
func (e *Engine[T]) StorageID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded == nil {
		return ""
	}
	return e.loaded.keys.StorageID()
}

// Close releases the change subscription and wipes key material. The
// engine is unusable afterwards; the store itself stays open, it belongs
// to the caller.
func (e *Engine[T]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.loaded != nil {
		e.loaded.sub.Cancel()
		e.loaded.keys.Zero()
	}
	e.metrics.EngineReady.Set(0)
	return nil
}

// ready returns the loaded state or the error describing why writes
// cannot proceed.
func (e *Engine[T]) ready() (*loadedState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.closed:
		return nil, domain.ErrClosed
	case e.disabled:
		return nil, domain.ErrDisabled
	case e.loaded == nil:
		return nil, domain.ErrNotReady
	}
	return e.loaded, nil
}

// initialLoad delivers any pre-existing record once, right after setup.
// A corrupt or foreign-key record must not fail startup: every read-path
// error is absorbed and treated as "no usable prior state".
func (e *Engine[T]) initialLoad(ctx context.Context) {
	e.mu.Lock()
	ls := e.loaded
	e.mu.Unlock()
	if ls == nil {
		return
	}

	record, present, err := e.store.Get(ctx, ls.keys.StorageID())
	if err != nil {
		e.logger.Debug("initial load failed", "error", err)
		return
	}
	if !present {
		return
	}

	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.deliver(ctx, ls, record)
}

// handleEvent processes one change notification from the substrate.
// It must never panic or propagate an error: a malicious write from
// another context is dropped, not surfaced.
func (e *Engine[T]) handleEvent(ev storage.Event) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()

	e.mu.Lock()
	ls := e.loaded
	closed := e.closed
	lastWritten := e.lastWritten
	e.mu.Unlock()

	if ls == nil || closed {
		return
	}
	if ev.Key != ls.keys.StorageID() {
		return
	}
	if ev.NewValue == nil {
		// Deletions are not propagated to the callback.
		return
	}
	record := *ev.NewValue
	if record == lastWritten {
		// Some substrates echo our own writes back.
		return
	}

	e.deliver(context.Background(), ls, record)
}

// deliver decrypts a record and hands the parsed state to the callback.
// Callers hold cbMu. All failures are absorbed by design.
func (e *Engine[T]) deliver(ctx context.Context, ls *loadedState, record string) {
	plaintext, err := frame.Open(ls.cipher, record, e.now())
	if err != nil {
		if errors.Is(err, domain.ErrStateExpired) {
			e.logger.Debug("dropping expired record")
			e.purgeExpired(ctx, ls)
		} else {
			e.logger.Debug("dropping undecryptable record", "error_code", domain.GetErrorCode(err))
			e.metrics.DecryptFailures.Inc()
		}
		return
	}

	value, err := e.cfg.StateParser(plaintext)
	if err != nil {
		e.logger.Debug("dropping unparsable record", "error", err)
		e.metrics.DecryptFailures.Inc()
		return
	}

	e.metrics.RecordsReceived.Inc()
	e.cfg.OnStateUpdated(value)
}

// purgeExpired removes a stale record, best effort.
func (e *Engine[T]) purgeExpired(ctx context.Context, ls *loadedState) {
	e.metrics.ExpiredPurged.Inc()
	if err := e.store.Remove(ctx, ls.keys.StorageID()); err != nil {
		e.logger.Debug("failed to purge expired record", "error", err)
	}
}
