package localsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/47ng/local-state-sync/storage"
	"github.com/47ng/local-state-sync/storage/memory"
)

type sessionState struct {
	User   string `json:"user"`
	Expiry int64  `json:"expiry"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, store storage.Store, key string, onUpdate func(sessionState), opts ...func(*Config[sessionState])) *Engine[sessionState] {
	t.Helper()
	if onUpdate == nil {
		onUpdate = func(sessionState) {}
	}
	cfg := Config[sessionState]{
		EncryptionKey:  key,
		OnStateUpdated: onUpdate,
		Logger:         discardLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := New(context.Background(), store, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNew_ConfigValidation(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	tests := []struct {
		name    string
		cfg     Config[sessionState]
		wantErr error
	}{
		{
			name:    "missing callback",
			cfg:     Config[sessionState]{EncryptionKey: key},
			wantErr: ErrCallbackMissing,
		},
		{
			name: "key not base64url",
			cfg: Config[sessionState]{
				EncryptionKey:  "not/valid+base64url!",
				OnStateUpdated: func(sessionState) {},
			},
			wantErr: ErrKeyEncoding,
		},
		{
			name: "key too short",
			cfg: Config[sessionState]{
				EncryptionKey:  "c2hvcnQ",
				OnStateUpdated: func(sessionState) {},
			},
			wantErr: ErrKeyLength,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logger = discardLogger()
			_, err := New(context.Background(), hub.Context(), tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// unavailableStore models an environment with no usable substrate.
type unavailableStore struct{}

func (unavailableStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (unavailableStore) Set(context.Context, string, string) error        { return nil }
func (unavailableStore) Remove(context.Context, string) error             { return nil }
func (unavailableStore) Watch(context.Context, func(storage.Event)) (storage.Subscription, error) {
	return nil, errors.New("unavailable")
}
func (unavailableStore) Available() bool { return false }
func (unavailableStore) Close() error    { return nil }

func TestNew_UnavailableStoreDisablesSync(t *testing.T) {
	e, err := New(context.Background(), unavailableStore{}, Config[sessionState]{
		EncryptionKey:  GenerateKey(),
		OnStateUpdated: func(sessionState) {},
		Logger:         discardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v, want nil for unavailable store", err)
	}
	if !e.Disabled() {
		t.Error("Disabled() = false, want true")
	}
	if e.Ready() {
		t.Error("Ready() = true, want false")
	}

	if err := e.SetState(context.Background(), sessionState{User: "x"}); !errors.Is(err, ErrSyncDisabled) {
		t.Errorf("SetState() error = %v, want ErrSyncDisabled", err)
	}
	if err := e.ClearState(context.Background()); !errors.Is(err, ErrSyncDisabled) {
		t.Errorf("ClearState() error = %v, want ErrSyncDisabled", err)
	}
}

func TestRoundTrip(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	var got []sessionState
	var localEcho []sessionState

	receiver := newTestEngine(t, hub.Context(), key, func(s sessionState) {
		got = append(got, s)
	})
	sender := newTestEngine(t, hub.Context(), key, func(s sessionState) {
		localEcho = append(localEcho, s)
	})

	want := sessionState{User: "alice", Expiry: 1234}
	if err := sender.SetState(context.Background(), want); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	if len(got) != 1 || got[0] != want {
		t.Errorf("receiver got %v, want [%v]", got, want)
	}
	if len(localEcho) != 0 {
		t.Errorf("sender callback fired for its own write: %v", localEcho)
	}
	if sender.StorageID() != receiver.StorageID() {
		t.Errorf("storage IDs differ: %q vs %q", sender.StorageID(), receiver.StorageID())
	}
}

func TestInitialLoad(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	writer := newTestEngine(t, hub.Context(), key, nil)
	want := sessionState{User: "bob"}
	if err := writer.SetState(context.Background(), want); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	var got []sessionState
	newTestEngine(t, hub.Context(), key, func(s sessionState) {
		got = append(got, s)
	})

	if len(got) != 1 || got[0] != want {
		t.Errorf("initial load delivered %v, want [%v]", got, want)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	var crossTalk int
	other := newTestEngine(t, hub.Context(), key, func(sessionState) {
		crossTalk++
	}, func(c *Config[sessionState]) { c.Namespace = "other-app" })

	sender := newTestEngine(t, hub.Context(), key, nil)
	if err := sender.SetState(context.Background(), sessionState{User: "carol"}); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	if crossTalk != 0 {
		t.Errorf("callback fired %d times across namespaces, want 0", crossTalk)
	}
	if sender.StorageID() == other.StorageID() {
		t.Error("different namespaces produced the same storage ID")
	}
}

func TestForeignKeyRecordsDropped(t *testing.T) {
	hub := memory.NewHub()

	var got int
	newTestEngine(t, hub.Context(), GenerateKey(), func(sessionState) {
		got++
	})

	// A context holding a different key writes to the same channel name
	// only by coincidence of namespace; its storage ID differs, and even
	// a record planted under our ID must not decrypt.
	intruder := newTestEngine(t, hub.Context(), GenerateKey(), nil)
	if err := intruder.SetState(context.Background(), sessionState{User: "mallory"}); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if got != 0 {
		t.Errorf("callback fired %d times for a foreign key's write, want 0", got)
	}
}

func TestTamperedRecordDropped(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	var got int
	receiver := newTestEngine(t, hub.Context(), key, func(sessionState) {
		got++
	})

	// Plant garbage directly under the engine's storage ID.
	raw := hub.Context()
	if err := raw.Set(context.Background(), receiver.StorageID(), "bm90.dmFsaWQ"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got != 0 {
		t.Errorf("callback fired %d times for a tampered record, want 0", got)
	}
}

func TestExpiration(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	sender := newTestEngine(t, hub.Context(), key, nil)
	receiverStore := hub.Context()
	receiver := newTestEngine(t, receiverStore, key, nil)

	base := time.Now()
	sender.now = func() time.Time { return base }
	if err := sender.SetState(context.Background(), sessionState{User: "dave"}, WithTTL(time.Minute)); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	// Within the TTL the state reads back.
	receiver.now = func() time.Time { return base.Add(30 * time.Second) }
	if _, ok, err := receiver.GetState(context.Background()); err != nil || !ok {
		t.Fatalf("GetState() before expiry = (%v, %v), want state present", ok, err)
	}

	// Past the TTL the record is rejected and purged.
	receiver.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, _, err := receiver.GetState(context.Background()); !errors.Is(err, ErrStateExpired) {
		t.Fatalf("GetState() after expiry error = %v, want ErrStateExpired", err)
	}
	if _, present, _ := receiverStore.Get(context.Background(), receiver.StorageID()); present {
		t.Error("expired record not purged from storage")
	}
}

func TestExpiredNotificationPurgesRecord(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	store := hub.Context()
	var got int
	receiver := newTestEngine(t, store, key, func(sessionState) {
		got++
	})
	base := time.Now()
	receiver.now = func() time.Time { return base.Add(time.Hour) }

	sender := newTestEngine(t, hub.Context(), key, nil)
	sender.now = func() time.Time { return base }
	if err := sender.SetState(context.Background(), sessionState{User: "erin"}, WithTTL(time.Minute)); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	if got != 0 {
		t.Errorf("callback fired %d times for an expired record, want 0", got)
	}
	if _, present, _ := store.Get(context.Background(), receiver.StorageID()); present {
		t.Error("expired record not purged after notification")
	}
}

func TestClearState(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	var got int
	receiver := newTestEngine(t, hub.Context(), key, func(sessionState) {
		got++
	})

	sender := newTestEngine(t, hub.Context(), key, nil)
	if err := sender.SetState(context.Background(), sessionState{User: "frank"}); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if got != 1 {
		t.Fatalf("callback fired %d times after write, want 1", got)
	}

	if err := sender.ClearState(context.Background()); err != nil {
		t.Fatalf("ClearState() error = %v", err)
	}
	// Deletions do not reach the callback.
	if got != 1 {
		t.Errorf("callback fired %d times after clear, want 1", got)
	}
	if _, ok, _ := receiver.GetState(context.Background()); ok {
		t.Error("state still readable after clear")
	}

	// Clearing again is a no-op.
	if err := sender.ClearState(context.Background()); err != nil {
		t.Errorf("second ClearState() error = %v, want nil", err)
	}
}

func TestGetState_Empty(t *testing.T) {
	hub := memory.NewHub()
	e := newTestEngine(t, hub.Context(), GenerateKey(), nil)

	if _, ok, err := e.GetState(context.Background()); ok || err != nil {
		t.Errorf("GetState() on empty storage = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestClose(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	var got int
	receiver := newTestEngine(t, hub.Context(), key, func(sessionState) {
		got++
	})
	if err := receiver.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := receiver.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	if err := receiver.SetState(context.Background(), sessionState{}); !errors.Is(err, ErrClosed) {
		t.Errorf("SetState() after close error = %v, want ErrClosed", err)
	}

	sender := newTestEngine(t, hub.Context(), key, nil)
	if err := sender.SetState(context.Background(), sessionState{User: "grace"}); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if got != 0 {
		t.Errorf("callback fired %d times after close, want 0", got)
	}
}

func TestDefaultTTLAppliesToWrites(t *testing.T) {
	hub := memory.NewHub()
	key := GenerateKey()

	sender := newTestEngine(t, hub.Context(), key, nil,
		func(c *Config[sessionState]) { c.DefaultTTL = time.Minute })
	base := time.Now()
	sender.now = func() time.Time { return base }
	if err := sender.SetState(context.Background(), sessionState{User: "heidi"}); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	reader := newTestEngine(t, hub.Context(), key, nil)
	reader.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, _, err := reader.GetState(context.Background()); !errors.Is(err, ErrStateExpired) {
		t.Errorf("GetState() error = %v, want ErrStateExpired from default TTL", err)
	}
}
