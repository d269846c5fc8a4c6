// Package filestore provides a storage substrate backed by one file per
// key, sharable between processes. Change detection uses filesystem
// notifications, so a sync engine in one process observes writes made by
// another process sharing the directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/47ng/local-state-sync/storage"
)

// recordExt is the filename suffix for stored records. Storage identifiers
// are base64url so they are always safe as filenames.
const recordExt = ".record"

// Config configures the file substrate.
type Config struct {
	// Dir is the directory holding one file per key. Required; created
	// if missing.
	Dir string

	// ReloadLimit caps how many change events per second are processed,
	// protecting against event storms from busy writers. Zero selects
	// a default of 50/s.
	ReloadLimit rate.Limit

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store is a file-per-key storage substrate.
type Store struct {
	dir     string
	logger  *slog.Logger
	limiter *rate.Limiter

	// lastSeen tracks known file contents so events carry old values and
	// spurious notifications (same content rewritten) are suppressed.
	lastSeenMu sync.Mutex
	lastSeen   map[string]string

	available bool
}

var _ storage.Store = (*Store)(nil)

// New creates a file store rooted at cfg.Dir. If the directory cannot be
// created or written, the store reports itself unavailable instead of
// failing: the sync engine surfaces that as a disabled condition.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("filestore: dir is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ReloadLimit <= 0 {
		cfg.ReloadLimit = 50
	}

	s := &Store{
		dir:      cfg.Dir,
		logger:   cfg.Logger,
		limiter:  rate.NewLimiter(cfg.ReloadLimit, 10),
		lastSeen: make(map[string]string),
	}

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		cfg.Logger.Warn("filestore: directory not writable, store disabled",
			"dir", cfg.Dir, "error", err)
		return s, nil
	}
	s.available = true
	return s, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+recordExt)
}

// Get returns the value at key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("filestore: get: %w", err)
	}
	value := string(data)
	s.remember(key, value)
	return value, true, nil
}

// Set stores value at key. The write goes through a temp file and rename
// so concurrent readers never observe a partial record.
func (s *Store) Set(_ context.Context, key, value string) error {
	tmp, err := os.CreateTemp(s.dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: set: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filestore: set: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: set: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: set: %w", err)
	}
	s.remember(key, value)
	return nil
}

// Remove deletes the value at key. Removing an absent key is a no-op.
func (s *Store) Remove(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: remove: %w", err)
	}
	s.forget(key)
	return nil
}

// Watch subscribes fn to changes in the record directory. Event delivery
// for one subscription is sequential and throttled by the reload limiter.
func (s *Store) Watch(ctx context.Context, fn func(storage.Event)) (storage.Subscription, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filestore: watch: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("filestore: watch dir: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	go s.watchLoop(subCtx, watcher, fn)

	return &subscription{cancel: cancel}, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, fn func(storage.Event)) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			key, isRecord := keyFromPath(event.Name)
			if !isRecord {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			if ev, changed := s.reload(key); changed {
				fn(ev)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("filestore: watch error", "error", err)
		}
	}
}

// reload reads the current state of key and synthesizes a change event
// against the lastSeen cache. Notifications that do not change the visible
// value (our own writes included, since Set updates the cache first) are
// suppressed.
func (s *Store) reload(key string) (storage.Event, bool) {
	data, err := os.ReadFile(s.path(key))
	exists := err == nil
	value := string(data)

	s.lastSeenMu.Lock()
	defer s.lastSeenMu.Unlock()

	old, hadOld := s.lastSeen[key]
	switch {
	case exists && hadOld && old == value:
		return storage.Event{}, false
	case !exists && !hadOld:
		return storage.Event{}, false
	}

	ev := storage.Event{Key: key}
	if hadOld {
		ev.OldValue = storage.StrPtr(old)
	}
	if exists {
		ev.NewValue = storage.StrPtr(value)
		s.lastSeen[key] = value
	} else {
		delete(s.lastSeen, key)
	}
	return ev, true
}

func (s *Store) remember(key, value string) {
	s.lastSeenMu.Lock()
	s.lastSeen[key] = value
	s.lastSeenMu.Unlock()
}

func (s *Store) forget(key string) {
	s.lastSeenMu.Lock()
	delete(s.lastSeen, key)
	s.lastSeenMu.Unlock()
}

// Available reports whether the record directory is usable.
func (s *Store) Available() bool {
	return s.available
}

// Close releases the store. Watch subscriptions hold their own watchers
// and are released by cancelling them.
func (s *Store) Close() error {
	return nil
}

func keyFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, recordExt) {
		return "", false
	}
	return strings.TrimSuffix(base, recordExt), true
}

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

// Cancel stops event delivery. Cancelling twice is safe.
func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}
