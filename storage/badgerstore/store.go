// Package badgerstore provides a persistent storage substrate backed by
// Badger. Change notifications come from Badger's publish/subscribe hook,
// so several sync engines sharing one store observe each other's writes.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/pb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/47ng/local-state-sync/storage"
)

// Config configures the Badger substrate.
type Config struct {
	// Dir is the storage directory. Required.
	Dir string

	// GCInterval is the interval between value log GC runs.
	// Default: 10m.
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio (0.0-1.0). Default: 0.5.
	GCThreshold float64

	// SyncWrites enables fsync after each write. Default: false.
	SyncWrites bool

	// InMemory runs Badger without touching disk (used by tests).
	InMemory bool

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger

	// Registerer receives the store's metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// Store is a Badger-backed storage substrate.
type Store struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	// lastSeen tracks the most recent value per key so change events can
	// carry the old value, which Badger's subscription does not provide.
	lastSeenMu sync.Mutex
	lastSeen   map[string]string

	metricLSMSize  prometheus.Gauge
	metricVLogSize prometheus.Gauge
	metricGCRuns   prometheus.Counter

	stopCh chan struct{}
	doneCh chan struct{}
	closed bool
	mu     sync.Mutex
}

var _ storage.Store = (*Store)(nil)

// New opens a Badger-backed store.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badgerstore: dir is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.InMemory = cfg.InMemory
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = &badgerLogger{logger: cfg.Logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open db: %w", err)
	}

	s := &Store{
		db:       db,
		cfg:      cfg,
		logger:   cfg.Logger,
		lastSeen: make(map[string]string),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	s.registerMetrics(cfg.Registerer)

	go s.gcLoop()

	cfg.Logger.Info("badger store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

func (s *Store) registerMetrics(reg prometheus.Registerer) {
	s.metricLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "localsync_badger_lsm_size_bytes",
		Help: "Size of the Badger LSM tree in bytes.",
	})
	s.metricVLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "localsync_badger_vlog_size_bytes",
		Help: "Size of the Badger value log in bytes.",
	})
	s.metricGCRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "localsync_badger_gc_runs_total",
		Help: "Number of value log GC runs that rewrote data.",
	})
	if reg != nil {
		reg.MustRegister(s.metricLSMSize, s.metricVLogSize, s.metricGCRuns)
	}
}

// Get returns the value at key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badgerstore: get: %w", err)
	}
	return string(value), true, nil
}

// Set stores value at key.
func (s *Store) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("badgerstore: set: %w", err)
	}
	return nil
}

// Remove deletes the value at key. Removing an absent key is a no-op.
func (s *Store) Remove(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badgerstore: remove: %w", err)
	}
	return nil
}

// Watch subscribes fn to change events for all keys. Badger publishes a
// context's own writes too; the sync engine filters that echo.
func (s *Store) Watch(ctx context.Context, fn func(storage.Event)) (storage.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		match := []pb.Match{{Prefix: nil}}
		err := s.db.Subscribe(subCtx, func(kvs *badger.KVList) error {
			for _, kv := range kvs.Kv {
				fn(s.toEvent(kv))
			}
			return nil
		}, match)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("badger subscription ended", "error", err)
		}
	}()

	return &subscription{cancel: cancel}, nil
}

// toEvent converts a published KV into a change event, synthesizing the
// old value from the lastSeen cache. An empty value is a deletion: records
// are never empty strings.
func (s *Store) toEvent(kv *pb.KV) storage.Event {
	key := string(kv.Key)
	ev := storage.Event{Key: key}

	s.lastSeenMu.Lock()
	if old, ok := s.lastSeen[key]; ok {
		ev.OldValue = storage.StrPtr(old)
	}
	if len(kv.Value) == 0 {
		delete(s.lastSeen, key)
	} else {
		value := string(kv.Value)
		ev.NewValue = storage.StrPtr(value)
		s.lastSeen[key] = value
	}
	s.lastSeenMu.Unlock()

	return ev
}

// Available reports whether the store is open.
func (s *Store) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	return s.db.Close()
}

func (s *Store) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runGC()
		}
	}
}

func (s *Store) runGC() {
	lsm, vlog := s.db.Size()
	s.metricLSMSize.Set(float64(lsm))
	s.metricVLogSize.Set(float64(vlog))

	err := s.db.RunValueLogGC(s.cfg.GCThreshold)
	switch {
	case err == nil:
		s.metricGCRuns.Inc()
		s.logger.Debug("badger value log gc rewrote data")
	case errors.Is(err, badger.ErrNoRewrite):
		// Nothing to reclaim.
	case errors.Is(err, badger.ErrRejected):
		// GC already running or db closing.
	default:
		s.logger.Warn("badger value log gc failed", "error", err)
	}
}

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

// Cancel stops event delivery. Cancelling twice is safe.
func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}

// badgerLogger adapts slog to Badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}
