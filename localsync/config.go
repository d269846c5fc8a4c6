package localsync

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/47ng/local-state-sync/internal/keyring"
	"github.com/47ng/local-state-sync/pkg/crypto/aead"
)

// Config carries everything an Engine needs besides its store.
type Config[T any] struct {
	// EncryptionKey is a base64url-encoded 32-byte secret, distributed
	// out of band. All contexts sharing state use the same key.
	EncryptionKey string

	// Namespace separates independent state channels under one key.
	// Empty means DefaultNamespace.
	Namespace string

	// OnStateUpdated receives state decrypted from other contexts.
	// Required. Invocations are serialized, never concurrent.
	OnStateUpdated func(value T)

	// StateParser turns decrypted plaintext into T. Optional when T is
	// JSON-mappable; the default unmarshals JSON.
	StateParser func(plaintext []byte) (T, error)

	// StateSerializer turns T into plaintext to encrypt. Optional; the
	// default marshals JSON.
	StateSerializer func(value T) ([]byte, error)

	// DefaultTTL, when positive, stamps every write with an expiration
	// unless overridden per call. Zero means records never expire.
	DefaultTTL time.Duration

	// CipherSuite selects the AEAD construction. All contexts must
	// agree. Zero value is AES-256-GCM.
	CipherSuite aead.Suite

	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// DefaultNamespace is used when Config.Namespace is empty.
const DefaultNamespace = keyring.DefaultNamespace

// WriteOption adjusts a single SetState call.
type WriteOption func(ttl *time.Duration)

// WithTTL overrides the configured default TTL for one write. Zero
// disables expiration for that write.
func WithTTL(d time.Duration) WriteOption {
	return func(ttl *time.Duration) { *ttl = d }
}

func (c *Config[T]) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.StateParser == nil {
		c.StateParser = jsonParser[T]
	}
	if c.StateSerializer == nil {
		c.StateSerializer = jsonSerializer[T]
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
