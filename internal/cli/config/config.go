// Package config defines the localsync CLI configuration.
package config

import (
	"fmt"
	"time"

	"github.com/47ng/local-state-sync/internal/infra/confloader"
)

// Storage backends selectable from the CLI.
const (
	BackendBadger = "badger"
	BackendFile   = "file"
)

// Config is the full CLI configuration, merged from defaults, an
// optional YAML file, LOCALSYNC_* environment variables, and flags.
type Config struct {
	// Key is the base64url-encoded 256-bit encryption key.
	Key string `koanf:"key"`

	// Namespace separates state channels under one key.
	Namespace string `koanf:"namespace"`

	// TTL stamps writes with an expiration. Zero disables it.
	TTL time.Duration `koanf:"ttl"`

	// Suite is the AEAD suite (aes-gcm or chacha20-poly1305).
	Suite string `koanf:"suite"`

	Store StoreConfig `koanf:"store"`
	Log   LogConfig   `koanf:"log"`
}

// StoreConfig selects and parameterizes the storage substrate.
type StoreConfig struct {
	// Backend is badger or file.
	Backend string `koanf:"backend"`

	// Dir is the substrate's directory.
	Dir string `koanf:"dir"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Suite: "aes-gcm",
		Store: StoreConfig{
			Backend: BackendFile,
			Dir:     defaultStateDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load merges the configuration sources. overrides carries flag values
// and wins over file and environment.
func Load(filePath string, overrides map[string]any) (Config, error) {
	cfg := Default()

	loader := confloader.NewLoader()
	if filePath != "" {
		if err := loader.LoadFile(filePath); err != nil {
			return cfg, err
		}
	}
	if err := loader.LoadEnv(); err != nil {
		return cfg, err
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return cfg, err
		}
	}
	if err := loader.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks fields the engine cannot check itself.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendBadger, BackendFile:
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)",
			c.Store.Backend, BackendBadger, BackendFile)
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("storage directory is required")
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl must not be negative")
	}
	return nil
}
