package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Store.Backend != BackendFile {
		t.Errorf("Backend = %q, want %q", cfg.Store.Backend, BackendFile)
	}
	if cfg.Store.Dir == "" {
		t.Error("default storage dir is empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_FileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
namespace: my-app
ttl: 5m
store:
  backend: badger
  dir: /var/lib/localsync
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, map[string]any{
		"store.backend": "file",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Namespace != "my-app" {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, "my-app")
	}
	if cfg.TTL != 5*time.Minute {
		t.Errorf("TTL = %v, want 5m", cfg.TTL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	// Flag override wins over the file.
	if cfg.Store.Backend != BackendFile {
		t.Errorf("Store.Backend = %q, want %q after override", cfg.Store.Backend, BackendFile)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("namespace: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOCALSYNC_NAMESPACE", "from-env")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Namespace != "from-env" {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, "from-env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, true},
		{"missing dir", func(c *Config) { c.Store.Dir = "" }, true},
		{"negative ttl", func(c *Config) { c.TTL = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
