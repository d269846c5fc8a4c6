package config

import (
	"os"
	"path/filepath"
)

// defaultStateDir picks a per-user directory for the file backend.
func defaultStateDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "local-state-sync")
}
