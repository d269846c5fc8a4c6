// Package command defines the localsync CLI.
//
// It uses urfave/cli/v2 for command parsing. Every command merges its
// configuration from defaults, an optional YAML file, LOCALSYNC_*
// environment variables, and flags, in that order of priority.
package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/47ng/local-state-sync/internal/cli/config"
	"github.com/47ng/local-state-sync/internal/infra/buildinfo"
	"github.com/47ng/local-state-sync/internal/telemetry/logger"
	"github.com/47ng/local-state-sync/storage"
	"github.com/47ng/local-state-sync/storage/badgerstore"
	"github.com/47ng/local-state-sync/storage/filestore"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "localsync",
		Usage:   "encrypted state synchronization between local processes",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SetCommand(),
			GetCommand(),
			ClearCommand(),
			WatchCommand(),
			KeygenCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"LOCALSYNC_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "Base64url-encoded 256-bit encryption key",
			EnvVars: []string{"LOCALSYNC_KEY"},
		},
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"n"},
			Usage:   "State channel namespace",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "Storage backend: badger or file",
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "Storage directory",
		},
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "Expiration applied to writes (e.g. 30m); 0 disables",
		},
		&cli.StringFlag{
			Name:  "suite",
			Usage: "AEAD suite: aes-gcm or chacha20-poly1305",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

// loadConfig merges all configuration sources for one invocation.
func loadConfig(c *cli.Context) (config.Config, error) {
	overrides := make(map[string]any)
	if c.IsSet("key") {
		overrides["key"] = c.String("key")
	}
	if c.IsSet("namespace") {
		overrides["namespace"] = c.String("namespace")
	}
	if c.IsSet("store") {
		overrides["store.backend"] = c.String("store")
	}
	if c.IsSet("dir") {
		overrides["store.dir"] = c.String("dir")
	}
	if c.IsSet("ttl") {
		overrides["ttl"] = c.Duration("ttl")
	}
	if c.IsSet("suite") {
		overrides["suite"] = c.String("suite")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	return config.Load(c.String("config"), overrides)
}

// newLogger builds the CLI logger from the merged configuration.
func newLogger(cfg config.Config) *slog.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// openStore constructs the configured storage substrate.
func openStore(cfg config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendBadger:
		bcfg := badgerstore.DefaultConfig(cfg.Store.Dir)
		bcfg.Logger = log
		return badgerstore.New(bcfg)
	case config.BackendFile:
		return filestore.New(filestore.Config{
			Dir:    cfg.Store.Dir,
			Logger: log,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Store.Backend)
	}
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
