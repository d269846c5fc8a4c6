package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/47ng/local-state-sync/internal/infra/shutdown"
	"github.com/47ng/local-state-sync/localsync"
	"github.com/47ng/local-state-sync/pkg/crypto/aead"
)

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print state updates from other processes as they arrive",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "timestamps",
				Aliases: []string{"t"},
				Usage:   "Prefix each update with the arrival time",
			},
		},
		Action: stateWatch,
	}
}

func stateWatch(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	store, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	timestamps := c.Bool("timestamps")
	onUpdate := func(value string) {
		if timestamps {
			fmt.Fprintf(c.App.Writer, "%s %s\n", time.Now().Format(time.RFC3339), value)
			return
		}
		fmt.Fprintln(c.App.Writer, value)
	}

	engine, err := localsync.New(c.Context, store, localsync.Config[string]{
		EncryptionKey:   cfg.Key,
		Namespace:       cfg.Namespace,
		OnStateUpdated:  onUpdate,
		StateParser:     func(p []byte) (string, error) { return string(p), nil },
		StateSerializer: func(v string) ([]byte, error) { return []byte(v), nil },
		DefaultTTL:      cfg.TTL,
		CipherSuite:     aead.Suite(cfg.Suite),
		Logger:          log,
	})
	if err != nil {
		store.Close()
		return err
	}
	if engine.Disabled() {
		engine.Close()
		store.Close()
		return fmt.Errorf("storage backend unavailable at %s", cfg.Store.Dir)
	}

	log.Info("watching for state updates", "backend", cfg.Store.Backend, "dir", cfg.Store.Dir)

	handler := shutdown.NewHandler(5 * time.Second)
	handler.OnShutdown(func(context.Context) error { return store.Close() })
	handler.OnShutdown(func(context.Context) error { return engine.Close() })
	return handler.Wait(c.Context)
}
