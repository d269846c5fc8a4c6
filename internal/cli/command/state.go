package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/47ng/local-state-sync/localsync"
	"github.com/47ng/local-state-sync/pkg/crypto/aead"
	"github.com/47ng/local-state-sync/storage"
)

const opTimeout = 30 * time.Second

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Encrypt and store state",
		ArgsUsage: "[VALUE]",
		Description: "Stores VALUE as the shared state. When VALUE is " +
			"omitted, it is read from stdin.",
		Action: stateSet,
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:   "get",
		Usage:  "Decrypt and print the stored state",
		Action: stateGet,
	}
}

// ClearCommand returns the clear command.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:   "clear",
		Usage:  "Remove the stored state",
		Action: stateClear,
	}
}

func stateSet(c *cli.Context) error {
	value := c.Args().First()
	if value == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		value = string(data)
	}
	if value == "" {
		return fmt.Errorf("nothing to store: pass VALUE or pipe it on stdin")
	}

	return withEngine(c, func(ctx context.Context, e *localsync.Engine[string]) error {
		if err := e.SetState(ctx, value); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "stored %d bytes under %s\n", len(value), e.StorageID())
		return nil
	})
}

func stateGet(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, e *localsync.Engine[string]) error {
		value, ok, err := e.GetState(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no state stored")
		}
		fmt.Fprintln(c.App.Writer, value)
		return nil
	})
}

func stateClear(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, e *localsync.Engine[string]) error {
		if err := e.ClearState(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "cleared")
		return nil
	})
}

// withEngine builds the store and engine from the merged configuration,
// runs fn, and tears both down.
func withEngine(c *cli.Context, fn func(context.Context, *localsync.Engine[string]) error) error {
	return withEngineCallback(c, nil, func(ctx context.Context, e *localsync.Engine[string], _ storage.Store) error {
		return fn(ctx, e)
	})
}

func withEngineCallback(c *cli.Context, onUpdate func(string), fn func(context.Context, *localsync.Engine[string], storage.Store) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	store, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	if onUpdate == nil {
		onUpdate = func(string) {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	engine, err := localsync.New(ctx, store, localsync.Config[string]{
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
		return err
	}
	defer engine.Close()

	if engine.Disabled() {
		return fmt.Errorf("storage backend unavailable at %s", cfg.Store.Dir)
	}
	return fn(ctx, engine, store)
}
