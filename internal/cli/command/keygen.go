package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/47ng/local-state-sync/localsync"
)

// KeygenCommand returns the keygen command.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a new encryption key",
		Description: "Prints a fresh base64url-encoded 256-bit key. " +
			"Distribute it to every process that should share state.",
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, localsync.GenerateKey())
			return nil
		},
	}
}
