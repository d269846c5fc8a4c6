// Package main provides the entry point for the localsync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/47ng/local-state-sync/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
