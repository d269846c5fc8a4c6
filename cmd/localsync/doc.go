// Package main provides the entry point for the localsync CLI.
//
// localsync shares encrypted state between processes on one machine
// through a common storage directory:
//
//	localsync keygen
//	localsync --key KEY set '{"user":"alice"}'
//	localsync --key KEY get
//	localsync --key KEY watch
//	localsync --key KEY clear
//
// The encryption key can also come from the LOCALSYNC_KEY environment
// variable or a YAML configuration file (--config).
package main
