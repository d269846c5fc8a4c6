// Package command provides CLI command definitions for localsync.
//
// Commands:
//
//   - set: encrypt and store state
//   - get: decrypt and print the stored state
//   - clear: remove the stored state
//   - watch: stream decrypted updates from other processes
//   - keygen: generate a new encryption key
package command
