// Package aead provides authenticated encryption for local-state-sync.
//
// This package implements a cipher abstraction over two AEAD suites:
//
//   - AES-256-GCM: the default, wire-compatible with existing stored data
//   - ChaCha20-Poly1305: an opt-in alternative for hosts without AES-NI
//
// Both suites use 96-bit IVs and 128-bit authentication tags, so the
// persisted record format is identical regardless of suite. The suite is
// a deliberate configuration choice rather than a hardware detection:
// every execution context sharing a storage location must use the same
// suite or decryption fails authentication.
//
// Usage:
//
//	cipher, err := aead.New(key, aead.SuiteAESGCM)
//	iv, ct, err := cipher.Seal(plaintext, aad)
//	plaintext, err := cipher.Open(iv, ct, aad)
package aead
