// Package aead provides the authenticated encryption used for stored records.
package aead

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// Suite identifies the cipher algorithm.
type Suite string

const (
	SuiteAESGCM   Suite = "aes-gcm"
	SuiteChaCha20 Suite = "chacha20-poly1305"
)

// KeySize is the required key length in bytes for every suite.
const KeySize = 32

// IVSize is the initialization vector length in bytes. Both suites use
// 96-bit nonces, which keeps the record wire format suite-independent.
const IVSize = 12

// ErrKeySize is returned when the key is not exactly KeySize bytes.
var ErrKeySize = errors.New("aead: key must be exactly 32 bytes")

// Cipher provides authenticated encryption with associated data.
//
// The IV is carried separately from the ciphertext because the record
// format persists them as independent fields.
type Cipher interface {
	// Suite returns the cipher suite.
	Suite() Suite

	// Seal encrypts plaintext, authenticating additionalData alongside it.
	// A fresh random IV is generated for every call.
	Seal(plaintext, additionalData []byte) (iv, ciphertext []byte, err error)

	// Open decrypts ciphertext produced by Seal. The additionalData must
	// match the value supplied at Seal time or authentication fails.
	Open(iv, ciphertext, additionalData []byte) ([]byte, error)

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// New creates a cipher of the given suite. An empty suite selects AES-GCM,
// which is the wire-compatible default: records written by one context must
// decrypt in any other, so the suite is a configuration choice, never a
// per-host hardware decision.
func New(key []byte, suite Suite) (Cipher, error) {
	switch suite {
	case SuiteAESGCM, "":
		return NewAESGCM(key)
	case SuiteChaCha20:
		return NewChaCha20(key)
	default:
		return nil, errors.New("aead: unknown cipher suite: " + string(suite))
	}
}

// baseCipher provides the common Seal/Open machinery for both suites.
type baseCipher struct {
	aead cipher.AEAD
}

func (c *baseCipher) Overhead() int {
	return c.aead.Overhead()
}

func (c *baseCipher) seal(plaintext, additionalData []byte) (iv, ciphertext []byte, err error) {
	iv = make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, err
	}
	ciphertext = c.aead.Seal(nil, iv, plaintext, additionalData)
	return iv, ciphertext, nil
}

func (c *baseCipher) open(iv, ciphertext, additionalData []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, errors.New("aead: iv must be exactly 12 bytes")
	}
	return c.aead.Open(nil, iv, ciphertext, additionalData)
}
