// Package keyring derives the cipher key and storage identifier for a
// (secret, namespace) pair.
package keyring

import (
	"crypto/sha512"
	"strconv"

	"github.com/47ng/local-state-sync/internal/core/domain"
	"github.com/47ng/local-state-sync/pkg/codec"
)

// DefaultNamespace scopes state channels that do not choose their own.
const DefaultNamespace = "local-state-sync"

// SecretSize is the required decoded length of the secret material.
const SecretSize = 32

// derivedKeySize is the truncated length of the 512-bit digest.
const derivedKeySize = 32

// Keyring holds the derived cipher key and the public storage identifier
// for one (secret, namespace) pair. It exists only in the loaded state of
// a sync engine and is recomputed on every construction, never cached.
type Keyring struct {
	key       []byte
	storageID string
}

// ParseSecret decodes base64url-encoded secret material and validates its
// length. A wrong length is a caller programming error, rejected before
// any hashing occurs.
func ParseSecret(encoded string) ([]byte, error) {
	secret, err := codec.Decode(encoded)
	if err != nil {
		return nil, domain.ErrKeyEncoding.WithCause(err)
	}
	if len(secret) != SecretSize {
		return nil, domain.ErrKeyLength.WithDetails(
			"decoded length is " + strconv.Itoa(len(secret)) + " bytes")
	}
	return secret, nil
}

// Derive computes the cipher key and storage identifier from secret
// material and a namespace.
//
// The key is the first 32 bytes of SHA-512(secret || namespace), with the
// namespace appended as raw UTF-8 bytes and no delimiter; existing stored
// data depends on these exact concatenation semantics. The storage
// identifier is the encoded first 32 bytes of SHA-512(key): hashing the
// derived key again means the public identifier reveals nothing about the
// key or the secret.
func Derive(secret []byte, namespace string) (*Keyring, error) {
	if len(secret) != SecretSize {
		return nil, domain.ErrKeyLength.WithDetails(
			"got " + strconv.Itoa(len(secret)) + " bytes")
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	input := make([]byte, 0, len(secret)+len(namespace))
	input = append(input, secret...)
	input = append(input, namespace...)
	keyDigest := sha512.Sum512(input)
	key := make([]byte, derivedKeySize)
	copy(key, keyDigest[:derivedKeySize])

	idDigest := sha512.Sum512(key)

	return &Keyring{
		key:       key,
		storageID: codec.Encode(idDigest[:derivedKeySize]),
	}, nil
}

// Key returns the 256-bit cipher key.
func (k *Keyring) Key() []byte {
	return k.key
}

// StorageID returns the public storage identifier.
func (k *Keyring) StorageID() string {
	return k.storageID
}

// Zero wipes the key material. The keyring is unusable afterwards.
func (k *Keyring) Zero() {
	for i := range k.key {
		k.key[i] = 0
	}
}
