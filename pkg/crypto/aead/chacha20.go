package aead

import (
	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20 implements ChaCha20-Poly1305 authenticated encryption.
type ChaCha20 struct {
	baseCipher
}

// NewChaCha20 creates a new ChaCha20-Poly1305 cipher. Key must be exactly 32 bytes.
func NewChaCha20(key []byte) (*ChaCha20, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrKeySize
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	return &ChaCha20{
		baseCipher: baseCipher{aead: aead},
	}, nil
}

// Suite returns the cipher suite.
func (c *ChaCha20) Suite() Suite {
	return SuiteChaCha20
}

// Seal encrypts plaintext with a fresh random IV, authenticating additionalData.
func (c *ChaCha20) Seal(plaintext, additionalData []byte) (iv, ciphertext []byte, err error) {
	return c.seal(plaintext, additionalData)
}

// Open decrypts ciphertext, verifying additionalData.
func (c *ChaCha20) Open(iv, ciphertext, additionalData []byte) ([]byte, error) {
	return c.open(iv, ciphertext, additionalData)
}
