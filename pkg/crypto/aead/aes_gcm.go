package aead

import (
	"crypto/aes"
	"crypto/cipher"
)

// AESGCM implements AES-256-GCM authenticated encryption.
type AESGCM struct {
	baseCipher
}

// NewAESGCM creates a new AES-256-GCM cipher. Key must be exactly 32 bytes.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{
		baseCipher: baseCipher{aead: aead},
	}, nil
}

// Suite returns the cipher suite.
func (c *AESGCM) Suite() Suite {
	return SuiteAESGCM
}

// Seal encrypts plaintext with a fresh random IV, authenticating additionalData.
func (c *AESGCM) Seal(plaintext, additionalData []byte) (iv, ciphertext []byte, err error) {
	return c.seal(plaintext, additionalData)
}

// Open decrypts ciphertext, verifying additionalData.
func (c *AESGCM) Open(iv, ciphertext, additionalData []byte) ([]byte, error) {
	return c.open(iv, ciphertext, additionalData)
}
