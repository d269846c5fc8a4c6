package localsync

import (
	"crypto/rand"

	"github.com/47ng/local-state-sync/internal/keyring"
	"github.com/47ng/local-state-sync/pkg/codec"
)

// GenerateKey produces a fresh base64url-encoded 256-bit encryption key
// suitable for Config.EncryptionKey.
func GenerateKey() string {
	secret := make([]byte, keyring.SecretSize)
	_, _ = rand.Read(secret)
	return codec.Encode(secret)
}
