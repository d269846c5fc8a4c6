// Package codec provides the URL-safe text encoding used for stored records.
//
// All binary material that crosses the storage substrate (IVs, ciphertext,
// expiration bytes, storage identifiers, key material) is encoded with
// unpadded base64url. The alphabet contains no '+', '/', or '=' so encoded
// fields can be joined with '.' and embedded in storage keys unescaped.
package codec

import "encoding/base64"

// encoding is unpadded base64url ('-' and '_' as substitution characters).
var encoding = base64.RawURLEncoding

// Encode encodes raw bytes into URL-safe text.
func Encode(data []byte) string {
	return encoding.EncodeToString(data)
}

// Decode decodes text produced by Encode back into raw bytes.
//
// Input containing characters outside the base64url alphabet, or padding,
// is rejected. Callers are expected to feed Decode only data produced by
// Encode; no recovery is attempted for malformed input.
func Decode(text string) ([]byte, error) {
	return encoding.DecodeString(text)
}

// EncodedLen returns the length in characters of the encoding of n bytes.
func EncodedLen(n int) int {
	return encoding.EncodedLen(n)
}
