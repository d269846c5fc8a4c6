// Package frame implements the persisted record format.
//
// A record is the dot-joined text persisted at the storage identifier:
//
//	b64url(iv) "." b64url(ciphertext+tag) [ "." b64url(expiration) ]
//
// The optional expiration is a decimal Unix-millisecond timestamp, carried
// as associated authenticated data: it is readable without the key, but
// cannot be stripped, extended, or forged without failing authentication.
package frame

import (
	"strconv"
	"strings"
	"time"

	"github.com/47ng/local-state-sync/internal/core/domain"
	"github.com/47ng/local-state-sync/pkg/codec"
	"github.com/47ng/local-state-sync/pkg/crypto/aead"
)

// Seal encrypts plaintext into a record. A ttl > 0 binds an expiration of
// now+ttl into the record; a ttl <= 0 emits a two-field record that never
// expires.
func Seal(cipher aead.Cipher, plaintext []byte, ttl time.Duration, now time.Time) (string, error) {
	var aad []byte
	var expField string

	if ttl > 0 {
		expiration := now.Add(ttl).UnixMilli()
		aad = []byte(strconv.FormatInt(expiration, 10))
		expField = codec.Encode(aad)
	}

	iv, ciphertext, err := cipher.Seal(plaintext, aad)
	if err != nil {
		return "", err
	}

	record := codec.Encode(iv) + "." + codec.Encode(ciphertext)
	if expField != "" {
		record += "." + expField
	}
	return record, nil
}

// Open decrypts and verifies a record, returning the plaintext.
//
// Errors are reported through the domain taxonomy: ErrRecordMalformed for
// structural problems, ErrAuthentication for AEAD failures (including
// mismatched or missing expiration data), and ErrStateExpired when the
// record authenticates but its expiration has passed. On ErrStateExpired
// the caller is expected to remove the stale record from storage.
func Open(cipher aead.Cipher, record string, now time.Time) ([]byte, error) {
	fields := strings.Split(record, ".")
	if len(fields) != 2 && len(fields) != 3 {
		return nil, domain.ErrRecordMalformed.WithDetails(
			strconv.Itoa(len(fields)) + " fields")
	}

	iv, err := codec.Decode(fields[0])
	if err != nil {
		return nil, domain.ErrRecordMalformed.WithCause(err)
	}
	if len(iv) != aead.IVSize {
		return nil, domain.ErrRecordMalformed.WithDetails("bad iv length")
	}
	ciphertext, err := codec.Decode(fields[1])
	if err != nil {
		return nil, domain.ErrRecordMalformed.WithCause(err)
	}

	// The expiration bytes are re-supplied to the cipher exactly as they
	// were bound at Seal time. Tampering with the third field, or removing
	// it, surfaces as an authentication failure rather than a policy error.
	var aad []byte
	if len(fields) == 3 {
		aad, err = codec.Decode(fields[2])
		if err != nil {
			return nil, domain.ErrRecordMalformed.WithCause(err)
		}
	}

	plaintext, err := cipher.Open(iv, ciphertext, aad)
	if err != nil {
		return nil, domain.ErrAuthentication.WithCause(err)
	}

	// Freshness is checked only after authentication succeeds.
	if aad != nil {
		expiration, err := strconv.ParseInt(string(aad), 10, 64)
		if err != nil {
			return nil, domain.ErrRecordMalformed.WithCause(err)
		}
		if expiration < now.UnixMilli() {
			return nil, domain.ErrStateExpired.WithDetails(
				"expired " + now.Sub(time.UnixMilli(expiration)).String() + " ago")
		}
	}

	return plaintext, nil
}

// Expiration extracts the claimed expiration of a record without decrypting
// it, which any reader may do cheaply. The claim is only trustworthy after
// a successful Open. Returns the zero time for records with no expiration.
func Expiration(record string) (time.Time, error) {
	fields := strings.Split(record, ".")
	switch len(fields) {
	case 2:
		return time.Time{}, nil
	case 3:
		raw, err := codec.Decode(fields[2])
		if err != nil {
			return time.Time{}, domain.ErrRecordMalformed.WithCause(err)
		}
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return time.Time{}, domain.ErrRecordMalformed.WithCause(err)
		}
		return time.UnixMilli(ms), nil
	default:
		return time.Time{}, domain.ErrRecordMalformed.WithDetails(
			strconv.Itoa(len(fields)) + " fields")
	}
}
