package localsync

import "github.com/47ng/local-state-sync/internal/core/domain"

// Error values surfaced by the engine. Match with errors.Is.
var (
	// ErrKeyLength: the encryption key does not decode to 32 bytes.
	ErrKeyLength = domain.ErrKeyLength

	// ErrKeyEncoding: the encryption key is not valid base64url.
	ErrKeyEncoding = domain.ErrKeyEncoding

	// ErrCallbackMissing: Config.OnStateUpdated was nil.
	ErrCallbackMissing = domain.ErrCallbackMissing

	// ErrNotReady: a write was attempted before setup completed.
	ErrNotReady = domain.ErrNotReady

	// ErrSyncDisabled: the storage substrate is unusable in this
	// environment; the engine will never become ready.
	ErrSyncDisabled = domain.ErrDisabled

	// ErrClosed: the engine has been closed.
	ErrClosed = domain.ErrClosed

	// ErrRecordMalformed: a record does not have the expected shape.
	ErrRecordMalformed = domain.ErrRecordMalformed

	// ErrAuthentication: decryption failed, wrong key or tampering.
	ErrAuthentication = domain.ErrAuthentication

	// ErrStateExpired: the record's expiration has passed.
	ErrStateExpired = domain.ErrStateExpired

	// ErrParse: the state parser or serializer rejected a value.
	ErrParse = domain.ErrParse

	// ErrStorage: the substrate failed an operation.
	ErrStorage = domain.ErrStorage
)
