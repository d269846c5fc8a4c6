package logger

import (
	"log/slog"
	"strings"
)

// Key name patterns whose values must never reach a log sink. State is
// included: decrypted application state is as sensitive as the key that
// protects it.
var sensitiveKeyPatterns = []string{
	"key",
	"secret",
	"password",
	"token",
	"credential",
	"state",
	"plaintext",
	"record",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks attribute values whose key names suggest they
// carry secret material or application state.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		keyLower := strings.ToLower(a.Key)
		for _, pattern := range sensitiveKeyPatterns {
			if strings.Contains(keyLower, pattern) {
				if a.Value.String() != "" {
					return slog.String(a.Key, redactedValue)
				}
				break
			}
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}
