package krypto

import (
	"fmt"
	"log/slog"
)

// SecretMarker replaces sensitive values in every rendering of them.
// Grep logs for it to find places that try to expose a secret.
const SecretMarker = "<!SECRET_REDACTED!>"

// Redacted is embedded in types that hold sensitive data. It covers
// fmt, encoding and slog.
type Redacted struct{}

func (Redacted) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(SecretMarker))
}

func (Redacted) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

func (Redacted) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
