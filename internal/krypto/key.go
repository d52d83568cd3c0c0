package krypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const keyLen = 32

var ErrInvalidKey = errors.New("invalid key")

// Key is a 32 byte key, used for AES-256, blind indexes and cookies.
type Key struct {
	Redacted
	value []byte
}

// ParseKey parses 64 hex characters.
func ParseKey(raw string) (Key, error) {
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != keyLen {
		return Key{}, ErrInvalidKey
	}

	return Key{value: b}, nil
}

// ParseKeys parses a comma separated list of keys. Order matters to
// callers that rotate keys, the last one is the current key.
func ParseKeys(raw string) ([]Key, error) {
	parts := strings.Split(raw, ",")
	keys := make([]Key, 0, len(parts))
	for i, part := range parts {
		k, err := ParseKey(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// SecretValue exposes the key material, for libraries that need raw bytes.
func (k Key) SecretValue() []byte {
	return k.value
}
