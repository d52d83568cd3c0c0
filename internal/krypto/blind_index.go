package krypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// BlindIndex derives a deterministic keyed digest of data, so that encrypted
// columns can still be searched for equality. The digest is hex encoded.
// Indexes need to be rebuilt when the key changes.
func BlindIndex(data []byte, key Key) (string, error) {
	if len(key.value) == 0 {
		return "", errors.New("no blind index key")
	}

	if len(data) == 0 {
		return "", ErrInvalidData
	}

	mac := hmac.New(sha256.New, key.value)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
