package krypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
)

const (
	tokenLen = 32
)

var ErrInvalidToken = errors.New("invalid token")

// Token is a random session token.
//
// The only place a token exists in plaintext is the client's session cookie.
// Tokens are confidential and should never be exposed in logs or persisted
// in plaintext, use Digest to derive a storage key.
type Token [tokenLen]byte

// GenerateToken creates a new random token.
func GenerateToken() (Token, error) {
	b, err := randBytes(tokenLen)
	if err != nil {
		return Token{}, err
	}
	return Token(b), nil
}

// ParseToken parses a token from a string.
func ParseToken(raw string) (Token, error) {
	if len(raw) != tokenLen*2 {
		return Token{}, ErrInvalidToken
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return Token{}, ErrInvalidToken
	}

	return Token(b), nil
}

// IsZero reports whether t is the zero token.
func (t Token) IsZero() bool {
	return t == Token{}
}

// Digest returns the hex encoded SHA-256 of the token.
func (t Token) Digest() string {
	sum := sha256.Sum256(t[:])
	return hex.EncodeToString(sum[:])
}

// String returns the hex representation of the token. It is
// needed to put the token in a cookie.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// LogValue keeps tokens out of logs. Token is an array, so it can't embed Redacted.
func (t Token) LogValue() slog.Value {
	return Redacted{}.LogValue()
}
