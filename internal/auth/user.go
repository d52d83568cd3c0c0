package auth

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxUsernameBytes = 256

var ErrInvalidUsername = errors.New("invalid username")

// Username identifies a user when logging in.
type Username string

// ParseUsername trims surrounding whitespace and checks the length.
func ParseUsername(raw string) (Username, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxUsernameBytes || !utf8.ValidString(raw) {
		return "", ErrInvalidUsername
	}

	return Username(raw), nil
}

func (u *Username) UnmarshalText(text []byte) error {
	username, err := ParseUsername(string(text))
	if err != nil {
		return err
	}

	*u = username
	return nil
}

// User contains the data for a user.
type User struct {
	ID       uuid.UUID
	Username Username
	// PasswordHash is an argon2id hash in PHC string format.
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credential is the stored secret of a user.
type Credential struct {
	UserID       uuid.UUID
	PasswordHash string
}

// Credentials are submitted by someone trying to log in.
type Credentials struct {
	Username Username `schema:"username"`
	Password Password `schema:"password"`
}
