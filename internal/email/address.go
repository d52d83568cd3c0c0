package email

import (
	"errors"
	"net/mail"
	"strings"
)

// maxAddressLen is the longest path SMTP allows, see RFC 5321 4.5.3.1.3.
const maxAddressLen = 254

var ErrInvalidEmail = errors.New("invalid email address")

// Address is a bare email address like reader@example.com. Display names
// and comments are not part of it.
type Address string

// ParseAddress checks that raw is shaped like a bare address, surrounding
// whitespace aside. Whether the mailbox exists is not checked.
func ParseAddress(raw string) (Address, error) {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > maxAddressLen {
		return "", ErrInvalidEmail
	}

	// net/mail also accepts "Name <addr>" and comments, which are rejected
	// by requiring the parsed address to be the whole input.
	parsed, err := mail.ParseAddress(s)
	if err != nil || parsed.Address != s {
		return "", ErrInvalidEmail
	}

	return Address(s), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Domain returns the part after the last @.
func (a Address) Domain() string {
	i := strings.LastIndexByte(string(a), '@')
	return string(a[i+1:])
}

func (a Address) String() string {
	return string(a)
}
