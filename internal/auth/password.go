package auth

import (
	"errors"

	"github.com/willemschots/newsletter/internal/krypto"
)

const (
	minPasswordBytes = 8
	// We put a generous upper cap on password length, so people can use
	// passphrases but we don't allow MBs of data as a password.
	maxPasswordBytes = 512
)

var ErrInvalidPassword = errors.New("invalid password")

// Password is a plaintext password.
//
// It should never be persisted, logged or exposed in any other way. To
// protect ourselves from accidentally doing so, the type implements
// several common interfaces that would allow it to be used inappropriately.
//
// The only things a Password is good for is hashing it with a Hasher,
// or verifying it against an existing hash.
type Password struct {
	krypto.Redacted
	plain []byte
}

// ParsePassword creates a new Password that is about to be stored.
// It errors if the password is too short or too long.
func ParsePassword(pwd string) (Password, error) {
	p := Password{
		plain: []byte(pwd),
	}

	err := p.validate()
	if err != nil {
		return Password{}, err
	}

	return p, nil
}

func (p Password) validate() error {
	if len(p.plain) < minPasswordBytes || len(p.plain) > maxPasswordBytes {
		return ErrInvalidPassword
	}
	return nil
}

// PasswordInput wraps a password as it was submitted to log in. Length
// rules are not applied because existing passwords may predate them,
// only the upper cap is enforced.
func PasswordInput(pwd string) (Password, error) {
	if len(pwd) > maxPasswordBytes {
		return Password{}, ErrInvalidPassword
	}

	return Password{
		plain: []byte(pwd),
	}, nil
}

// UnmarshalText applies the PasswordInput rules, so that submitted forms
// can be decoded straight into a Password.
func (p *Password) UnmarshalText(text []byte) error {
	pwd, err := PasswordInput(string(text))
	if err != nil {
		return err
	}

	*p = pwd
	return nil
}

// Equal reports whether two passwords are the same. Only meant for
// comparing a new password with its confirmation.
func (p Password) Equal(other Password) bool {
	return string(p.plain) == string(other.plain)
}

// Wipe overwrites the plaintext in memory.
func (p Password) Wipe() {
	krypto.Wipe(p.plain)
}
