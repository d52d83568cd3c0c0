// Package subscriber manages the people that receive newsletter issues.
package subscriber

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/email"
)

const maxNameRunes = 256

var ErrInvalidName = errors.New("invalid name")

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
)

func (s Status) Valid() bool {
	return s == StatusPendingConfirmation || s == StatusConfirmed
}

// Name is the display name a subscriber signed up with.
type Name string

// ParseName trims the input and rejects empty, overly long names or names
// containing characters that are commonly used for injection.
func ParseName(raw string) (Name, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || utf8.RuneCountInString(raw) > maxNameRunes {
		return "", ErrInvalidName
	}

	if strings.ContainsAny(raw, `/()"<>\{}`) {
		return "", ErrInvalidName
	}

	return Name(raw), nil
}

func (n *Name) UnmarshalText(text []byte) error {
	name, err := ParseName(string(text))
	if err != nil {
		return err
	}

	*n = name
	return nil
}

// Subscriber is a single subscription. The email address is stored encrypted.
type Subscriber struct {
	ID           uuid.UUID
	Email        email.Address
	Name         Name
	Status       Status
	SubscribedAt time.Time
}

// Signup is submitted by someone who wants to subscribe.
type Signup struct {
	Email email.Address `schema:"email,required"`
	Name  Name          `schema:"name,required"`
}

// Confirmation is submitted by an admin to confirm a pending subscriber.
type Confirmation struct {
	Email email.Address `schema:"email,required"`
}
