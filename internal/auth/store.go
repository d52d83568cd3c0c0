package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserFilter is used filter users.
// Returned users must match all the provided fields.
// If a field is empty or nil, it's ignored.
type UserFilter struct {
	IDs       []uuid.UUID
	Usernames []Username
}

// Store provides access to the user store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// FindCredential returns the credential of the user with the given username.
	// It returns errorz.ErrNotFound if no such user exists.
	FindCredential(ctx context.Context, username Username) (Credential, error)

	FindUsers(ctx context.Context, filter *UserFilter) ([]User, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/Find methods,
// the transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateUser(u *User) error
	UpdateUser(u *User) error
	FindUsers(filter *UserFilter) ([]User, error)
}
