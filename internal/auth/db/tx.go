package db

import (
	"database/sql"

	"github.com/willemschots/newsletter/internal/auth"
	"github.com/willemschots/newsletter/internal/db"
)

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateUser creates a user in the database.
// It returns errorz.ErrConstraintViolated if the ID or username is taken.
func (t *Tx) CreateUser(u *auth.User) error {
	return insertUser(db.Query{}, t.tx.Exec, u)
}

// UpdateUser updates a user in the database.
// It returns errorz.ErrNotFound if no user is found.
func (t *Tx) UpdateUser(u *auth.User) error {
	return updateUser(db.Query{}, t.tx.Exec, u)
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (t *Tx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(db.Query{}, t.tx.Query, filter)
}
