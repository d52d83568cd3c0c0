package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/willemschots/newsletter/internal/auth"
	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/errorz"
)

// Store is responsible for interacting with a database.
// Reads that don't need a transaction go to readDB, everything else to writeDB.
type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

// New creates a new Store.
func New(readDB, writeDB *sql.DB) *Store {
	return &Store{
		readDB:  readDB,
		writeDB: writeDB,
	}
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (auth.Tx, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx: tx,
	}, nil
}

// FindCredential returns the credential for username, or errorz.ErrNotFound.
func (s *Store) FindCredential(ctx context.Context, username auth.Username) (auth.Credential, error) {
	var q db.Query
	q.Unsafe(`SELECT id, password_hash FROM users WHERE username = `)
	q.Param(username)

	query, params, err := q.Get()
	if err != nil {
		return auth.Credential{}, err
	}

	var c auth.Credential
	err = s.readDB.QueryRowContext(ctx, query, params...).Scan(&c.UserID, &c.PasswordHash)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to query credential: %w", errorz.MapDBErr(err))
	}

	return c, nil
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (s *Store) FindUsers(ctx context.Context, filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(db.Query{}, func(query string, params ...any) (*sql.Rows, error) {
		return s.readDB.QueryContext(ctx, query, params...)
	}, filter)
}
