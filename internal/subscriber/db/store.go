// Package db stores subscribers in SQLite.
//
// Email addresses are encrypted at rest. A blind index of the address is
// stored next to it, so that subscribers can still be found by address.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/errorz"
	"github.com/willemschots/newsletter/internal/krypto"
	"github.com/willemschots/newsletter/internal/subscriber"
)

// Store is a SQLite backed subscriber store.
type Store struct {
	readDB        *sql.DB
	writeDB       *sql.DB
	encryptor     *krypto.Encryptor
	blindIndexKey krypto.Key
}

// New creates a new Store.
func New(readDB, writeDB *sql.DB, enc *krypto.Encryptor, blindIndexKey krypto.Key) *Store {
	return &Store{
		readDB:        readDB,
		writeDB:       writeDB,
		encryptor:     enc,
		blindIndexKey: blindIndexKey,
	}
}

func (s *Store) query() db.Query {
	return db.Query{
		Encryptor:     s.encryptor,
		BlindIndexKey: s.blindIndexKey,
	}
}

// Create stores a new subscriber.
// It returns errorz.ErrConstraintViolated if the email address is already subscribed.
func (s *Store) Create(ctx context.Context, sub *subscriber.Subscriber) error {
	if sub.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q := s.query()
	q.Unsafe(`INSERT INTO subscriptions (id, email_encrypted, email_blind_index, name, status, subscribed_at) VALUES (`)
	q.Param(sub.ID)
	q.Unsafe(`, `)
	q.ParamEncrypted([]byte(sub.Email))
	q.Unsafe(`, `)
	q.ParamBlindIndex([]byte(sub.Email))
	q.Unsafe(`, `)
	q.Params(sub.Name, sub.Status, sub.SubscribedAt)
	q.Unsafe(`)`)

	query, params, err := q.Get()
	if err != nil {
		return err
	}

	_, err = s.writeDB.ExecContext(ctx, query, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

// FindByEmail looks up a subscriber by the blind index of addr.
func (s *Store) FindByEmail(ctx context.Context, addr email.Address) (subscriber.Subscriber, error) {
	q := s.query()
	q.Unsafe(`SELECT id, email_encrypted, name, status, subscribed_at FROM subscriptions WHERE email_blind_index = `)
	q.ParamBlindIndex([]byte(addr))

	query, params, err := q.Get()
	if err != nil {
		return subscriber.Subscriber{}, err
	}

	var (
		sub   subscriber.Subscriber
		plain = q.DecryptionTarget()
	)

	err = s.readDB.QueryRowContext(ctx, query, params...).Scan(&sub.ID, plain, &sub.Name, &sub.Status, &sub.SubscribedAt)
	if err != nil {
		return subscriber.Subscriber{}, fmt.Errorf("failed to query subscriber: %w", errorz.MapDBErr(err))
	}

	sub.Email = email.Address(plain.Data)
	return sub, nil
}

// SetStatus updates the status of the subscriber with the given id.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status subscriber.Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q: %w", status, errorz.ErrConstraintViolated)
	}

	q := s.query()
	q.Unsafe(`UPDATE subscriptions SET status = `)
	q.Param(status)
	q.Unsafe(` WHERE id = `)
	q.Param(id)

	query, params, err := q.Get()
	if err != nil {
		return err
	}

	result, err := s.writeDB.ExecContext(ctx, query, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if n == 0 {
		return fmt.Errorf("subscriber not found: %w", errorz.ErrNotFound)
	}

	return nil
}

// ListConfirmed returns the raw email addresses of all confirmed subscribers,
// oldest subscription first. Addresses are not validated here, the
// dispatcher reports malformed ones per recipient.
func (s *Store) ListConfirmed(ctx context.Context) ([]string, error) {
	q := s.query()
	q.Unsafe(`SELECT email_encrypted FROM subscriptions WHERE status = `)
	q.Param(subscriber.StatusConfirmed)
	q.Unsafe(` ORDER BY subscribed_at ASC, id ASC`)

	query, params, err := q.Get()
	if err != nil {
		return nil, err
	}

	rows, err := s.readDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		plain := q.DecryptionTarget()
		err := rows.Scan(plain)
		if err != nil {
			return nil, fmt.Errorf("failed to scan confirmed subscriber: %w", err)
		}

		out = append(out, string(plain.Data))
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}
