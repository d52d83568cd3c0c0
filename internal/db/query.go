package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/willemschots/newsletter/internal/krypto"
)

var ErrNoEncryptor = errors.New("query has no encryptor")

// Query accumulates a SQL statement and its bind arguments. SQL text goes
// in through Unsafe, values only through the Param methods.
//
// Errors from encryption are collected and reported by Get, so a query can
// be written out without checking every step. The zero value is usable
// for queries without encrypted columns.
type Query struct {
	Encryptor     *krypto.Encryptor
	BlindIndexKey krypto.Key

	sql  strings.Builder
	args []any
	errs []error
}

// Unsafe appends s verbatim. Never pass it user input.
func (q *Query) Unsafe(s string) {
	q.sql.WriteString(s)
}

// Param appends a placeholder bound to v.
func (q *Query) Param(v any) {
	q.sql.WriteByte('?')
	q.args = append(q.args, v)
}

// Params appends a comma separated placeholder for each of vs.
func (q *Query) Params(vs ...any) {
	for i, v := range vs {
		if i > 0 {
			q.sql.WriteString(", ")
		}
		q.Param(v)
	}
}

// ParamEncrypted appends a placeholder bound to the ciphertext of b.
func (q *Query) ParamEncrypted(b []byte) {
	if q.Encryptor == nil {
		q.errs = append(q.errs, ErrNoEncryptor)
		return
	}

	ciphertext, err := q.Encryptor.Encrypt(b)
	if err != nil {
		q.errs = append(q.errs, fmt.Errorf("failed to encrypt param: %w", err))
		return
	}

	q.Param(ciphertext)
}

// ParamBlindIndex appends a placeholder bound to the blind index of b.
// Stored indexes are only comparable while BlindIndexKey stays the same.
func (q *Query) ParamBlindIndex(b []byte) {
	idx, err := krypto.BlindIndex(b, q.BlindIndexKey)
	if err != nil {
		q.errs = append(q.errs, fmt.Errorf("failed to index param: %w", err))
		return
	}

	q.Param(idx)
}

// Get returns the statement, its arguments and any error collected while building it.
func (q *Query) Get() (string, []any, error) {
	return q.sql.String(), q.args, errors.Join(q.errs...)
}

// DecryptionTarget returns a scan destination that decrypts the column
// with the encryptor of q.
func (q *Query) DecryptionTarget() *Decryptable {
	return &Decryptable{encryptor: q.Encryptor}
}

// Decryptable is a sql.Scanner for columns written with ParamEncrypted.
type Decryptable struct {
	encryptor *krypto.Encryptor
	Data      []byte
}

func (d *Decryptable) Scan(src any) error {
	if d.encryptor == nil {
		return ErrNoEncryptor
	}

	var ciphertext []byte
	switch v := src.(type) {
	case []byte:
		ciphertext = v
	case string:
		ciphertext = []byte(v)
	default:
		return fmt.Errorf("can't decrypt column of type %T", src)
	}

	plain, err := d.encryptor.Decrypt(ciphertext)
	if err != nil {
		return err
	}

	d.Data = plain
	return nil
}
