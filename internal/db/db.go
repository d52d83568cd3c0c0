// Package db contains the SQLite plumbing shared by the stores.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// Both pools use WAL mode so reads and writes don't block each other,
	// enforce foreign keys and wait up to 5 seconds for a lock.
	// Writes use immediate transactions so a write lock is taken upfront.
	//
	// See: https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
	writeOptions = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate"
	readOptions  = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000"
)

// OpenSQLite opens a pool of SQLite connections. Different settings
// are appropriate for reading and writing, so this function needs to know
// what the sql.DB will be used for.
func OpenSQLite(dbFile string, write bool) (*sql.DB, error) {
	optsPostfix := readOptions
	if write {
		optsPostfix = writeOptions
	}

	db, err := sql.Open("sqlite3", dbFile+optsPostfix)
	if err != nil {
		return nil, err
	}

	if write {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	return db, nil
}

// Pools holds the read and write pools of a single database file.
type Pools struct {
	Read  *sql.DB
	Write *sql.DB
}

// OpenPools opens both pools and checks the write pool is usable.
func OpenPools(ctx context.Context, dbFile string) (*Pools, error) {
	write, err := OpenSQLite(dbFile, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open write pool: %w", err)
	}

	err = write.PingContext(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to ping write pool: %w", err), write.Close())
	}

	read, err := OpenSQLite(dbFile, false)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open read pool: %w", err), write.Close())
	}

	return &Pools{
		Read:  read,
		Write: write,
	}, nil
}

// Close closes both pools.
func (p *Pools) Close() error {
	return errors.Join(p.Read.Close(), p.Write.Close())
}
