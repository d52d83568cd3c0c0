// Package testdb opens SQLite databases that live as long as a test.
package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/db/migrate"
	"github.com/willemschots/newsletter/migrations"
)

// RunWhile returns an in-memory database with all migrations applied.
// It is closed when t finishes.
func RunWhile(t *testing.T, write bool) *sql.DB {
	t.Helper()

	sqlDB := RunUnmigratedWhile(t, write)
	migrateForTest(t, sqlDB)

	return sqlDB
}

// RunUnmigratedWhile returns an empty in-memory database.
func RunUnmigratedWhile(t *testing.T, write bool) *sql.DB {
	t.Helper()

	sqlDB, err := db.OpenSQLite(":memory:", write)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	closeOnCleanup(t, sqlDB.Close)

	return sqlDB
}

// RunPoolsWhile returns separate read and write pools on a migrated
// database file in a temporary directory, the same way the server runs.
// An in-memory database can't be shared between two pools.
func RunPoolsWhile(t *testing.T) *db.Pools {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pools, err := db.OpenPools(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open pools: %v", err)
	}
	closeOnCleanup(t, pools.Close)

	migrateForTest(t, pools.Write)

	return pools
}

func migrateForTest(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := migrate.Up(ctx, sqlDB, migrations.FS, migrate.Metadata{})
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
}

func closeOnCleanup(t *testing.T, closeFn func() error) {
	t.Cleanup(func() {
		if err := closeFn(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
}
