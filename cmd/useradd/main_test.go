package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/willemschots/newsletter/internal/auth"
	authdb "github.com/willemschots/newsletter/internal/auth/db"
	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/db/migrate"
	"github.com/willemschots/newsletter/internal/krypto"
	"github.com/willemschots/newsletter/internal/workpool"
	"github.com/willemschots/newsletter/migrations"
)

func Test_run(t *testing.T) {
	t.Run("ok, created user can log in", func(t *testing.T) {
		dbFile := migratedDB(t)

		var out bytes.Buffer
		err := run(context.Background(), dbFile, "admin", strings.NewReader("reallyStrongPassword1\n"), &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.HasPrefix(out.String(), "created user admin (") {
			t.Errorf("unexpected output: %q", out.String())
		}

		svc := serviceForTest(t, dbFile)
		_, err = svc.Validate(context.Background(), auth.Credentials{
			Username: "admin",
			Password: must(auth.PasswordInput("reallyStrongPassword1")),
		})
		if err != nil {
			t.Fatalf("failed to validate created user: %v", err)
		}
	})

	t.Run("ok, password without trailing newline", func(t *testing.T) {
		dbFile := migratedDB(t)

		err := run(context.Background(), dbFile, "admin", strings.NewReader("reallyStrongPassword1"), &bytes.Buffer{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("fail, duplicate username", func(t *testing.T) {
		dbFile := migratedDB(t)

		for i, wantErr := range []error{nil, auth.ErrDuplicateUser} {
			err := run(context.Background(), dbFile, "admin", strings.NewReader("reallyStrongPassword1\n"), &bytes.Buffer{})
			if !errors.Is(err, wantErr) {
				t.Fatalf("run %d: wanted %v, got %v (via errors.Is)", i, wantErr, err)
			}
		}
	})

	failCases := map[string]struct {
		username string
		stdin    string
	}{
		"fail, empty username": {username: " ", stdin: "reallyStrongPassword1\n"},
		"fail, empty stdin":    {username: "admin", stdin: ""},
		"fail, short password": {username: "admin", stdin: "short\n"},
	}

	for name, tc := range failCases {
		t.Run(name, func(t *testing.T) {
			dbFile := migratedDB(t)

			var out bytes.Buffer
			err := run(context.Background(), dbFile, tc.username, strings.NewReader(tc.stdin), &out)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}

			if out.Len() != 0 {
				t.Errorf("expected no output, got %q", out.String())
			}
		})
	}
}

func migratedDB(t *testing.T) string {
	t.Helper()

	dbFile := filepath.Join(t.TempDir(), "useradd.db")

	sqlDB, err := db.OpenSQLite(dbFile, true)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer sqlDB.Close()

	_, err = migrate.Up(context.Background(), sqlDB, migrations.FS, migrate.Metadata{})
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return dbFile
}

func serviceForTest(t *testing.T, dbFile string) *auth.Service {
	t.Helper()

	sqlDB, err := db.OpenSQLite(dbFile, false)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	pool, err := workpool.New(workpool.Config{Workers: 1}, nil)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return auth.NewService(authdb.New(sqlDB, sqlDB), auth.NewHasher(pool, krypto.DefaultArgon2Params()))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
