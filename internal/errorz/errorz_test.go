package errorz_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/willemschots/newsletter/internal/errorz"
)

func Test_MapDBErr(t *testing.T) {
	other := errors.New("other")
	corrupt := sqlite3.Error{Code: sqlite3.ErrCorrupt}

	tests := map[string]struct {
		in   error
		want error
	}{
		"ok, nil": {
			in:   nil,
			want: nil,
		},
		"ok, no rows": {
			in:   fmt.Errorf("query: %w", sql.ErrNoRows),
			want: errorz.ErrNotFound,
		},
		"ok, constraint": {
			in:   sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			want: errorz.ErrConstraintViolated,
		},
		"ok, busy": {
			in:   fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrBusy}),
			want: errorz.ErrUnavailable,
		},
		"ok, locked": {
			in:   sqlite3.Error{Code: sqlite3.ErrLocked},
			want: errorz.ErrUnavailable,
		},
		"ok, other sqlite errors are returned as is": {
			in:   corrupt,
			want: corrupt,
		},
		"ok, other errors are returned as is": {
			in:   other,
			want: other,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := errorz.MapDBErr(tc.in)
			if !errors.Is(got, tc.want) {
				t.Errorf("got %v, want %v (via errors.Is)", got, tc.want)
			}
		})
	}
}

func Test_InvalidInput(t *testing.T) {
	t.Run("ok, empty is no error", func(t *testing.T) {
		var invalid errorz.InvalidInput
		if err := invalid.Err(); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})

	t.Run("ok, keyed errors", func(t *testing.T) {
		required := errors.New("required")

		var invalid errorz.InvalidInput
		invalid.Add("username", required)
		invalid.Add("password", errors.New("too short"))

		err := invalid.Err()

		if !errors.Is(err, required) {
			t.Errorf("expected %v to wrap %v", err, required)
		}

		var keyed errorz.Keyed
		if !errors.As(err, &keyed) || keyed.Key != "username" {
			t.Fatalf("expected to find keyed error for username, got %v", keyed)
		}

		want := "invalid input: username (required), password (too short)"
		if err.Error() != want {
			t.Errorf("got\n%q\nwant\n%q", err.Error(), want)
		}

		gotKeys := invalid.Keys()
		if len(gotKeys) != 2 || gotKeys[0] != "username" || gotKeys[1] != "password" {
			t.Errorf("got keys %v", gotKeys)
		}
	})

	t.Run("ok, unkeyed errors have no key", func(t *testing.T) {
		invalid := errorz.InvalidInput{errors.New("malformed")}

		if len(invalid.Keys()) != 0 {
			t.Errorf("expected no keys, got %v", invalid.Keys())
		}

		if invalid.Error() != "invalid input: malformed" {
			t.Errorf("got %q", invalid.Error())
		}
	})
}
