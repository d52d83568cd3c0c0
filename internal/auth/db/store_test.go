package db_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/auth"
	"github.com/willemschots/newsletter/internal/auth/db"
	"github.com/willemschots/newsletter/internal/db/testdb"
	"github.com/willemschots/newsletter/internal/errorz"
)

func Test_Tx_CreateAndUpdateUser(t *testing.T) {
	t.Run("ok, create and update user", func(t *testing.T) {
		store := storeForTest(t)

		tx := beginTx(t, store)

		user := testUser(t, nil)

		t.Run("create", func(t *testing.T) {
			err := tx.CreateUser(&user)
			if err != nil {
				t.Fatalf("failed to create user: %v", err)
			}

			assertFindUser(t, tx, user)
		})

		user.Username = "jacob"
		user.PasswordHash = "$argon2id$v=19$m=47104,t=1,p=1$CkX5zzYLJMWm0y/17eScyw$Qfah+NewdsdeF0+iV72mShZhRO93Qwzdj17TUZCH6ZU"
		user.UpdatedAt = now(t, 1)

		t.Run("update", func(t *testing.T) {
			err := tx.UpdateUser(&user)
			if err != nil {
				t.Fatalf("failed to update user: %v", err)
			}

			assertFindUser(t, tx, user)
		})

		err := tx.Commit()
		if err != nil {
			t.Fatalf("failed to commit tx: %v", err)
		}

		t.Run("visible outside tx", func(t *testing.T) {
			users, err := store.FindUsers(context.Background(), &auth.UserFilter{
				IDs: []uuid.UUID{user.ID},
			})
			if err != nil {
				t.Fatalf("failed to find users: %v", err)
			}

			if len(users) != 1 || !reflect.DeepEqual(users[0], user) {
				t.Errorf("got\n%#v\nwant\n%#v\n", users, user)
			}
		})
	})

	t.Run("fail, zero id", func(t *testing.T) {
		store := storeForTest(t)
		tx := beginTx(t, store)

		user := testUser(t, func(u *auth.User) {
			u.ID = uuid.Nil
		})

		err := tx.CreateUser(&user)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected errors to be %v got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})

	t.Run("fail, duplicate username", func(t *testing.T) {
		store := storeForTest(t)
		tx := beginTx(t, store)

		user := testUser(t, nil)
		err := tx.CreateUser(&user)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		other := testUser(t, func(u *auth.User) {
			u.ID = uuid.MustParse("0b2a4fdc-58c6-4f34-9b6b-9a2a1dfb41e2")
		})

		err = tx.CreateUser(&other)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected errors to be %v got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})

	t.Run("fail, update unknown user", func(t *testing.T) {
		store := storeForTest(t)
		tx := beginTx(t, store)

		user := testUser(t, nil)
		err := tx.UpdateUser(&user)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected errors to be %v got %v (via errors.Is)", errorz.ErrNotFound, err)
		}
	})
}

func Test_Store_FindCredential(t *testing.T) {
	store := storeForTest(t)

	user := testUser(t, nil)
	tx := beginTx(t, store)
	err := tx.CreateUser(&user)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	err = tx.Commit()
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	t.Run("ok, found", func(t *testing.T) {
		got, err := store.FindCredential(context.Background(), user.Username)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := auth.Credential{
			UserID:       user.ID,
			PasswordHash: user.PasswordHash,
		}

		if got != want {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("fail, not found", func(t *testing.T) {
		_, err := store.FindCredential(context.Background(), "jacob")
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected errors to be %v got %v (via errors.Is)", errorz.ErrNotFound, err)
		}
	})
}

func Test_Store_FindUsers(t *testing.T) {
	store := storeForTest(t)

	alice := testUser(t, nil)
	bob := testUser(t, func(u *auth.User) {
		u.ID = uuid.MustParse("0b2a4fdc-58c6-4f34-9b6b-9a2a1dfb41e2")
		u.Username = "bob"
		u.CreatedAt = now(t, 1)
	})

	tx := beginTx(t, store)
	for _, u := range []*auth.User{&alice, &bob} {
		err := tx.CreateUser(u)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	}
	err := tx.Commit()
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	tests := map[string]struct {
		filter *auth.UserFilter
		want   []auth.User
	}{
		"ok, nil filter": {
			filter: nil,
			want:   []auth.User{alice, bob},
		},
		"ok, empty filter": {
			filter: &auth.UserFilter{},
			want:   []auth.User{alice, bob},
		},
		"ok, by id": {
			filter: &auth.UserFilter{IDs: []uuid.UUID{bob.ID}},
			want:   []auth.User{bob},
		},
		"ok, by username": {
			filter: &auth.UserFilter{Usernames: []auth.Username{"alice"}},
			want:   []auth.User{alice},
		},
		"ok, by id and username": {
			filter: &auth.UserFilter{IDs: []uuid.UUID{alice.ID}, Usernames: []auth.Username{"bob"}},
			want:   []auth.User{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := store.FindUsers(context.Background(), tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got\n%#v\nwant\n%#v\n", got, tc.want)
			}
		})
	}
}

func now(t *testing.T, i int) time.Time {
	t.Helper()
	if i > 9 {
		t.Fatalf("invalid time index: %d", i)
	}

	ts, err := time.Parse(time.RFC3339, fmt.Sprintf("2021-01-01T00:00:0%dZ", i))
	if err != nil {
		t.Fatalf("failed to parse time: %v", err)
	}

	return ts
}

func storeForTest(t *testing.T) *db.Store {
	t.Helper()

	testDB := testdb.RunWhile(t, true)
	return db.New(testDB, testDB)
}

func beginTx(t *testing.T, store *db.Store) auth.Tx {
	t.Helper()

	tx, err := store.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}

	t.Cleanup(func() {
		// no-op when the tx was committed.
		_ = tx.Rollback()
	})

	return tx
}

func testUser(t *testing.T, modFunc func(*auth.User)) auth.User {
	t.Helper()

	u := auth.User{
		ID:           uuid.MustParse("5d7b4d53-5a39-4c3a-a3b5-2e1e1b0a7f11"),
		Username:     "alice",
		PasswordHash: "$argon2id$v=19$m=47104,t=1,p=1$vP9U4C5jsOzFQLj0gvUkYw$YLrSb2dGfcVohlm8syynqHs6/NHxXS9rt/t6TjL7pi0",
		CreatedAt:    now(t, 0),
		UpdatedAt:    now(t, 0),
	}

	if modFunc != nil {
		modFunc(&u)
	}

	return u
}

func assertFindUser(t *testing.T, tx auth.Tx, want auth.User) {
	t.Helper()

	got, err := tx.FindUsers(&auth.UserFilter{
		IDs: []uuid.UUID{want.ID},
	})
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}

	if len(got) != 1 || !reflect.DeepEqual(got[0], want) {
		t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
	}
}
