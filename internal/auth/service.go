package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/errorz"
)

var (
	// ErrInvalidCredentials is the only error a client gets to see when
	// logging in fails. It doesn't reveal whether the username exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUser      = errors.New("duplicate user")
	ErrPasswordMismatch   = errors.New("new password and confirmation don't match")
)

// dummyPasswordHash is verified against when a username is unknown, so that
// the response time doesn't reveal whether a user exists.
const dummyPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$9Dlp+zTp4VX2ZD8BSX9L5A$/gENNkTsIGr98GC+vlmLj6x5FGwXd/8zUKAnuuRiPj4"

// Service is the type that provides the main rules for
// authentication.
type Service struct {
	store  Store
	hasher *Hasher

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, h *Hasher) *Service {
	return &Service{
		store:   s,
		hasher:  h,
		NowFunc: time.Now,
	}
}

// Validate checks the credentials and returns the id of the user they belong to.
//
// A password hash is verified whether the user exists or not. Any error other
// than ErrInvalidCredentials is an internal error.
func (s *Service) Validate(ctx context.Context, c Credentials) (uuid.UUID, error) {
	userID := uuid.Nil
	expectedHash := dummyPasswordHash

	cred, err := s.store.FindCredential(ctx, c.Username)
	switch {
	case err == nil:
		userID = cred.UserID
		expectedHash = cred.PasswordHash
	case errors.Is(err, errorz.ErrNotFound):
		// keep the dummy hash.
	default:
		return uuid.Nil, fmt.Errorf("failed to find credential: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, expectedHash, c.Password)
	if err != nil {
		return uuid.Nil, err
	}

	if !ok || userID == uuid.Nil {
		return uuid.Nil, ErrInvalidCredentials
	}

	return userID, nil
}

// FindUser returns the user with the given id or errorz.ErrNotFound.
func (s *Service) FindUser(ctx context.Context, id uuid.UUID) (User, error) {
	users, err := s.store.FindUsers(ctx, &UserFilter{
		IDs: []uuid.UUID{id},
	})
	if err != nil {
		return User{}, err
	}

	if len(users) != 1 {
		return User{}, errorz.ErrNotFound
	}

	return users[0], nil
}

// CreateUser creates a new user with the provided credentials.
// ErrDuplicateUser is returned if the username is taken.
func (s *Service) CreateUser(ctx context.Context, c Credentials) (User, error) {
	hash, err := s.hasher.Hash(ctx, c.Password)
	if err != nil {
		return User{}, err
	}

	now := s.NowFunc()
	user := User{
		ID:           uuid.New(),
		Username:     c.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{
			Usernames: []Username{c.Username},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) > 0 {
			return ErrDuplicateUser
		}

		return tx.CreateUser(&user)
	})
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// PasswordChange is a request to replace the password of a user.
type PasswordChange struct {
	UserID  uuid.UUID `schema:"-"`
	Current Password `schema:"current_password"`
	New     Password `schema:"new_password"`
	Confirm Password `schema:"new_password_check"`
}

// ChangePassword replaces the stored hash of a user after checking the
// current password. It returns ErrInvalidCredentials when the current
// password is wrong.
func (s *Service) ChangePassword(ctx context.Context, req PasswordChange) error {
	if !req.New.Equal(req.Confirm) {
		return ErrPasswordMismatch
	}

	err := req.New.validate()
	if err != nil {
		return err
	}

	user, err := s.FindUser(ctx, req.UserID)
	if err != nil {
		return err
	}

	_, err = s.Validate(ctx, Credentials{
		Username: user.Username,
		Password: req.Current,
	})
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(ctx, req.New)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{
			IDs: []uuid.UUID{req.UserID},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) != 1 {
			return errorz.ErrNotFound
		}

		users[0].PasswordHash = hash
		users[0].UpdatedAt = s.NowFunc()

		return tx.UpdateUser(&users[0])
	})
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		// a failed commit can leave the transaction open.
		_ = tx.Rollback()
		return err
	}

	return nil
}
