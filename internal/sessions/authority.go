// Package sessions keeps track of who is logged in.
//
// A session is identified by a random token that only the client knows.
// The store is keyed by a digest of the token, so a leaked store doesn't
// leak usable sessions.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/errorz"
	"github.com/willemschots/newsletter/internal/krypto"
)

const keyPrefix = "session:"

// ErrNoSession means there is no valid session for a token. It is not
// a failure, callers are expected to send the client to the login page.
var ErrNoSession = errors.New("no session")

// Session is the data stored for a logged in user.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Authority establishes, checks and revokes sessions.
type Authority struct {
	kv  KV
	ttl time.Duration

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

// NewAuthority creates an Authority. Sessions expire after ttl.
func NewAuthority(kv KV, ttl time.Duration) *Authority {
	return &Authority{
		kv:      kv,
		ttl:     ttl,
		NowFunc: time.Now,
	}
}

// Establish starts a fresh session for userID and returns its token.
// The session belonging to previous (if any) is removed, so a token that
// was known before logging in can't be used afterwards.
func (a *Authority) Establish(ctx context.Context, previous krypto.Token, userID uuid.UUID) (krypto.Token, error) {
	if userID == uuid.Nil {
		return krypto.Token{}, errors.New("can't establish a session without a user")
	}

	if !previous.IsZero() {
		err := a.kv.Delete(ctx, storeKey(previous))
		if err != nil {
			return krypto.Token{}, fmt.Errorf("failed to remove previous session: %w", err)
		}
	}

	token, err := krypto.GenerateToken()
	if err != nil {
		return krypto.Token{}, err
	}

	data, err := json.Marshal(Session{
		UserID:    userID,
		CreatedAt: a.NowFunc().UTC(),
	})
	if err != nil {
		return krypto.Token{}, err
	}

	err = a.kv.Put(ctx, storeKey(token), data, a.ttl)
	if err != nil {
		return krypto.Token{}, fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// Authorize returns the user the token's session belongs to. ErrNoSession is
// returned when there is no session. Stored data that can't be decoded counts
// as no session. Any other error is a failure of the store.
func (a *Authority) Authorize(ctx context.Context, token krypto.Token) (uuid.UUID, error) {
	if token.IsZero() {
		return uuid.Nil, ErrNoSession
	}

	data, err := a.kv.Get(ctx, storeKey(token))
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			return uuid.Nil, ErrNoSession
		}
		return uuid.Nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	err = json.Unmarshal(data, &s)
	if err != nil || s.UserID == uuid.Nil {
		return uuid.Nil, ErrNoSession
	}

	return s.UserID, nil
}

// Revoke removes the session of token. Revoking an unknown token is not an error.
func (a *Authority) Revoke(ctx context.Context, token krypto.Token) error {
	if token.IsZero() {
		return nil
	}

	err := a.kv.Delete(ctx, storeKey(token))
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

func storeKey(t krypto.Token) string {
	return keyPrefix + t.Digest()
}
