package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/willemschots/newsletter/internal/krypto"
	"github.com/willemschots/newsletter/internal/workpool"
)

// ErrMalformedHash indicates a stored hash could not be parsed. This is
// never a reason to reject a login attempt, it's a broken invariant.
var ErrMalformedHash = errors.New("malformed password hash")

// Hasher computes and verifies argon2id password hashes on a worker pool,
// so that the memory hard work doesn't run on request goroutines.
type Hasher struct {
	pool   *workpool.Pool
	params krypto.Argon2Params
}

// NewHasher creates a Hasher that creates new hashes using params.
func NewHasher(pool *workpool.Pool, params krypto.Argon2Params) *Hasher {
	return &Hasher{
		pool:   pool,
		params: params,
	}
}

// Hash hashes p and returns it in PHC string format.
func (h *Hasher) Hash(ctx context.Context, p Password) (string, error) {
	plain := copyPlain(p)

	hash, err := workpool.Submit(ctx, h.pool, func() (krypto.Argon2Hash, error) {
		defer krypto.Wipe(plain)
		return krypto.HashArgon2(plain, h.params)
	})
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return hash.String(), nil
}

// Verify reports whether p matches encoded. The parameters stored in
// encoded are used, not those of the Hasher. A malformed encoded hash
// results in an error wrapping ErrMalformedHash.
func (h *Hasher) Verify(ctx context.Context, encoded string, p Password) (bool, error) {
	hash, err := krypto.ParseArgon2Hash(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}

	plain := copyPlain(p)

	ok, err := workpool.Submit(ctx, h.pool, func() (bool, error) {
		defer krypto.Wipe(plain)
		return hash.MatchBytes(plain), nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to verify password: %w", err)
	}

	return ok, nil
}

// copyPlain gives a job its own copy of the plaintext, the caller may wipe
// the original while an abandoned job is still running.
func copyPlain(p Password) []byte {
	plain := make([]byte, len(p.plain))
	copy(plain, p.plain)
	return plain
}
