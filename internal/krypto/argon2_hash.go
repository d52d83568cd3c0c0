package krypto

import (
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Variant = "argon2id"
	saltLen       = 16
	argon2KeyLen  = 32

	// Upper bounds on the cost of a single hash. Stored hashes are parsed
	// with the same bounds, a corrupt row can't make a worker allocate
	// more than MaxArgon2MemoryKiB.
	MaxArgon2MemoryKiB  = 1 << 20
	MaxArgon2Iterations = 64
)

// ErrInvalidInput is returned when data can't be hashed or a hash string can't be parsed.
var ErrInvalidInput = errors.New("invalid input")

// Argon2Params are the cost parameters used for new hashes.
// Existing hashes carry their own parameters, so changing these
// never invalidates stored hashes.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultArgon2Params returns the parameters used when none are configured.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   15000,
		Iterations:  2,
		Parallelism: 1,
	}
}

func (p Argon2Params) validate() error {
	if p.Iterations < 1 || p.Iterations > MaxArgon2Iterations ||
		p.Parallelism < 1 ||
		p.MemoryKiB < 8*uint32(p.Parallelism) || p.MemoryKiB > MaxArgon2MemoryKiB {
		return fmt.Errorf("%w: argon2 params out of range: m=%d,t=%d,p=%d", ErrInvalidInput, p.MemoryKiB, p.Iterations, p.Parallelism)
	}
	return nil
}

// Argon2Hash is an argon2id hash in PHC string format:
//
//	$argon2id$v=19$m=15000,t=2,p=1$<salt>$<hash>
//
// Salt and hash are base64 encoded without padding.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes data with a fresh random salt.
func HashArgon2(data []byte, p Argon2Params) (Argon2Hash, error) {
	if len(data) == 0 {
		return Argon2Hash{}, fmt.Errorf("%w: can't hash empty data", ErrInvalidInput)
	}

	err := p.validate()
	if err != nil {
		return Argon2Hash{}, err
	}

	salt, err := randBytes(saltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	return Argon2Hash{
		Variant:     argon2Variant,
		Version:     argon2.Version,
		MemoryKiB:   p.MemoryKiB,
		Iterations:  p.Iterations,
		Parallelism: p.Parallelism,
		Salt:        salt,
		Hash:        argon2.IDKey(data, salt, p.Iterations, p.MemoryKiB, p.Parallelism, argon2KeyLen),
	}, nil
}

// ParseArgon2Hash parses a PHC formatted argon2id string.
func ParseArgon2Hash(s string) (Argon2Hash, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("%w: expected 6 segments", ErrInvalidInput)
	}

	if parts[1] != argon2Variant {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported variant %q", ErrInvalidInput, parts[1])
	}

	var h Argon2Hash
	h.Variant = parts[1]

	v, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return Argon2Hash{}, fmt.Errorf("%w: missing version", ErrInvalidInput)
	}
	version, err := strconv.Atoi(v)
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: invalid version: %w", ErrInvalidInput, err)
	}
	if version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidInput, version)
	}
	h.Version = version

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return Argon2Hash{}, fmt.Errorf("%w: expected 3 params", ErrInvalidInput)
	}

	m, err := parseParam(params[0], "m=", 32)
	if err != nil {
		return Argon2Hash{}, err
	}
	t, err := parseParam(params[1], "t=", 32)
	if err != nil {
		return Argon2Hash{}, err
	}
	p, err := parseParam(params[2], "p=", 8)
	if err != nil {
		return Argon2Hash{}, err
	}
	h.MemoryKiB = uint32(m)
	h.Iterations = uint32(t)
	h.Parallelism = uint8(p)

	err = h.Params().validate()
	if err != nil {
		return Argon2Hash{}, err
	}

	h.Salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: invalid salt: %w", ErrInvalidInput, err)
	}

	h.Hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: invalid hash: %w", ErrInvalidInput, err)
	}

	if len(h.Salt) == 0 || len(h.Hash) == 0 {
		return Argon2Hash{}, fmt.Errorf("%w: empty salt or hash", ErrInvalidInput)
	}

	return h, nil
}

func parseParam(s, prefix string, bits int) (uint64, error) {
	raw, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return 0, fmt.Errorf("%w: expected param %q", ErrInvalidInput, prefix)
	}

	n, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid param %q: %w", ErrInvalidInput, prefix, err)
	}
	return n, nil
}

// MatchBytes reports whether b hashes to h, using the parameters stored in h.
// The comparison runs in constant time.
func (h Argon2Hash) MatchBytes(b []byte) bool {
	other := argon2.IDKey(b, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

// Params returns the cost parameters h was created with.
func (h Argon2Hash) Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   h.MemoryKiB,
		Iterations:  h.Iterations,
		Parallelism: h.Parallelism,
	}
}

func (h Argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant, h.Version,
		h.MemoryKiB, h.Iterations, h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(b []byte) error {
	parsed, err := ParseArgon2Hash(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Scan implements sql.Scanner.
func (h *Argon2Hash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("can't scan %T into argon2 hash", src)
	}
}

// Value implements driver.Valuer.
func (h Argon2Hash) Value() (driver.Value, error) {
	return h.String(), nil
}
