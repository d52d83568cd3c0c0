package krypto_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/willemschots/newsletter/internal/krypto"
)

// malformedArgon2Hashes are rejected by every decoding path.
func malformedArgon2Hashes() map[string]string {
	return map[string]string{
		"fail, wrong variant":           "$argon2i$v=19$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-numeric version":     "$argon2id$v=abc$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-matching version":    "$argon2id$v=18$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-numeric memory":      "$argon2id$v=19$m=abc,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-numeric iterations":  "$argon2id$v=19$m=47104,t=abc,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-numeric parallelism": "$argon2id$v=19$m=47104,t=1,p=abc$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-base64 salt":         "$argon2id$v=19$m=47104,t=1,p=1$???????????????????????????????????????????$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, non-base64 hash":         "$argon2id$v=19$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$??????????????????????",
		"fail, empty":                   "",
		"fail, not a phc string":        "hunter2",
		"fail, missing hash segment":    "$argon2id$v=19$m=47104,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw",
		"fail, missing param":           "$argon2id$v=19$m=47104,t=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, parallelism overflow":    "$argon2id$v=19$m=47104,t=1,p=256$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, zero iterations":         "$argon2id$v=19$m=47104,t=0,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, too many iterations":     "$argon2id$v=19$m=47104,t=65,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, zero parallelism":        "$argon2id$v=19$m=47104,t=1,p=0$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, memory too small":        "$argon2id$v=19$m=15,t=1,p=2$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
		"fail, memory too large":        "$argon2id$v=19$m=1048577,t=1,p=1$fYJT8cAysfuYCBjxTEmCkaCz0RfRtlLQOw2Fj8gM5Uw$DVpK1dNdPRmhL8oTSo+RlA",
	}
}

// knownArgon2Hash pairs an input with a hash of it and the decoded fields.
type knownArgon2Hash struct {
	raw     string
	hashStr string
	hash    krypto.Argon2Hash
}

func knownArgon2Hashes() map[string]knownArgon2Hash {
	return map[string]knownArgon2Hash{
		"ok, ascii": {
			raw:     "12345678",
			hashStr: "$argon2id$v=19$m=47104,t=1,p=1$vP9U4C5jsOzFQLj0gvUkYw$YLrSb2dGfcVohlm8syynqHs6/NHxXS9rt/t6TjL7pi0",
			hash: krypto.Argon2Hash{
				Variant:     "argon2id",
				Version:     19,
				MemoryKiB:   47104,
				Iterations:  1,
				Parallelism: 1,
				Salt: []byte{
					0xbc, 0xff, 0x54, 0xe0, 0x2e, 0x63, 0xb0, 0xec,
					0xc5, 0x40, 0xb8, 0xf4, 0x82, 0xf5, 0x24, 0x63,
				},
				Hash: []byte{
					0x60, 0xba, 0xd2, 0x6f, 0x67, 0x46, 0x7d, 0xc5,
					0x68, 0x86, 0x59, 0xbc, 0xb3, 0x2c, 0xa7, 0xa8,
					0x7b, 0x3a, 0xfc, 0xd1, 0xf1, 0x5d, 0x2f, 0x6b,
					0xb7, 0xfb, 0x7a, 0x4e, 0x32, 0xfb, 0xa6, 0x2d,
				},
			},
		},
		"ok, non-ascii": {
			raw:     "ðŸ¥¸ðŸ¥¸ðŸ¥¸",
			hashStr: "$argon2id$v=19$m=47104,t=1,p=1$CkX5zzYLJMWm0y/17eScyw$Qfah+NewdsdeF0+iV72mShZhRO93Qwzdj17TUZCH6ZU",
			hash: krypto.Argon2Hash{
				Variant:     "argon2id",
				Version:     19,
				MemoryKiB:   47104,
				Iterations:  1,
				Parallelism: 1,
				Salt: []byte{
					0xa, 0x45, 0xf9, 0xcf, 0x36, 0xb, 0x24, 0xc5,
					0xa6, 0xd3, 0x2f, 0xf5, 0xed, 0xe4, 0x9c, 0xcb,
				},
				Hash: []byte{
					0x41, 0xf6, 0xa1, 0xf8, 0xd7, 0xb0, 0x76, 0xc7,
					0x5e, 0x17, 0x4f, 0xa2, 0x57, 0xbd, 0xa6, 0x4a,
					0x16, 0x61, 0x44, 0xef, 0x77, 0x43, 0xc, 0xdd,
					0x8f, 0x5e, 0xd3, 0x51, 0x90, 0x87, 0xe9, 0x95,
				},
			},
		},
	}
}

func Test_HashArgon2(t *testing.T) {
	for name, tc := range knownArgon2Hashes() {
		t.Run(name, func(t *testing.T) {
			got, err := krypto.HashArgon2([]byte(tc.raw), krypto.DefaultArgon2Params())
			if err != nil {
				t.Fatalf("failed to hash argon2: %v", err)
			}

			// fresh salt, so never the known hash.
			if reflect.DeepEqual(got, tc.hash) {
				t.Errorf("did not expect\n%#v\nto equal\n%#v\n", got, tc.hash)
			}

			if !got.MatchBytes([]byte(tc.raw)) {
				t.Errorf("expected raw value to match hash, but it did not")
			}

			if got.Params() != krypto.DefaultArgon2Params() {
				t.Errorf("got params %+v, want %+v", got.Params(), krypto.DefaultArgon2Params())
			}
		})
	}

	t.Run("ok, parameters are encoded in the string", func(t *testing.T) {
		params := krypto.Argon2Params{MemoryKiB: 64, Iterations: 3, Parallelism: 2}
		got := must(krypto.HashArgon2([]byte("secret"), params))

		if !strings.HasPrefix(got.String(), "$argon2id$v=19$m=64,t=3,p=2$") {
			t.Errorf("unexpected hash string %s", got.String())
		}

		parsed := must(krypto.ParseArgon2Hash(got.String()))
		if !parsed.MatchBytes([]byte("secret")) {
			t.Errorf("expected parsed hash to match")
		}

		if parsed.MatchBytes([]byte("Secret")) {
			t.Errorf("expected different input not to match")
		}
	})

	failTests := map[string]struct {
		raw    []byte
		params krypto.Argon2Params
	}{
		"fail, nil":                {raw: nil, params: krypto.DefaultArgon2Params()},
		"fail, empty":              {raw: []byte{}, params: krypto.DefaultArgon2Params()},
		"fail, zero params":        {raw: []byte("secret"), params: krypto.Argon2Params{}},
		"fail, zero iteration":     {raw: []byte("secret"), params: krypto.Argon2Params{MemoryKiB: 64, Parallelism: 1}},
		"fail, memory too low":     {raw: []byte("secret"), params: krypto.Argon2Params{MemoryKiB: 8, Iterations: 1, Parallelism: 2}},
		"fail, memory too high":    {raw: []byte("secret"), params: krypto.Argon2Params{MemoryKiB: krypto.MaxArgon2MemoryKiB + 1, Iterations: 1, Parallelism: 1}},
		"fail, too many iteration": {raw: []byte("secret"), params: krypto.Argon2Params{MemoryKiB: 64, Iterations: krypto.MaxArgon2Iterations + 1, Parallelism: 1}},
	}

	for name, tc := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.HashArgon2(tc.raw, tc.params)
			if !errors.Is(err, krypto.ErrInvalidInput) {
				t.Fatalf("expected %v, but got %v (via errors.Is)", krypto.ErrInvalidInput, err)
			}
		})
	}
}

// decoders are all the ways a stored hash is turned back into an Argon2Hash.
var decoders = map[string]func(s string) (krypto.Argon2Hash, error){
	"parse": krypto.ParseArgon2Hash,
	"unmarshal text": func(s string) (krypto.Argon2Hash, error) {
		var h krypto.Argon2Hash
		err := h.UnmarshalText([]byte(s))
		return h, err
	},
	"scan string": func(s string) (krypto.Argon2Hash, error) {
		var h krypto.Argon2Hash
		err := h.Scan(s)
		return h, err
	},
	"scan bytes": func(s string) (krypto.Argon2Hash, error) {
		var h krypto.Argon2Hash
		err := h.Scan([]byte(s))
		return h, err
	},
}

// encoders are all the ways an Argon2Hash is stored.
var encoders = map[string]func(h krypto.Argon2Hash) (string, error){
	"string": func(h krypto.Argon2Hash) (string, error) {
		return h.String(), nil
	},
	"marshal text": func(h krypto.Argon2Hash) (string, error) {
		b, err := h.MarshalText()
		return string(b), err
	},
	"value": func(h krypto.Argon2Hash) (string, error) {
		v, err := h.Value()
		if err != nil {
			return "", err
		}
		return v.(string), nil
	},
}

func Test_Argon2Hash_Decode(t *testing.T) {
	for decoder, decode := range decoders {
		for name, tc := range knownArgon2Hashes() {
			t.Run(name+" via "+decoder, func(t *testing.T) {
				got, err := decode(tc.hashStr)
				if err != nil {
					t.Fatalf("failed to decode: %v", err)
				}

				if !reflect.DeepEqual(got, tc.hash) {
					t.Errorf("got\n%#v\nwant\n%#v", got, tc.hash)
				}

				if !got.MatchBytes([]byte(tc.raw)) {
					t.Errorf("expected %q to match", tc.raw)
				}
			})
		}

		for name, txt := range malformedArgon2Hashes() {
			t.Run(name+" via "+decoder, func(t *testing.T) {
				_, err := decode(txt)
				if !errors.Is(err, krypto.ErrInvalidInput) {
					t.Errorf("got %v, want %v (via errors.Is)", err, krypto.ErrInvalidInput)
				}
			})
		}
	}

	t.Run("fail, scan unsupported type", func(t *testing.T) {
		var h krypto.Argon2Hash
		if err := h.Scan(42); err == nil {
			t.Fatalf("expected error, got nil")
		}
	})
}

func Test_Argon2Hash_Encode(t *testing.T) {
	for encoder, encode := range encoders {
		for name, tc := range knownArgon2Hashes() {
			t.Run(name+" via "+encoder, func(t *testing.T) {
				got, err := encode(tc.hash)
				if err != nil {
					t.Fatalf("failed to encode: %v", err)
				}

				if got != tc.hashStr {
					t.Errorf("got\n%s\nwant\n%s", got, tc.hashStr)
				}
			})
		}
	}
}
