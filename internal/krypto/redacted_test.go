package krypto_test

import (
	"bytes"
	"encoding"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/willemschots/newsletter/internal/krypto"
)

func Test_Redacted(t *testing.T) {
	rawKey := "2b671594b775f371eab4050b4d58326682df6b1a6cc2e886717b1a26b4d6c45d"

	values := map[string]struct {
		v   any
		raw string
	}{
		"key":    {v: must(krypto.ParseKey(rawKey)), raw: rawKey},
		"secret": {v: krypto.NewSecret("postmark-token"), raw: "postmark-token"},
		"struct": {
			v: struct {
				Name   string
				Secret krypto.Secret
			}{Name: "mailgun", Secret: krypto.NewSecret("mailgun-key")},
			raw: "mailgun-key",
		},
	}

	for name, tc := range values {
		t.Run("ok, fmt of "+name, func(t *testing.T) {
			for _, verb := range []string{"%s", "%v", "%+v", "%#v", "%d", "%x"} {
				got := fmt.Sprintf(verb, tc.v)
				if strings.Contains(got, tc.raw) || !strings.Contains(got, krypto.SecretMarker) {
					t.Errorf("%s rendered %q", verb, got)
				}
			}
		})

		t.Run("ok, log output of "+name, func(t *testing.T) {
			var buf bytes.Buffer
			slog.New(slog.NewJSONHandler(&buf, nil)).Info("config", "value", tc.v)

			if strings.Contains(buf.String(), tc.raw) {
				t.Errorf("log output\n%s\ncontains %s", buf.String(), tc.raw)
			}
		})

		if m, ok := tc.v.(encoding.TextMarshaler); ok {
			t.Run("ok, text of "+name, func(t *testing.T) {
				b, err := m.MarshalText()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				if string(b) != krypto.SecretMarker {
					t.Errorf("got %q", b)
				}
			})
		}
	}
}

func Test_Wipe(t *testing.T) {
	b := []byte("hunter2")
	krypto.Wipe(b)

	if !bytes.Equal(b, make([]byte, len(b))) {
		t.Fatalf("not wiped: %v", b)
	}
}
