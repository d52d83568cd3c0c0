package krypto

// Secret is a sensitive string from configuration, such as an API token.
type Secret struct {
	Redacted
	value []byte
}

func NewSecret(raw string) Secret {
	return Secret{value: []byte(raw)}
}

func (s Secret) IsEmpty() bool {
	return len(s.value) == 0
}

// SecretValue exposes the secret, for libraries that need it in plaintext.
func (s Secret) SecretValue() []byte {
	return s.value
}

// Wipe overwrites b with zeroes.
func Wipe(b []byte) {
	clear(b)
}
