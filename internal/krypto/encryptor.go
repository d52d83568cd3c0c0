package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrUnknownKey indicates that the key used to encrypt the data is unknown.
	ErrUnknownKey = errors.New("unknown key")
	// ErrInvalidData indicates that the data is invalid.
	ErrInvalidData = errors.New("invalid data")
	// ErrDecrypt indicates that the ciphertext did not authenticate.
	ErrDecrypt = errors.New("failed to decrypt")
)

const indexBytes = 4

// Encryptor encrypts and decrypts data using AES-256-GCM.
//
// Keys form an append only list, the last key is used for encryption.
// Ciphertexts are laid out as:
//
//	index (4 bytes, big endian) | nonce | sealed data
//
// The key index is authenticated as additional data, so a ciphertext can't
// be moved to another key slot. The index is not considered secret.
type Encryptor struct {
	aeads []cipher.AEAD
}

// NewEncryptor creates a new encryptor with the provided keys.
func NewEncryptor(keys []Key) (*Encryptor, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one key is required")
	}

	aeads := make([]cipher.AEAD, 0, len(keys))
	for i, k := range keys {
		block, err := aes.NewCipher(k.value)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}

		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}

		aeads = append(aeads, gcm)
	}

	return &Encryptor{
		aeads: aeads,
	}, nil
}

// Encrypt encrypts the data using the latest key.
func (s *Encryptor) Encrypt(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	index := len(s.aeads) - 1
	gcm := s.aeads[index]

	nonce, err := randBytes(gcm.NonceSize())
	if err != nil {
		return nil, err
	}

	out := make([]byte, indexBytes, indexBytes+len(nonce)+len(data)+gcm.Overhead())
	binary.BigEndian.PutUint32(out, uint32(index))
	out = append(out, nonce...)

	return gcm.Seal(out, nonce, data, out[:indexBytes]), nil
}

// Decrypt decrypts a message produced by Encrypt, using the key identified
// by its prefix.
func (s *Encryptor) Decrypt(message []byte) ([]byte, error) {
	if len(message) < indexBytes {
		return nil, ErrInvalidData
	}

	index := binary.BigEndian.Uint32(message[:indexBytes])
	if int(index) >= len(s.aeads) {
		return nil, ErrUnknownKey
	}

	gcm := s.aeads[index]
	minLen := indexBytes + gcm.NonceSize()
	if len(message) <= minLen {
		return nil, ErrInvalidData
	}

	data, err := gcm.Open(nil, message[indexBytes:minLen], message[minLen:], message[:indexBytes])
	if err != nil {
		return nil, fmt.Errorf("%w: key %d: %w", ErrDecrypt, index, err)
	}

	return data, nil
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}
