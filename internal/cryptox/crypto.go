// Package cryptox seals small blobs (OAuth token material) at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"

	"github.com/tumbsky/tumbsky/internal/common"
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// DeriveKey stretches a configured secret into a 256-bit AES key.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Sealer encrypts with AES-GCM. Output is base64url(nonce || ciphertext).
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the key from secret and salt and prepares the cipher.
// The derived key is wiped once the cipher holds its own schedule.
func NewSealer(secret, salt []byte) (*Sealer, error) {
	key := DeriveKey(secret, salt)
	defer common.WipeByteArray(key)
	return NewSealerWithKey(key)
}

// NewSealerWithKey uses key directly; it must be 16, 24 or 32 bytes.
func NewSealerWithKey(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Sealer) Open(sealed string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrMalformedCiphertext
	}
	n := s.aead.NonceSize()
	if len(raw) < n+s.aead.Overhead() {
		return nil, ErrMalformedCiphertext
	}
	return s.aead.Open(nil, raw[:n], raw[n:], nil)
}

// SealJSON marshals v and seals the result.
func (s *Sealer) SealJSON(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return s.Seal(plaintext)
}

// OpenJSON opens sealed and unmarshals it into v.
func (s *Sealer) OpenJSON(sealed string, v any) error {
	plaintext, err := s.Open(sealed)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
