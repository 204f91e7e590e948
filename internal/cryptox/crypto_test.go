package cryptox

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	expectedHex := "9290403300158e19f27e48e7087f7383b03065bf5b25ef23ebc40229616cd8b3"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveKey(password, []byte("salt-1"))
	key2 := DeriveKey(password, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealerWithKey(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal([]byte("refresh-token"))
	require.NoError(t, err)

	got, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", string(got))
}

func TestSealer_FreshNonceEachTime(t *testing.T) {
	s := newTestSealer(t)

	a, err := s.Seal([]byte("x"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSealer_RejectsTampering(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal([]byte("payload"))
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01

	_, err = s.Open(base64.RawURLEncoding.EncodeToString(raw))
	require.Error(t, err)
}

func TestSealer_RejectsGarbage(t *testing.T) {
	s := newTestSealer(t)

	_, err := s.Open("!!not base64!!")
	require.ErrorIs(t, err, ErrMalformedCiphertext)

	_, err = s.Open("AAAA")
	require.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestSealer_WrongKey(t *testing.T) {
	a := newTestSealer(t)
	b, err := NewSealer([]byte("other"), []byte("salt"))
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.Error(t, err)
}

func TestSealer_JSON(t *testing.T) {
	type tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	s := newTestSealer(t)

	sealed, err := s.SealJSON(tokens{Access: "a", Refresh: "r"})
	require.NoError(t, err)

	var got tokens
	require.NoError(t, s.OpenJSON(sealed, &got))
	assert.Equal(t, tokens{Access: "a", Refresh: "r"}, got)
}
