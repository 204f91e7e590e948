package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tumbsky/tumbsky/internal/common"
)

func newCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	c, err := NewCodec(secret)
	require.NoError(t, err)
	return c
}

func TestNewCodec_EmptySecret(t *testing.T) {
	_, err := NewCodec("")
	assert.ErrorIs(t, err, common.ErrNotConfigured)
}

func TestSign_KnownVector(t *testing.T) {
	c := newCodec(t, "s3cr3t")

	h := hmac.New(sha256.New, []byte("s3cr3t"))
	h.Write([]byte("did:plc:abc"))
	want := "did:plc:abc." + base64.RawURLEncoding.EncodeToString(h.Sum(nil))

	tok := c.Sign("did:plc:abc")
	assert.Equal(t, want, tok)

	v, ok := c.Verify(tok)
	require.True(t, ok)
	assert.Equal(t, "did:plc:abc", v)

	last := tok[len(tok)-1]
	repl := byte('A')
	if last == 'A' {
		repl = 'B'
	}
	_, ok = c.Verify(tok[:len(tok)-1] + string(repl))
	assert.False(t, ok)
}

func TestVerify_RoundTrip(t *testing.T) {
	c := newCodec(t, "k")

	for _, v := range []string{"", "did:plc:abc", "did:web:example.com", "a.b.c", "ünïcødé", "x.y."} {
		got, ok := c.Verify(c.Sign(v))
		require.True(t, ok, "value %q", v)
		assert.Equal(t, v, got)
	}
}

func TestVerify_EveryByteFlipRejected(t *testing.T) {
	c := newCodec(t, "k")
	tok := c.Sign("did:plc:abc")

	for i := 0; i < len(tok); i++ {
		for bit := 0; bit < 8; bit++ {
			b := []byte(tok)
			b[i] ^= 1 << bit
			if _, ok := c.Verify(string(b)); ok {
				t.Fatalf("flipping bit %d of byte %d still verified: %q", bit, i, b)
			}
		}
	}
}

func TestVerify_Malformed(t *testing.T) {
	c := newCodec(t, "k")

	cases := map[string]string{
		"no separator":  "did:plc:abc",
		"empty":         "",
		"empty sig":     "did:plc:abc.",
		"not base64":    "did:plc:abc.!!!",
		"padded":        c.Sign("v") + "=",
		"short sig":     "did:plc:abc.AAAA",
		"other secret":  newCodec(t, "other").Sign("did:plc:abc"),
		"value swapped": "did:plc:xyz" + c.Sign("did:plc:abc")[len("did:plc:abc"):],
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			v, ok := c.Verify(tok)
			assert.False(t, ok)
			assert.Empty(t, v)
		})
	}
}

func TestVerify_UsesLastSeparator(t *testing.T) {
	c := newCodec(t, "k")

	tok := c.Sign("a.b")
	v, ok := c.Verify(tok)
	require.True(t, ok)
	assert.Equal(t, "a.b", v)
}
