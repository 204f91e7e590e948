// Package auth signs and verifies the session cookie.
//
// A token is "value.sig" where sig is the unpadded base64url HMAC-SHA256 of
// value under the server secret. Tokens never expire on their own; the cookie
// max-age bounds their lifetime. Rotating the secret invalidates every token
// previously issued, and the same secret must never be shared between
// deployments that should not trust each other's cookies.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/tumbsky/tumbsky/internal/common"
)

const separator = "."

var sigEncoding = base64.RawURLEncoding

type Codec struct {
	secret []byte
}

// NewCodec returns common.ErrNotConfigured for an empty secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, common.ErrNotConfigured
	}
	return &Codec{secret: []byte(secret)}, nil
}

func (c *Codec) mac(value string) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(value))
	return h.Sum(nil)
}

// Sign returns value + "." + base64url(HMAC-SHA256(secret, value)).
func (c *Codec) Sign(value string) string {
	return value + separator + sigEncoding.EncodeToString(c.mac(value))
}

// Verify returns the signed value and true, or "" and false for any token
// that does not carry a valid signature.
func (c *Codec) Verify(token string) (string, bool) {
	idx := strings.LastIndex(token, separator)
	if idx < 0 {
		return "", false
	}
	value, sig := token[:idx], token[idx+1:]

	// Strict rejects non-zero trailing bits, so every distinct sig string
	// decodes to a distinct MAC.
	got, err := sigEncoding.Strict().DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, c.mac(value)) {
		return "", false
	}
	return value, true
}
