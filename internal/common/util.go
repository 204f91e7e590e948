package common

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// MakeRandToken returns size random bytes encoded with unpadded base64url.
func MakeRandToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// UnixMilli converts t to the millisecond timestamps stored in the database.
func UnixMilli(t time.Time) int64 {
	return t.UnixMilli()
}

// FromUnixMilli is the inverse of UnixMilli.
func FromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms)
}
