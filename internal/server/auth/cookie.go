package auth

import (
	"net/http"

	"github.com/tumbsky/tumbsky/internal/common"
)

// Cookies reads and writes the signed session cookie.
type Cookies struct {
	codec  *Codec
	secure bool
}

// NewCookies builds a cookie helper. secure marks cookies Secure and should be
// true whenever the site is served over TLS.
func NewCookies(codec *Codec, secure bool) *Cookies {
	return &Cookies{codec: codec, secure: secure}
}

// Read returns the verified value of the session cookie, or false when it is
// absent or its signature does not verify.
func (c *Cookies) Read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(common.SessionCookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return c.codec.Verify(ck.Value)
}

// Set writes a freshly signed session cookie carrying value.
func (c *Cookies) Set(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    c.codec.Sign(value),
		Path:     "/",
		MaxAge:   int(common.SessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on the client.
func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
