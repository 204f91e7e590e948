package oauth

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tumbsky/tumbsky/internal/common"
)

const (
	AuthMethodPrivateKeyJWT = "private_key_jwt"
	SigningAlg              = "ES256"

	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	assertionTTL        = time.Minute
)

var ErrBadClientKey = errors.New("invalid client key")

// ClientKey is the P-256 key a confidential client signs token endpoint
// assertions with.
type ClientKey struct {
	kid  string
	priv *ecdsa.PrivateKey
	x, y string
}

type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	D   string `json:"d,omitempty"`
	Kid string `json:"kid,omitempty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
}

// JWKS is a public key set document.
type JWKS struct {
	Keys []jwk `json:"keys"`
}

// ParseClientKey reads a private EC P-256 key in JWK form. Without a kid the
// key's thumbprint is used.
func ParseClientKey(raw string) (*ClientKey, error) {
	var k jwk
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadClientKey, err)
	}
	if k.Kty != "EC" || k.Crv != "P-256" {
		return nil, fmt.Errorf("%w: want EC P-256, got %s %s", ErrBadClientKey, k.Kty, k.Crv)
	}

	x, errX := decodeCoord(k.X)
	y, errY := decodeCoord(k.Y)
	d, errD := decodeCoord(k.D)
	if err := errors.Join(errX, errY, errD); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadClientKey, err)
	}

	priv, err := ecdh.P256().NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadClientKey, err)
	}
	want := append([]byte{4}, append(x, y...)...)
	if !bytes.Equal(priv.PublicKey().Bytes(), want) {
		return nil, fmt.Errorf("%w: public point does not match d", ErrBadClientKey)
	}

	ck := &ClientKey{
		kid: k.Kid,
		priv: &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{
				Curve: elliptic.P256(),
				X:     new(big.Int).SetBytes(x),
				Y:     new(big.Int).SetBytes(y),
			},
			D: new(big.Int).SetBytes(d),
		},
		x: k.X,
		y: k.Y,
	}
	if ck.kid == "" {
		ck.kid = ck.thumbprint()
	}
	return ck, nil
}

func decodeCoord(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("coordinate is %d bytes, want 32", len(b))
	}
	return b, nil
}

// thumbprint is the RFC 7638 JWK thumbprint.
func (k *ClientKey) thumbprint() string {
	sum := sha256.Sum256([]byte(`{"crv":"P-256","kty":"EC","x":"` + k.x + `","y":"` + k.y + `"}`))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (k *ClientKey) KeyID() string { return k.kid }

// JWKS returns the public half, for serving at the metadata's jwks_uri.
func (k *ClientKey) JWKS() JWKS {
	return JWKS{Keys: []jwk{{
		Kty: "EC", Crv: "P-256", X: k.x, Y: k.y, Kid: k.kid, Use: "sig", Alg: SigningAlg,
	}}}
}

// Assertion signs a client authentication JWT for the token endpoint of aud.
func (k *ClientKey) Assertion(clientID, aud string, now time.Time) (string, error) {
	jti, err := common.MakeRandToken(16)
	if err != nil {
		return "", err
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Issuer:    clientID,
		Subject:   clientID,
		Audience:  jwt.ClaimStrings{aud},
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
	})
	tok.Header["kid"] = k.kid
	return tok.SignedString(k.priv)
}

// assertionTransport adds a signed client assertion to form posts sent to
// one token endpoint. Other requests pass through untouched.
type assertionTransport struct {
	base     http.RoundTripper
	key      *ClientKey
	clientID string
	tokenURL string
	aud      string
	now      func() time.Time
}

func (t *assertionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || req.URL.String() != t.tokenURL || req.Body == nil {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	assertion, err := t.key.Assertion(t.clientID, t.aud, t.now())
	if err != nil {
		return nil, fmt.Errorf("sign client assertion: %w", err)
	}
	form.Set("client_assertion_type", clientAssertionType)
	form.Set("client_assertion", assertion)

	enc := form.Encode()
	r2 := req.Clone(req.Context())
	r2.Body = io.NopCloser(strings.NewReader(enc))
	r2.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(enc)), nil }
	r2.ContentLength = int64(len(enc))
	return t.base.RoundTrip(r2)
}
