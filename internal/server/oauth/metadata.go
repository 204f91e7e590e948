package oauth

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	ClientName = "tumbsky"
	Scope      = "atproto transition:generic"

	MetadataPath = "/oauth-client-metadata.json"
	CallbackPath = "/oauth/callback"
	JWKSPath     = "/jwks.json"
)

// Metadata is the client metadata document. Its URL doubles as the client_id.
type Metadata struct {
	ClientID                string   `json:"client_id"`
	ClientName              string   `json:"client_name"`
	ClientURI               string   `json:"client_uri"`
	RedirectURIs            []string `json:"redirect_uris"`
	Scope                   string   `json:"scope"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	ApplicationType         string   `json:"application_type"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	DPoPBoundAccessTokens   bool     `json:"dpop_bound_access_tokens"`

	TokenEndpointAuthSigningAlg string `json:"token_endpoint_auth_signing_alg,omitempty"`
	JWKSURI                     string `json:"jwks_uri,omitempty"`
}

// NewMetadata builds the document for a site served at publicURL, which must be https.
func NewMetadata(publicURL string) (Metadata, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return Metadata{}, err
	}
	if u.Scheme != "https" || u.Host == "" {
		return Metadata{}, fmt.Errorf("oauth public url must be https, got %q", publicURL)
	}
	base := strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/")

	return Metadata{
		ClientID:                base + MetadataPath,
		ClientName:              ClientName,
		ClientURI:               base,
		RedirectURIs:            []string{base + CallbackPath},
		Scope:                   Scope,
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		ApplicationType:         "web",
		TokenEndpointAuthMethod: "none",
	}, nil
}

// WithClientKey returns m for a confidential client whose public keys are
// served at JWKSPath.
func (m Metadata) WithClientKey() Metadata {
	m.TokenEndpointAuthMethod = AuthMethodPrivateKeyJWT
	m.TokenEndpointAuthSigningAlg = SigningAlg
	m.JWKSURI = m.ClientURI + JWKSPath
	return m
}
