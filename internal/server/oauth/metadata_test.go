package oauth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetadata(t *testing.T) {
	md, err := NewMetadata("https://tumbsky.example/")
	require.NoError(t, err)

	assert.Equal(t, "https://tumbsky.example/oauth-client-metadata.json", md.ClientID)
	assert.Equal(t, []string{"https://tumbsky.example/oauth/callback"}, md.RedirectURIs)
	assert.Equal(t, "tumbsky", md.ClientName)
	assert.Equal(t, "atproto transition:generic", md.Scope)

	b, err := json.Marshal(md)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"redirect_uris":["https://tumbsky.example/oauth/callback"]`)
}

func TestNewMetadata_RequiresHTTPS(t *testing.T) {
	for _, u := range []string{"", "http://tumbsky.example", "tumbsky.example", "https://"} {
		_, err := NewMetadata(u)
		assert.Error(t, err, u)
	}
}

func TestIsActorIdentifier(t *testing.T) {
	for _, s := range []string{"alice.bsky.social", "did:plc:abc", "did:web:example.com", "a-b.example.org"} {
		assert.True(t, IsActorIdentifier(s), s)
	}
	for _, s := range []string{"", "alice", "did:plc:", "-a.example", "a..b", "alice.123", "has space.com"} {
		assert.False(t, IsActorIdentifier(s), s)
	}
}
