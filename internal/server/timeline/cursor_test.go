package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/server/repositories/posts"
)

func TestCursorRoundTrip(t *testing.T) {
	k := posts.Key{
		CreatedAt: time.UnixMilli(1714521600123),
		URI:       "at://did:plc:abc/app.bsky.feed.post/3kxyz",
	}
	s := EncodeCursor(k)
	assert.Equal(t, "1714521600123:at://did:plc:abc/app.bsky.feed.post/3kxyz", s)

	got, err := DecodeCursor(s)
	require.NoError(t, err)
	assert.True(t, k.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, k.URI, got.URI)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, s := range []string{
		"",
		"123",
		"123:",
		":at://x",
		"abc:at://x",
		"1.5:at://x",
	} {
		_, err := DecodeCursor(s)
		assert.ErrorIs(t, err, common.ErrInvalidCursor, "%q", s)
	}
}
