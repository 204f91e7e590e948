package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePost(t *testing.T) {
	indexed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		payload    string
		wantText   string
		wantImages bool
		wantEmbed  bool
		wantSort   time.Time
	}{
		{
			name:     "plain",
			payload:  `{"text":"hello","createdAt":"2024-05-06T07:08:09.123Z"}`,
			wantText: "hello",
			wantSort: time.Date(2024, 5, 6, 7, 8, 9, 123000000, time.UTC),
		},
		{
			name:     "unparseable createdAt falls back",
			payload:  `{"text":"x","createdAt":"yesterday"}`,
			wantText: "x",
			wantSort: indexed,
		},
		{
			name:       "images",
			payload:    `{"text":"","createdAt":"2024-01-01T00:00:00Z","embed":{"$type":"app.bsky.embed.images","images":[]}}`,
			wantImages: true,
			wantEmbed:  true,
			wantSort:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "external link",
			payload:   `{"text":"","createdAt":"2024-01-01T00:00:00Z","embed":{"$type":"app.bsky.embed.external"}}`,
			wantEmbed: true,
			wantSort:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "quote with images",
			payload:    `{"text":"","createdAt":"2024-01-01T00:00:00Z","embed":{"$type":"app.bsky.embed.recordWithMedia","media":{"$type":"app.bsky.embed.images"}}}`,
			wantImages: true,
			wantEmbed:  true,
			wantSort:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "quote with video",
			payload:   `{"text":"","createdAt":"2024-01-01T00:00:00Z","embed":{"$type":"app.bsky.embed.recordWithMedia","media":{"$type":"app.bsky.embed.video"}}}`,
			wantEmbed: true,
			wantSort:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "null embed",
			payload:  `{"text":"","createdAt":"2024-01-01T00:00:00Z","embed":null}`,
			wantSort: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := derivePost([]byte(tt.payload), indexed)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, f.Text)
			assert.Equal(t, tt.wantImages, f.HasImages)
			assert.Equal(t, tt.wantEmbed, f.HasEmbed)
			assert.True(t, tt.wantSort.Equal(f.SortAt), "sort %v", f.SortAt)
			if tt.wantEmbed {
				assert.NotEmpty(t, f.EmbedData)
			} else {
				assert.Empty(t, f.EmbedData)
			}
		})
	}
}

func TestDeriveProfile(t *testing.T) {
	rec, err := deriveProfile([]byte(`{"displayName":"Ann","description":"d","avatar":{"ref":{"$link":"bafyava"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "Ann", rec.DisplayName)
	assert.Equal(t, "d", rec.Description)
	assert.Equal(t, "bafyava", rec.avatarCID())

	rec, err = deriveProfile([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "", rec.avatarCID())
}

func TestURI(t *testing.T) {
	assert.Equal(t, "at://did:plc:a/app.bsky.feed.post/3k", URI("did:plc:a", CollectionPost, "3k"))
}

func TestParseURI(t *testing.T) {
	did, coll, rkey, ok := ParseURI("at://did:plc:a/app.bsky.feed.post/3k")
	require.True(t, ok)
	assert.Equal(t, []string{"did:plc:a", CollectionPost, "3k"}, []string{did, coll, rkey})

	for _, bad := range []string{"", "did:plc:a/x/y", "at://did:plc:a/x", "at://did:plc:a/x/y/z", "at:///x/y"} {
		_, _, _, ok := ParseURI(bad)
		assert.False(t, ok, bad)
	}
}
