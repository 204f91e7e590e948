package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name       string
		collection string
		payload    string
		wantErr    error
	}{
		{"minimal post", CollectionPost, `{"$type":"app.bsky.feed.post","text":"hi","createdAt":"2024-01-01T00:00:00Z"}`, nil},
		{"post with images", CollectionPost, `{"text":"","createdAt":"x","embed":{"$type":"app.bsky.embed.images","images":[]}}`, nil},
		{"post missing text", CollectionPost, `{"createdAt":"2024-01-01T00:00:00Z"}`, ErrInvalidRecord},
		{"post wrong type", CollectionPost, `{"$type":"app.bsky.feed.like","text":"","createdAt":"x"}`, ErrInvalidRecord},
		{"embed without type", CollectionPost, `{"text":"","createdAt":"x","embed":{}}`, ErrInvalidRecord},
		{"bad reply ref", CollectionPost, `{"text":"","createdAt":"x","reply":{"root":{"uri":"https://x","cid":"c"},"parent":{"uri":"at://a","cid":"c"}}}`, ErrInvalidRecord},
		{"not json", CollectionPost, `{"text":`, ErrInvalidRecord},
		{"empty", CollectionPost, ``, ErrInvalidRecord},
		{"empty profile", CollectionProfile, `{}`, nil},
		{"profile with avatar", CollectionProfile, `{"displayName":"A","avatar":{"$type":"blob","ref":{"$link":"bafy"},"mimeType":"image/png","size":10}}`, nil},
		{"avatar not an image", CollectionProfile, `{"avatar":{"ref":{"$link":"bafy"},"mimeType":"text/plain"}}`, ErrInvalidRecord},
		{"avatar without link", CollectionProfile, `{"avatar":{"ref":{},"mimeType":"image/png"}}`, ErrInvalidRecord},
		{"unknown collection", "app.bsky.feed.like", `{}`, ErrUnknownCollection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.collection, []byte(tt.payload))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
