package ingest

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	embedImages          = "app.bsky.embed.images"
	embedRecordWithMedia = "app.bsky.embed.recordWithMedia"
)

type postRecord struct {
	Text      string          `json:"text"`
	CreatedAt string          `json:"createdAt"`
	Embed     json.RawMessage `json:"embed"`
}

type embedHeader struct {
	Type  string `json:"$type"`
	Media *struct {
		Type string `json:"$type"`
	} `json:"media"`
}

type profileRecord struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Avatar      *struct {
		Ref struct {
			Link string `json:"$link"`
		} `json:"ref"`
	} `json:"avatar"`
}

// postFields are the display columns derived from a post payload.
type postFields struct {
	Text      string
	HasImages bool
	HasEmbed  bool
	EmbedData json.RawMessage
	SortAt    time.Time
}

// derivePost extracts display fields from a validated post payload. SortAt
// falls back to indexedAt when createdAt does not parse.
func derivePost(payload []byte, indexedAt time.Time) (postFields, error) {
	var rec postRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return postFields{}, err
	}

	f := postFields{Text: rec.Text, SortAt: indexedAt}
	if t, err := time.Parse(time.RFC3339Nano, rec.CreatedAt); err == nil {
		f.SortAt = t
	}

	embed := bytes.TrimSpace(rec.Embed)
	if len(embed) == 0 || bytes.Equal(embed, []byte("null")) {
		return f, nil
	}
	f.HasEmbed = true
	f.EmbedData = append(json.RawMessage(nil), embed...)

	var h embedHeader
	if err := json.Unmarshal(embed, &h); err == nil {
		switch h.Type {
		case embedImages:
			f.HasImages = true
		case embedRecordWithMedia:
			f.HasImages = h.Media != nil && h.Media.Type == embedImages
		}
	}
	return f, nil
}

func deriveProfile(payload []byte) (profileRecord, error) {
	var rec profileRecord
	err := json.Unmarshal(payload, &rec)
	return rec, err
}

func (p profileRecord) avatarCID() string {
	if p.Avatar == nil {
		return ""
	}
	return p.Avatar.Ref.Link
}
