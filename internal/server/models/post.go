package models

import (
	"encoding/json"
	"time"
)

// Post is an ingested app.bsky.feed.post record.
//
// CreatedAt is the sort timestamp: the record's declared creation time, or the
// ingestion time when that could not be parsed.
type Post struct {
	URI       string
	UserDID   string
	CID       string
	RKey      string
	Record    json.RawMessage
	Text      string
	HasImages bool
	HasEmbed  bool
	EmbedData json.RawMessage
	CreatedAt time.Time
	IndexedAt time.Time
}
