// Package ingest tails the Tap ledger stream and applies record events for
// registered users to the local store.
package ingest

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	CollectionPost    = "app.bsky.feed.post"
	CollectionProfile = "app.bsky.actor.profile"

	profileRKey = "self"
)

// Event types.
const (
	TypeRecord   = "record"
	TypeIdentity = "identity"
)

// Record actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is one frame of the stream. Exactly one of Record and Identity is set
// for known types.
type Event struct {
	ID       uint64         `json:"id"`
	Type     string         `json:"type"`
	Record   *RecordEvent   `json:"record,omitempty"`
	Identity *IdentityEvent `json:"identity,omitempty"`
}

type RecordEvent struct {
	DID        string          `json:"did"`
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	Action     string          `json:"action"`
	CID        string          `json:"cid,omitempty"`
	Rev        string          `json:"rev,omitempty"`
	Live       bool            `json:"live"`
	Record     json.RawMessage `json:"record,omitempty"`
}

type IdentityEvent struct {
	DID      string `json:"did"`
	Handle   string `json:"handle"`
	IsActive bool   `json:"is_active"`
	Status   string `json:"status,omitempty"`
}

// Delivery pairs an event with its acknowledgment. Ack must return before the
// next Delivery is requested.
type Delivery struct {
	Event Event
	Ack   func(ctx context.Context) error
}

// Stream is one connection's ordered event sequence.
type Stream interface {
	Next(ctx context.Context) (Delivery, error)
	Close() error
}

// Dialer opens a new Stream; the source resumes after the last acked event.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}

// URI builds the at:// resource identifier of a record.
func URI(did, collection, rkey string) string {
	return "at://" + did + "/" + collection + "/" + rkey
}

// ParseURI splits an at:// record URI into its parts.
func ParseURI(uri string) (did, collection, rkey string, ok bool) {
	rest, found := strings.CutPrefix(uri, "at://")
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
