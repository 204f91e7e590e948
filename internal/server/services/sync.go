package services

import (
	"context"
	"fmt"

	"github.com/tumbsky/tumbsky/internal/logging"
	"github.com/tumbsky/tumbsky/internal/server/ingest"
	"github.com/tumbsky/tumbsky/internal/server/oauth"
	"github.com/tumbsky/tumbsky/internal/server/pds"
)

const DefaultSyncLimit = 50

// SyncService backfills an account's recent posts from its own server. The
// posts go through the ingestion pipeline, so they are stored exactly as if
// they had arrived on the stream.
type SyncService struct {
	pipeline *ingest.Pipeline
	limit    int
	log      logging.Logger
}

func NewSyncService(p *ingest.Pipeline, limit int, log logging.Logger) *SyncService {
	if limit <= 0 || limit > 100 {
		limit = DefaultSyncLimit
	}
	return &SyncService{pipeline: p, limit: limit, log: log.With("module", "sync")}
}

// Sync returns the number of posts stored. Reposts, other record types and
// posts the pipeline skips as invalid are not counted.
func (s *SyncService) Sync(ctx context.Context, sess oauth.Session) (int, error) {
	did := sess.DID()
	feed, err := pds.NewClient(sess.ServiceURL(), sess.HTTPClient()).AuthorFeed(ctx, did, s.limit)
	if err != nil {
		return 0, fmt.Errorf("fetch author feed: %w", err)
	}

	n := 0
	for _, item := range feed {
		if item.Post.Author.DID != did {
			continue
		}
		owner, collection, rkey, ok := ingest.ParseURI(item.Post.URI)
		if !ok || owner != did || collection != ingest.CollectionPost {
			continue
		}
		ev := ingest.Event{Type: ingest.TypeRecord, Record: &ingest.RecordEvent{
			DID:        did,
			Collection: collection,
			RKey:       rkey,
			Action:     ingest.ActionCreate,
			CID:        item.Post.CID,
			Record:     item.Post.Record,
		}}
		applied, err := s.pipeline.Apply(ctx, ev)
		if err != nil {
			return n, err
		}
		if applied {
			n++
		}
	}
	s.log.Info(ctx, "posts synced", "did", did, "count", n)
	return n, nil
}
