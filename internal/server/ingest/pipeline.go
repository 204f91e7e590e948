package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tumbsky/tumbsky/internal/dbx"
	"github.com/tumbsky/tumbsky/internal/logging"
	"github.com/tumbsky/tumbsky/internal/server/models"
	"github.com/tumbsky/tumbsky/internal/server/repositories/repomanager"
)

// Identity statuses that remove an account's content.
const statusDeleted = "deleted"

// Pipeline applies stream events to the store. Every handler is idempotent so
// a redelivered event converges to the same rows.
type Pipeline struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	validator   *Validator
	log         logging.Logger
	now         func() time.Time
}

func NewPipeline(db *sql.DB, m repomanager.RepositoryManager, v *Validator, log logging.Logger) *Pipeline {
	return &Pipeline{
		db:          db,
		repomanager: m,
		validator:   v,
		log:         log.With("module", "ingest"),
		now:         time.Now,
	}
}

// Run consumes stream until it fails. Each event is acked only after it has
// been applied; a store error stops the loop before the ack.
func (p *Pipeline) Run(ctx context.Context, stream Stream) error {
	for {
		d, err := stream.Next(ctx)
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if err := p.Handle(ctx, d.Event); err != nil {
			return fmt.Errorf("apply event %d: %w", d.Event.ID, err)
		}
		if d.Ack == nil {
			continue
		}
		if err := d.Ack(ctx); err != nil {
			return fmt.Errorf("ack event %d: %w", d.Event.ID, err)
		}
	}
}

// Handle applies a single event. Events that are not tracked or carry an
// invalid payload are skipped with a nil error.
func (p *Pipeline) Handle(ctx context.Context, ev Event) error {
	_, err := p.Apply(ctx, ev)
	return err
}

// Apply is Handle that also reports whether the event reached the store.
func (p *Pipeline) Apply(ctx context.Context, ev Event) (bool, error) {
	switch ev.Type {
	case TypeRecord:
		if ev.Record == nil {
			p.log.Warn(ctx, "record event without body", "id", ev.ID)
			return false, nil
		}
		return p.handleRecord(ctx, ev.ID, ev.Record)
	case TypeIdentity:
		if ev.Identity == nil {
			p.log.Warn(ctx, "identity event without body", "id", ev.ID)
			return false, nil
		}
		return p.handleIdentity(ctx, ev.Identity)
	default:
		p.log.Debug(ctx, "skipping event", "id", ev.ID, "type", ev.Type)
		return false, nil
	}
}

func (p *Pipeline) handleRecord(ctx context.Context, id uint64, r *RecordEvent) (bool, error) {
	if r.Collection != CollectionPost && r.Collection != CollectionProfile {
		return false, nil
	}

	registered, err := p.repomanager.Users(p.db).Exists(ctx, r.DID)
	if err != nil || !registered {
		return false, err
	}

	log := p.log.With("id", id, "did", r.DID, "collection", r.Collection, "rkey", r.RKey)

	switch r.Action {
	case ActionDelete:
		if r.Collection == CollectionPost {
			return true, p.repomanager.Posts(p.db).Delete(ctx, URI(r.DID, r.Collection, r.RKey))
		}
		if r.RKey != profileRKey {
			return false, nil
		}
		return true, p.repomanager.Profiles(p.db).Delete(ctx, r.DID)
	case ActionCreate, ActionUpdate:
	default:
		log.Warn(ctx, "unknown record action", "action", r.Action)
		return false, nil
	}

	if err := p.validator.Validate(r.Collection, r.Record); err != nil {
		log.Warn(ctx, "skipping invalid record", "error", err)
		return false, nil
	}

	if r.Collection == CollectionPost {
		return p.upsertPost(ctx, log, r)
	}
	return p.upsertProfile(ctx, log, r)
}

func (p *Pipeline) upsertPost(ctx context.Context, log logging.Logger, r *RecordEvent) (bool, error) {
	now := p.now()
	f, err := derivePost(r.Record, now)
	if err != nil {
		log.Warn(ctx, "skipping unreadable post", "error", err)
		return false, nil
	}

	post := &models.Post{
		URI:       URI(r.DID, r.Collection, r.RKey),
		UserDID:   r.DID,
		CID:       r.CID,
		RKey:      r.RKey,
		Record:    r.Record,
		Text:      f.Text,
		HasImages: f.HasImages,
		HasEmbed:  f.HasEmbed,
		EmbedData: f.EmbedData,
		CreatedAt: f.SortAt,
		IndexedAt: now,
	}
	if err := p.repomanager.Posts(p.db).Upsert(ctx, post); err != nil {
		return false, err
	}
	log.Debug(ctx, "post stored", "uri", post.URI, "live", r.Live)
	return true, nil
}

func (p *Pipeline) upsertProfile(ctx context.Context, log logging.Logger, r *RecordEvent) (bool, error) {
	if r.RKey != profileRKey {
		return false, nil
	}
	rec, err := deriveProfile(r.Record)
	if err != nil {
		log.Warn(ctx, "skipping unreadable profile", "error", err)
		return false, nil
	}
	err = p.repomanager.Profiles(p.db).Upsert(ctx, &models.Profile{
		DID:         r.DID,
		DisplayName: rec.DisplayName,
		AvatarCID:   rec.avatarCID(),
		Description: rec.Description,
		UpdatedAt:   p.now(),
	})
	return err == nil, err
}

func (p *Pipeline) handleIdentity(ctx context.Context, ev *IdentityEvent) (bool, error) {
	registered, err := p.repomanager.Users(p.db).Exists(ctx, ev.DID)
	if err != nil || !registered {
		return false, err
	}

	if !ev.IsActive && ev.Status == statusDeleted {
		err := p.purge(ctx, ev.DID)
		return err == nil, err
	}
	if ev.Handle == "" {
		return false, nil
	}

	err = p.repomanager.Users(p.db).UpdateHandle(ctx, ev.DID, strings.ToLower(ev.Handle), p.now())
	return err == nil, err
}

// purge removes the content of a deleted account. The user row stays so a
// later login keeps its custom CSS.
func (p *Pipeline) purge(ctx context.Context, did string) error {
	var n int64
	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if n, err = p.repomanager.Posts(tx).DeleteByOwner(ctx, did); err != nil {
			return err
		}
		return p.repomanager.Profiles(tx).Delete(ctx, did)
	})
	if err != nil {
		return err
	}
	p.log.Info(ctx, "account content purged", "did", did, "posts", n)
	return nil
}
