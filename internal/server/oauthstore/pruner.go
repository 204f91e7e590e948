package oauthstore

import (
	"context"
	"time"

	"github.com/tumbsky/tumbsky/internal/logging"
)

type expirer interface {
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// Pruner periodically deletes expired login state.
type Pruner struct {
	store    expirer
	interval time.Duration
	log      logging.Logger
	now      func() time.Time
}

const DefaultPruneInterval = 5 * time.Minute

// NewPruner falls back to DefaultPruneInterval when interval is not positive.
func NewPruner(store expirer, interval time.Duration, log logging.Logger) *Pruner {
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	return &Pruner{store: store, interval: interval, log: log.With("module", "oauth-pruner"), now: time.Now}
}

// Run prunes once immediately and then on every tick until ctx is done.
func (p *Pruner) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.pruneOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Pruner) pruneOnce(ctx context.Context) {
	n, err := p.store.PruneExpired(ctx, p.now())
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn(ctx, "prune expired oauth state failed", "error", err)
		}
		return
	}
	if n > 0 {
		p.log.Debug(ctx, "pruned expired oauth state", "count", n)
	}
}
