package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/tumbsky/tumbsky/internal/logging"
)

// Runner keeps one subscription alive, redialing with capped exponential
// backoff whenever the pipeline stops. A connection that acked at least one
// event resets the backoff.
type Runner struct {
	dialer     Dialer
	pipeline   *Pipeline
	minBackoff time.Duration
	maxBackoff time.Duration
	log        logging.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewRunner(d Dialer, p *Pipeline, minBackoff, maxBackoff time.Duration, log logging.Logger) *Runner {
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff < minBackoff {
		maxBackoff = minBackoff
	}
	return &Runner{
		dialer:     d,
		pipeline:   p,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		log:        log.With("module", "ingest-runner"),
		sleep:      sleepCtx,
	}
}

func (r *Runner) backoff() retry.Backoff {
	b := retry.NewExponential(r.minBackoff)
	b = retry.WithCappedDuration(r.maxBackoff, b)
	return retry.WithJitterPercent(10, b)
}

// Run returns nil once ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	b := r.backoff()
	for {
		acked, err := r.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrBadTapURL) {
			return err
		}
		if acked > 0 {
			b = r.backoff()
		}

		wait, stop := b.Next()
		if stop {
			return err
		}
		if err := r.sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// runOnce returns how many events the connection acked before it stopped.
func (r *Runner) runOnce(ctx context.Context) (int, error) {
	log := r.log.With("run", uuid.NewString())

	stream, err := r.dialer.Dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn(ctx, "tap connection failed", "error", err)
		}
		return 0, err
	}
	defer stream.Close()

	counted := &ackCounter{Stream: stream}
	log.Info(ctx, "ingestion started")
	err = r.pipeline.Run(ctx, counted)
	if ctx.Err() == nil {
		log.Warn(ctx, "ingestion stopped", "error", err, "acked", counted.acked)
	}
	return counted.acked, err
}

// ackCounter counts successful acks. Pipeline.Run drives it from one goroutine.
type ackCounter struct {
	Stream
	acked int
}

func (s *ackCounter) Next(ctx context.Context) (Delivery, error) {
	d, err := s.Stream.Next(ctx)
	if err != nil || d.Ack == nil {
		return d, err
	}
	ack := d.Ack
	d.Ack = func(ctx context.Context) error {
		if err := ack(ctx); err != nil {
			return err
		}
		s.acked++
		return nil
	}
	return d, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
