// Package queue selects and claims scrape jobs from the durable queue.
package queue

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/BlendBerisha/businessscrapper/internal/model"
	"github.com/BlendBerisha/businessscrapper/internal/store"
)

// DefaultStaleAfter is the inactivity window after which a running job
// is presumed abandoned and force-failed.
const DefaultStaleAfter = 30 * time.Minute

// Claimer picks the next eligible job and reaps stale in-flight jobs.
type Claimer struct {
	store      store.Store
	staleAfter time.Duration
	now        func() time.Time
}

// Option configures a Claimer.
type Option func(*Claimer)

// WithStaleAfter overrides the stale-job reap threshold.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Claimer) {
		c.staleAfter = d
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Claimer) {
		c.now = now
	}
}

// NewClaimer creates a Claimer over the given store.
func NewClaimer(s store.Store, opts ...Option) *Claimer {
	c := &Claimer{
		store:      s,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClaimNext reaps stale running jobs, then atomically claims the oldest
// pending job. It returns nil when the queue is empty or another poller
// won the claim race; the next cycle retries.
//
// Reaping runs on every cycle, found job or not, so stuck jobs are
// released even while the queue idles.
func (c *Claimer) ClaimNext(ctx context.Context) (*model.Job, error) {
	reaped, err := c.store.ReapStale(ctx, c.now().UTC().Add(-c.staleAfter))
	if err != nil {
		return nil, eris.Wrap(err, "claimer: reap stale")
	}
	if reaped > 0 {
		zap.L().Warn("reaped stale jobs", zap.Int("count", reaped))
	}

	job, err := c.store.SelectOldestPending(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "claimer: select pending")
	}
	if job == nil {
		return nil, nil
	}

	claimed, err := c.store.ClaimJob(ctx, job.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "claimer: claim job %s", job.ID)
	}
	if !claimed {
		zap.L().Debug("lost claim race", zap.String("job_id", job.ID))
		return nil, nil
	}

	job.Status = model.JobStatusRunning
	zap.L().Info("claimed job",
		zap.String("job_id", job.ID),
		zap.String("city", job.City),
		zap.String("business_type", job.BusinessType),
	)
	return job, nil
}
