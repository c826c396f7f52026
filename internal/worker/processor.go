// Package worker runs claimed scrape jobs end to end: fetch, verify,
// transform, export, upload, and record the terminal status.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/BlendBerisha/businessscrapper/internal/enrich"
	"github.com/BlendBerisha/businessscrapper/internal/export"
	"github.com/BlendBerisha/businessscrapper/internal/model"
	"github.com/BlendBerisha/businessscrapper/internal/queue"
	"github.com/BlendBerisha/businessscrapper/internal/storage"
	"github.com/BlendBerisha/businessscrapper/internal/store"
	"github.com/BlendBerisha/businessscrapper/internal/transform"
	"github.com/BlendBerisha/businessscrapper/internal/verify"
	"github.com/BlendBerisha/businessscrapper/pkg/instantly"
	"github.com/BlendBerisha/businessscrapper/pkg/millionverifier"
	"github.com/BlendBerisha/businessscrapper/pkg/targetron"
)

// ErrNoResults signals that the full fetch returned an empty data page.
// The job ends as no_results, not failed. A zero estimate is a plain
// failure instead: the provider promised nothing, so nothing was
// fetched.
var ErrNoResults = eris.New("no results for query")

// Options configures a Processor.
type Options struct {
	SettingsKey   string
	FetchAttempts int
	RetryBase     time.Duration
	Pacing        time.Duration
	StaleAfter    time.Duration

	// CampaignEnabled turns on the optional post-export lead push.
	CampaignEnabled bool

	// Client factories; API keys arrive at run time from settings.
	NewLeadClient   func(apiKey string) targetron.Client
	NewVerifyClient func(apiKey string) millionverifier.Client
	NewCampaignSink func(creds instantly.Credentials) CampaignSink
}

// CampaignSink receives finished leads. Satisfied by instantly.Client.
type CampaignSink interface {
	AddLeadsFromRecords(ctx context.Context, records []model.EnrichedRecord) (ok, failed []string)
}

// Processor drains the scrape queue one job at a time.
type Processor struct {
	store     store.Store
	claimer   *queue.Claimer
	uploader  storage.Uploader
	areaCodes enrich.AreaCodeMap
	opts      Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates a Processor. areaCodes may be nil when the
// enrichment workbook is unavailable; output rows then carry blank
// area codes.
func NewProcessor(s store.Store, uploader storage.Uploader, areaCodes enrich.AreaCodeMap, opts Options) *Processor {
	if opts.SettingsKey == "" {
		opts.SettingsKey = "scraperSettings"
	}
	if opts.FetchAttempts <= 0 {
		opts.FetchAttempts = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Second
	}
	if opts.Pacing <= 0 {
		opts.Pacing = verify.DefaultPacing
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = queue.DefaultStaleAfter
	}
	if opts.NewLeadClient == nil {
		opts.NewLeadClient = func(apiKey string) targetron.Client {
			return targetron.NewClient(apiKey)
		}
	}
	if opts.NewVerifyClient == nil {
		opts.NewVerifyClient = func(apiKey string) millionverifier.Client {
			return millionverifier.NewClient(apiKey)
		}
	}
	if opts.NewCampaignSink == nil {
		opts.NewCampaignSink = func(creds instantly.Credentials) CampaignSink {
			return instantly.NewClient(creds)
		}
	}

	return &Processor{
		store:     s,
		claimer:   queue.NewClaimer(s, queue.WithStaleAfter(opts.StaleAfter)),
		uploader:  uploader,
		areaCodes: areaCodes,
		opts:      opts,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// RunOnce claims and fully processes one job. It reports whether a job
// was handled; (false, nil) means the queue was empty. Job-level
// failures are recorded on the job and do not surface as errors; only
// infrastructure problems (store access, cancellation) do.
func (p *Processor) RunOnce(ctx context.Context) (bool, error) {
	job, err := p.claimer.ClaimNext(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := zap.L().With(zap.String("job_id", job.ID))

	settings, err := p.store.GetSettings(ctx, p.opts.SettingsKey)
	if err != nil {
		return true, p.failJob(ctx, job, eris.Wrap(err, "load settings"))
	}
	leadKey, err := settings.RequireTargetron()
	if err != nil {
		return true, p.failJob(ctx, job, err)
	}

	records, err := p.fetchBusinessData(ctx, p.opts.NewLeadClient(leadKey), job)
	if errors.Is(err, ErrNoResults) {
		log.Info("job finished with no results")
		return true, p.finishJob(ctx, job, model.JobStatusNoResults, store.UpdateFields{})
	}
	if err != nil {
		return true, p.failJob(ctx, job, err)
	}
	log.Info("fetched records", zap.Int("count", len(records)))

	verifyKey, err := settings.RequireMillionVerifier()
	if err != nil {
		return true, p.failJob(ctx, job, err)
	}
	verifier := verify.NewVerifier(p.opts.NewVerifyClient(verifyKey), verify.NewIntervalPacer(p.opts.Pacing))
	if err := verifier.VerifyAll(ctx, records); err != nil {
		// Cancellation mid-verify: leave the job running for the reaper.
		return true, err
	}

	withEmail, withoutEmail := transform.New(p.areaCodes).Run(records)

	artifact, err := export.BuildWorkbook(withEmail, withoutEmail)
	if err != nil {
		return true, p.failJob(ctx, job, err)
	}
	name := export.ArtifactName(p.now())
	if err := p.uploader.Upload(ctx, name, artifact, export.ContentType); err != nil {
		return true, p.failJob(ctx, job, err)
	}
	log.Info("uploaded artifact", zap.String("name", name))

	if p.opts.CampaignEnabled {
		p.pushCampaign(ctx, settings, withEmail)
	}

	completed := p.now().UTC()
	return true, p.finishJob(ctx, job, model.JobStatusCompleted, store.UpdateFields{CompletedAt: &completed})
}

// fetchBusinessData runs the two-phase provider fetch. The estimate is
// never retried; the full fetch retries transient failures with a
// linearly growing backoff.
func (p *Processor) fetchBusinessData(ctx context.Context, client targetron.Client, job *model.Job) ([]model.RawRecord, error) {
	q := targetron.Query{
		Country:      job.Country,
		City:         job.City,
		State:        job.State,
		PostalCode:   job.PostalCode,
		BusinessType: job.BusinessType,
	}

	total, err := client.Estimate(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "estimate")
	}
	if total == 0 {
		return nil, eris.Errorf("estimate failed or no data found (total %d)", total)
	}

	skipTimes := job.SkipTimes
	if skipTimes < 1 {
		skipTimes = 1
	}
	skip := (skipTimes - 1) * job.RecordLimit

	var records []model.RawRecord
	for attempt := 1; ; attempt++ {
		records, err = client.FetchPlaces(ctx, q, job.RecordLimit, skip)
		if err == nil {
			break
		}
		if !targetron.IsTransient(err) || attempt >= p.opts.FetchAttempts {
			return nil, eris.Wrap(err, "fetch places")
		}

		backoff := time.Duration(attempt) * p.opts.RetryBase
		zap.L().Warn("transient fetch failure, retrying",
			zap.String("job_id", job.ID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)
		if err := p.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	if len(records) == 0 {
		return nil, ErrNoResults
	}
	return records, nil
}

// pushCampaign sends emailed leads to the configured campaign. Push
// problems never change the job outcome.
func (p *Processor) pushCampaign(ctx context.Context, settings *model.Settings, records []model.EnrichedRecord) {
	if settings.InstantlyAPIKey == "" {
		zap.L().Warn("campaign push enabled but no instantly credentials in settings")
		return
	}
	sink := p.opts.NewCampaignSink(instantly.Credentials{
		APIKey:     settings.InstantlyAPIKey,
		ListID:     settings.InstantlyListID,
		CampaignID: settings.InstantlyCampaignID,
	})
	sink.AddLeadsFromRecords(ctx, records)
}

// failJob marks the job failed with the cause as its operator-visible
// error message.
func (p *Processor) failJob(ctx context.Context, job *model.Job, cause error) error {
	zap.L().Error("job failed", zap.String("job_id", job.ID), zap.Error(cause))
	return p.finishJob(ctx, job, model.JobStatusFailed, store.UpdateFields{Error: cause.Error()})
}

func (p *Processor) finishJob(ctx context.Context, job *model.Job, status model.JobStatus, fields store.UpdateFields) error {
	if err := p.store.UpdateJobStatus(ctx, job.ID, model.JobStatusRunning, status, fields); err != nil {
		return eris.Wrapf(err, "worker: finish job %s as %s", job.ID, status)
	}
	job.Status = status
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
