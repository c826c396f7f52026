// Package store persists the scrape queue and the provider settings.
//
// Claiming and reaping are each expressed as a single conditional UPDATE
// so that two concurrent pollers can never both win the same job; this is
// the only concurrency-safety mechanism in the system and must be
// preserved by every implementation.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// StaleJobError is the error message recorded on jobs force-failed by
// the stale reaper.
const StaleJobError = "Timed out after 30m"

// ErrStatusConflict is returned when a conditional status update matched
// no row, i.e. the job was not in the expected status (or does not exist).
var ErrStatusConflict = eris.New("store: job not in expected status")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// UpdateFields carries the optional columns written alongside a status
// transition.
type UpdateFields struct {
	Error       string
	CompletedAt *time.Time
}

// Store defines the persistence interface for the scrape-job queue and
// the settings table.
type Store interface {
	// Queue
	EnqueueJob(ctx context.Context, params model.JobParams) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)

	// SelectOldestPending returns the oldest pending job, or nil when the
	// queue is empty.
	SelectOldestPending(ctx context.Context) (*model.Job, error)

	// ClaimJob transitions a job pending → running with a single
	// conditional update. It returns false when another poller won the
	// race (the job is no longer pending).
	ClaimJob(ctx context.Context, jobID string) (bool, error)

	// UpdateJobStatus performs a conditional status transition. Illegal
	// transitions are rejected before any SQL runs; a transition whose
	// precondition no longer holds returns ErrStatusConflict.
	UpdateJobStatus(ctx context.Context, jobID string, from, to model.JobStatus, fields UpdateFields) error

	// ReapStale force-fails every running job not touched since olderThan
	// and returns how many were reaped.
	ReapStale(ctx context.Context, olderThan time.Time) (int, error)

	// Settings
	GetSettings(ctx context.Context, key string) (*model.Settings, error)
	PutSettings(ctx context.Context, key string, settings *model.Settings) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
