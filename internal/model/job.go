// Package model defines the core domain types for the scrape-job queue
// processor: jobs, provider lead records, verification results, and the
// enriched output projection.
//
// Job status graph:
//
//	pending ──► running ──► completed
//	                 │
//	                 ├─────► failed
//	                 └─────► no_results
//
// completed, failed and no_results are terminal states. A job never
// returns to pending.
package model

import (
	"fmt"
	"time"
)

// JobStatus represents the current state of a scrape job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusNoResults JobStatus = "no_results"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending: {JobStatusRunning},
	JobStatusRunning: {JobStatusCompleted, JobStatusFailed, JobStatusNoResults},
	// completed, failed and no_results are terminal — no outgoing transitions
}

// ParseJobStatus converts a raw string to a JobStatus, returning an error
// for unknown values.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	switch st {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusNoResults:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// CanTransition returns true when moving from → to is permitted by the
// state machine.
func CanTransition(from, to JobStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when the status has no outgoing transitions.
func (s JobStatus) IsTerminal() bool {
	_, ok := validTransitions[s]
	return !ok
}

// Job is one entry in the scrape queue. Location parameters and the
// business type are forwarded to the lead provider; RecordLimit and
// SkipTimes drive pagination (skip = (skip_times - 1) * limit).
type Job struct {
	ID           string     `json:"id"`
	Status       JobStatus  `json:"status"`
	Country      string     `json:"country"`
	City         string     `json:"city"`
	State        string     `json:"state,omitempty"`
	PostalCode   string     `json:"postal_code,omitempty"`
	BusinessType string     `json:"business_type"`
	RecordLimit  int        `json:"record_limit"`
	SkipTimes    int        `json:"skip_times"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobParams holds the user-supplied fields for a new job.
type JobParams struct {
	Country      string `json:"country"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	BusinessType string `json:"business_type"`
	RecordLimit  int    `json:"record_limit"`
	SkipTimes    int    `json:"skip_times,omitempty"`
}
