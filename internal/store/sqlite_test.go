package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_QueueLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := s.EnqueueJob(ctx, model.JobParams{
		Country:      "GB",
		City:         "London",
		BusinessType: "plumber",
		RecordLimit:  50,
	})
	require.NoError(t, err)

	oldest, err := s.SelectOldestPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.Equal(t, job.ID, oldest.ID)

	claimed, err := s.ClaimJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim loses: the job is no longer pending.
	claimed, err = s.ClaimJob(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	now := time.Now().UTC()
	err = s.UpdateJobStatus(ctx, job.ID, model.JobStatusRunning, model.JobStatusCompleted,
		UpdateFields{CompletedAt: &now})
	require.NoError(t, err)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	// Terminal: no further transitions.
	err = s.UpdateJobStatus(ctx, job.ID, model.JobStatusCompleted, model.JobStatusRunning, UpdateFields{})
	assert.Error(t, err)
}

func TestSQLiteStore_SelectOldestPending_Order(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := s.EnqueueJob(ctx, model.JobParams{Country: "GB", City: "Leeds", BusinessType: "cafe", RecordLimit: 10})
	require.NoError(t, err)

	// A later enqueue must not displace the older job.
	time.Sleep(5 * time.Millisecond)
	_, err = s.EnqueueJob(ctx, model.JobParams{Country: "GB", City: "York", BusinessType: "cafe", RecordLimit: 10})
	require.NoError(t, err)

	oldest, err := s.SelectOldestPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.Equal(t, first.ID, oldest.ID)
}

func TestSQLiteStore_ReapStale(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := s.EnqueueJob(ctx, model.JobParams{Country: "GB", City: "Bath", BusinessType: "spa", RecordLimit: 10})
	require.NoError(t, err)
	claimed, err := s.ClaimJob(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	// Not yet stale.
	n, err := s.ReapStale(ctx, time.Now().UTC().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// A cutoff in the future makes the running job stale.
	n, err = s.ReapStale(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, StaleJobError, got.Error)
}

func TestSQLiteStore_Settings_RoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.GetSettings(ctx, "scraperSettings")
	require.Error(t, err)

	in := &model.Settings{TargetronAPIKey: "tk", MillionVerifierAPIKey: "mk"}
	require.NoError(t, s.PutSettings(ctx, "scraperSettings", in))

	out, err := s.GetSettings(ctx, "scraperSettings")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Upsert overwrites.
	in.TargetronAPIKey = "tk2"
	require.NoError(t, s.PutSettings(ctx, "scraperSettings", in))
	out, err = s.GetSettings(ctx, "scraperSettings")
	require.NoError(t, err)
	assert.Equal(t, "tk2", out.TargetronAPIKey)
}
