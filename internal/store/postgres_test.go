package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var jobRowColumns = []string{
	"id", "status", "country", "city", "state", "postal_code", "business_type",
	"record_limit", "skip_times", "error", "created_at", "updated_at", "completed_at",
}

func pendingJobRow(id string, created time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(jobRowColumns).AddRow(
		id, "pending", "GB", "London", "", "SW1A 1AA", "plumber",
		100, 1, (*string)(nil), created, created, (*time.Time)(nil),
	)
}

func TestPostgresStore_EnqueueJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO scrape_queue`).
		WithArgs(pgxmock.AnyArg(), "pending", "GB", "London", "", "SW1A 1AA", "plumber",
			100, 1, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job, err := s.EnqueueJob(context.Background(), model.JobParams{
		Country:      "GB",
		City:         "London",
		PostalCode:   "SW1A 1AA",
		BusinessType: "plumber",
		RecordLimit:  100,
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.SkipTimes) // defaulted
	assert.NotEmpty(t, job.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SelectOldestPending_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM scrape_queue WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1`).
		WillReturnError(pgx.ErrNoRows)

	job, err := s.SelectOldestPending(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SelectOldestPending_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Now().UTC().Add(-time.Hour)

	mock.ExpectQuery(`SELECT .+ FROM scrape_queue WHERE status = 'pending'`).
		WillReturnRows(pendingJobRow("job-1", created))

	job, err := s.SelectOldestPending(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Empty(t, job.Error)
	assert.Nil(t, job.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClaimJob_Won(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scrape_queue SET status = 'running', updated_at = \$1 WHERE id = \$2 AND status = 'pending'`).
		WithArgs(pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	claimed, err := s.ClaimJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClaimJob_LostRace(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Another poller already moved the job out of pending: zero rows match.
	mock.ExpectExec(`UPDATE scrape_queue SET status = 'running'`).
		WithArgs(pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	claimed, err := s.ClaimJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateJobStatus_IllegalTransition(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// completed is terminal: rejected before any SQL runs.
	err := s.UpdateJobStatus(context.Background(), "job-1",
		model.JobStatusCompleted, model.JobStatusRunning, UpdateFields{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal transition")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateJobStatus_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scrape_queue SET status = \$1`).
		WithArgs("completed", "", pgxmock.AnyArg(), pgxmock.AnyArg(), "job-1", "running").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateJobStatus(context.Background(), "job-1",
		model.JobStatusRunning, model.JobStatusCompleted, UpdateFields{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateJobStatus_FailedWithError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scrape_queue SET status = \$1`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), pgxmock.AnyArg(), "job-1", "running").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateJobStatus(context.Background(), "job-1",
		model.JobStatusRunning, model.JobStatusFailed, UpdateFields{Error: "boom"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReapStale(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cutoff := time.Now().UTC().Add(-30 * time.Minute)

	mock.ExpectExec(`UPDATE scrape_queue SET status = 'failed', error = \$1`).
		WithArgs(StaleJobError, pgxmock.AnyArg(), cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := s.ReapStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSettings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM settings WHERE key = \$1`).
		WithArgs("scraperSettings").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).
			AddRow([]byte(`{"targetronApiKey":"tk","millionVerifierApiKey":"mk"}`)))

	settings, err := s.GetSettings(context.Background(), "scraperSettings")
	require.NoError(t, err)
	assert.Equal(t, "tk", settings.TargetronAPIKey)
	assert.Equal(t, "mk", settings.MillionVerifierAPIKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSettings_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("scraperSettings").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSettings(context.Background(), "scraperSettings")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListJobs_FilterStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM scrape_queue WHERE true AND status = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("pending", 100).
		WillReturnRows(pendingJobRow("job-1", created))

	jobs, err := s.ListJobs(context.Background(), JobFilter{Status: model.JobStatusPending})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
