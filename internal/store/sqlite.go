package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It exists for
// local development and tests; the conditional-update semantics match
// the Postgres store exactly.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scrape_queue (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL DEFAULT 'pending',
	country       TEXT NOT NULL,
	city          TEXT NOT NULL,
	state         TEXT NOT NULL DEFAULT '',
	postal_code   TEXT NOT NULL DEFAULT '',
	business_type TEXT NOT NULL,
	record_limit  INTEGER NOT NULL,
	skip_times    INTEGER NOT NULL DEFAULT 1,
	error         TEXT,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	completed_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_scrape_queue_status ON scrape_queue(status);
CREATE INDEX IF NOT EXISTS idx_scrape_queue_status_created ON scrape_queue(status, created_at);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnqueueJob(ctx context.Context, params model.JobParams) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	skipTimes := params.SkipTimes
	if skipTimes < 1 {
		skipTimes = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_queue (id, status, country, city, state, postal_code, business_type, record_limit, skip_times, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(model.JobStatusPending), params.Country, params.City, params.State,
		params.PostalCode, params.BusinessType, params.RecordLimit, skipTimes, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: enqueue job")
	}

	return &model.Job{
		ID:           id,
		Status:       model.JobStatusPending,
		Country:      params.Country,
		City:         params.City,
		State:        params.State,
		PostalCode:   params.PostalCode,
		BusinessType: params.BusinessType,
		RecordLimit:  params.RecordLimit,
		SkipTimes:    skipTimes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM scrape_queue WHERE id = ?`,
		jobID,
	)
	job, err := scanSQLiteJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scrape_queue WHERE true`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) SelectOldestPending(ctx context.Context) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM scrape_queue WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1`,
	)
	job, err := scanSQLiteJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: select oldest pending")
	}
	return job, nil
}

func (s *SQLiteStore) ClaimJob(ctx context.Context, jobID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scrape_queue SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`,
		time.Now().UTC(), jobID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: claim job %s", jobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: claim rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, from, to model.JobStatus, fields UpdateFields) error {
	if !model.CanTransition(from, to) {
		return eris.Errorf("sqlite: illegal transition %s -> %s for job %s", from, to, jobID)
	}

	var errMsg any
	if fields.Error != "" {
		errMsg = fields.Error
	}
	var completedAt any
	if fields.CompletedAt != nil {
		completedAt = *fields.CompletedAt
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scrape_queue SET status = ?, error = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(to), errMsg, completedAt, time.Now().UTC(), jobID, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: update rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrStatusConflict, "job %s expected %s", jobID, from)
	}
	return nil
}

func (s *SQLiteStore) ReapStale(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scrape_queue SET status = 'failed', error = ?, updated_at = ?
		 WHERE status = 'running' AND updated_at < ?`,
		StaleJobError, time.Now().UTC(), olderThan,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reap stale")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reap rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context, key string) (*model.Settings, error) {
	var valueJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`,
		key,
	).Scan(&valueJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Errorf("sqlite: settings %q not found", key)
		}
		return nil, eris.Wrapf(err, "sqlite: get settings %s", key)
	}

	var settings model.Settings
	if err := json.Unmarshal([]byte(valueJSON), &settings); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal settings")
	}
	return &settings, nil
}

func (s *SQLiteStore) PutSettings(ctx context.Context, key string, settings *model.Settings) error {
	valueJSON, err := json.Marshal(settings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal settings")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(valueJSON), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: put settings")
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*model.Job, error) {
	var j model.Job
	var status string
	var errMsg sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(&j.ID, &status, &j.Country, &j.City, &j.State, &j.PostalCode,
		&j.BusinessType, &j.RecordLimit, &j.SkipTimes, &errMsg,
		&j.CreatedAt, &j.UpdatedAt, &completedAt); err != nil {
		return nil, err
	}

	st, err := model.ParseJobStatus(status)
	if err != nil {
		return nil, err
	}
	j.Status = st
	if errMsg.Valid {
		j.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

// Ensure both backends satisfy the interface.
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
