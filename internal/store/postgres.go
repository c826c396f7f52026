package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/BlendBerisha/businessscrapper/internal/db"
	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot queue operations.
var preparedStatements = map[string]string{
	"select_oldest_pending": `SELECT id, status, country, city, state, postal_code, business_type, record_limit, skip_times, error, created_at, updated_at, completed_at FROM scrape_queue WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1`,
	"claim_job":             `UPDATE scrape_queue SET status = 'running', updated_at = $1 WHERE id = $2 AND status = 'pending'`,
	"reap_stale":            `UPDATE scrape_queue SET status = 'failed', error = $1, updated_at = $2 WHERE status = 'running' AND updated_at < $3`,
	"get_settings":          `SELECT value FROM settings WHERE key = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scrape_queue (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status        TEXT NOT NULL DEFAULT 'pending',
	country       TEXT NOT NULL,
	city          TEXT NOT NULL,
	state         TEXT NOT NULL DEFAULT '',
	postal_code   TEXT NOT NULL DEFAULT '',
	business_type TEXT NOT NULL,
	record_limit  INTEGER NOT NULL,
	skip_times    INTEGER NOT NULL DEFAULT 1,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_scrape_queue_status ON scrape_queue(status);
CREATE INDEX IF NOT EXISTS idx_scrape_queue_status_created ON scrape_queue(status, created_at);
CREATE INDEX IF NOT EXISTS idx_scrape_queue_status_updated ON scrape_queue(status, updated_at);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const jobColumns = `id, status, country, city, state, postal_code, business_type, record_limit, skip_times, error, created_at, updated_at, completed_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) EnqueueJob(ctx context.Context, params model.JobParams) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	skipTimes := params.SkipTimes
	if skipTimes < 1 {
		skipTimes = 1
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_queue (id, status, country, city, state, postal_code, business_type, record_limit, skip_times, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, string(model.JobStatusPending), params.Country, params.City, params.State,
		params.PostalCode, params.BusinessType, params.RecordLimit, skipTimes, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: enqueue job")
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

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scrape_queue WHERE id = $1`,
		jobID,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scrape_queue WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) SelectOldestPending(ctx context.Context) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scrape_queue WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1`,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: select oldest pending")
	}
	return job, nil
}

func (s *PostgresStore) ClaimJob(ctx context.Context, jobID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scrape_queue SET status = 'running', updated_at = $1 WHERE id = $2 AND status = 'pending'`,
		time.Now().UTC(), jobID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: claim job %s", jobID)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, from, to model.JobStatus, fields UpdateFields) error {
	if !model.CanTransition(from, to) {
		return eris.Errorf("postgres: illegal transition %s -> %s for job %s", from, to, jobID)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE scrape_queue SET status = $1, error = NULLIF($2, ''), completed_at = $3, updated_at = $4
		 WHERE id = $5 AND status = $6`,
		string(to), fields.Error, fields.CompletedAt, time.Now().UTC(), jobID, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrStatusConflict, "job %s expected %s", jobID, from)
	}
	return nil
}

func (s *PostgresStore) ReapStale(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scrape_queue SET status = 'failed', error = $1, updated_at = $2
		 WHERE status = 'running' AND updated_at < $3`,
		StaleJobError, time.Now().UTC(), olderThan,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reap stale")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) GetSettings(ctx context.Context, key string) (*model.Settings, error) {
	var valueJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`,
		key,
	).Scan(&valueJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: settings %q not found", key)
		}
		return nil, eris.Wrapf(err, "postgres: get settings %s", key)
	}

	var settings model.Settings
	if err := json.Unmarshal(valueJSON, &settings); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal settings")
	}
	return &settings, nil
}

func (s *PostgresStore) PutSettings(ctx context.Context, key string, settings *model.Settings) error {
	valueJSON, err := json.Marshal(settings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal settings")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3`,
		key, valueJSON, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: put settings")
}

// scanJob reads one job row. The error column is nullable; completed_at
// likewise.
func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var status string
	var errMsg *string

	if err := row.Scan(&j.ID, &status, &j.Country, &j.City, &j.State, &j.PostalCode,
		&j.BusinessType, &j.RecordLimit, &j.SkipTimes, &errMsg,
		&j.CreatedAt, &j.UpdatedAt, &j.CompletedAt); err != nil {
		return nil, err
	}

	st, err := model.ParseJobStatus(status)
	if err != nil {
		return nil, err
	}
	j.Status = st
	if errMsg != nil {
		j.Error = *errMsg
	}
	return &j, nil
}
