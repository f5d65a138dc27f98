// Package postgres provides Postgres-backed persistence for jobs and run
// logs.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobradar/harvester/internal/scrape"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements scrape.JobStore and scrape.RunLogStore over one pool.
type Store struct {
	pool querier
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing).
func NewWithPool(pool querier) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the jobs and scrape_logs tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createJobsTable, createScrapeLogsTable} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

const createJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
	external_id     TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	company         TEXT NOT NULL,
	location        TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT 'other',
	level           TEXT NOT NULL DEFAULT 'mid',
	employment_type TEXT NOT NULL DEFAULT 'full-time',
	remote          BOOLEAN NOT NULL DEFAULT FALSE,
	url             TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	salary_min      INTEGER NOT NULL DEFAULT 0,
	salary_max      INTEGER NOT NULL DEFAULT 0,
	first_seen      TIMESTAMPTZ NOT NULL,
	last_seen       TIMESTAMPTZ NOT NULL,
	active          BOOLEAN NOT NULL DEFAULT TRUE
)`

const createScrapeLogsTable = `
CREATE TABLE IF NOT EXISTS scrape_logs (
	id             BIGSERIAL PRIMARY KEY,
	run_id         TEXT NOT NULL,
	target         TEXT NOT NULL,
	status         TEXT NOT NULL,
	listings_found INTEGER NOT NULL DEFAULT 0,
	pages_fetched  INTEGER NOT NULL DEFAULT 0,
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ NOT NULL,
	error_text     TEXT NOT NULL DEFAULT ''
)`

const upsertJob = `
INSERT INTO jobs (
	external_id, title, company, location, category, level,
	employment_type, remote, url, description, salary_min, salary_max,
	first_seen, last_seen, active
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13,TRUE
)
ON CONFLICT (external_id) DO UPDATE SET
	title           = EXCLUDED.title,
	location        = EXCLUDED.location,
	category        = EXCLUDED.category,
	level           = EXCLUDED.level,
	employment_type = EXCLUDED.employment_type,
	remote          = EXCLUDED.remote,
	url             = EXCLUDED.url,
	description     = EXCLUDED.description,
	salary_min      = EXCLUDED.salary_min,
	salary_max      = EXCLUDED.salary_max,
	last_seen       = EXCLUDED.last_seen,
	active          = TRUE
RETURNING (xmax = 0)`

// Upsert inserts or refreshes one job row. Company and first_seen stay as
// first written; every other field takes the incoming value. Returns true
// when a new row was created.
func (s *Store) Upsert(ctx context.Context, job scrape.NormalizedJob) (bool, error) {
	if s == nil || s.pool == nil {
		return false, fmt.Errorf("job store is not configured")
	}
	if job.ExternalID == "" {
		return false, fmt.Errorf("external id is required")
	}

	var created bool
	err := s.pool.QueryRow(ctx, upsertJob,
		job.ExternalID,
		job.Title,
		job.Company,
		job.Location,
		job.Category,
		job.Level,
		job.EmploymentType,
		job.Remote,
		job.URL,
		job.Description,
		job.SalaryMin,
		job.SalaryMax,
		job.DiscoveredAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert job: %w", err)
	}
	return created, nil
}

const insertRunLog = `
INSERT INTO scrape_logs (
	run_id, target, status, listings_found, pages_fetched,
	started_at, completed_at, error_text
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

// Append records one run log row.
func (s *Store) Append(ctx context.Context, entry scrape.RunLogEntry) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("run log store is not configured")
	}
	_, err := s.pool.Exec(ctx, insertRunLog,
		entry.RunID,
		entry.Target,
		entry.Status,
		entry.ListingsFound,
		entry.PagesFetched,
		entry.StartedAt,
		entry.CompletedAt,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

const selectRecentRuns = `
SELECT run_id, target, status, listings_found, pages_fetched,
       started_at, completed_at, error_text
FROM scrape_logs
ORDER BY completed_at DESC
LIMIT $1`

// Recent returns up to limit run log rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]scrape.RunLogEntry, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("run log store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, selectRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("query run log: %w", err)
	}
	defer rows.Close()

	var out []scrape.RunLogEntry
	for rows.Next() {
		var e scrape.RunLogEntry
		if err := rows.Scan(
			&e.RunID, &e.Target, &e.Status, &e.ListingsFound, &e.PagesFetched,
			&e.StartedAt, &e.CompletedAt, &e.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run log row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run log: %w", err)
	}
	return out, nil
}
