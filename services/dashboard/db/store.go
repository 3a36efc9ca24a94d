package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

// Store wraps database access helpers for the report run history.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS biodash;
CREATE TABLE IF NOT EXISTS biodash.report_runs (
    id           uuid PRIMARY KEY,
    species      text NOT NULL,
    filename     text NOT NULL DEFAULT '',
    record_count integer NOT NULL,
    inside_count integer NOT NULL,
    created_at   timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS biodash.report_area_counts (
    run_id    uuid NOT NULL REFERENCES biodash.report_runs(id) ON DELETE CASCADE,
    area_id   text NOT NULL,
    area_name text NOT NULL,
    count     integer NOT NULL,
    PRIMARY KEY (run_id, area_id)
);
`

// EnsureSchema creates the history tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Run is one rendered report.
type Run struct {
	ID          uuid.UUID `json:"id"`
	Species     string    `json:"species"`
	Filename    string    `json:"filename"`
	RecordCount int       `json:"record_count"`
	InsideCount int       `json:"inside_count"`
	CreatedAt   time.Time `json:"created_at"`
}

const insertRunSQL = `
    INSERT INTO biodash.report_runs (id, species, filename, record_count, inside_count, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
`

const insertAreaCountSQL = `
    INSERT INTO biodash.report_area_counts (run_id, area_id, area_name, count)
    VALUES ($1, $2, $3, $4)
`

// RecordRun stores a run and its per-area counts in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, counts []models.AreaCount) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertRunSQL,
		run.ID, run.Species, run.Filename, run.RecordCount, run.InsideCount, run.CreatedAt,
	); err != nil {
		return err
	}

	if len(counts) > 0 {
		batch := &pgx.Batch{}
		for _, c := range counts {
			batch.Queue(insertAreaCountSQL, run.ID, c.AreaID, c.Name, c.Count)
		}
		res := tx.SendBatch(ctx, batch)
		for range counts {
			if _, err := res.Exec(); err != nil {
				_ = res.Close()
				return err
			}
		}
		if err := res.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const listRunsSQL = `
    SELECT id, species, filename, record_count, inside_count, created_at
    FROM biodash.report_runs
    ORDER BY created_at DESC
    LIMIT $1
`

// ListRuns returns the most recent runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID,
			&r.Species,
			&r.Filename,
			&r.RecordCount,
			&r.InsideCount,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
