// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/reporting"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
)

// DBPool abstracts *pgxpool.Pool so the store can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kiosk_runs (
    run_id      UUID PRIMARY KEY,
    driver      TEXT NOT NULL,
    base_url    TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL,
    total       INT NOT NULL,
    passed      INT NOT NULL,
    failed      INT NOT NULL,
    aborted     INT NOT NULL,
    ok          BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS kiosk_scenario_results (
    run_id      UUID NOT NULL REFERENCES kiosk_runs (run_id) ON DELETE CASCADE,
    scenario_id TEXT NOT NULL,
    name        TEXT NOT NULL,
    status      TEXT NOT NULL,
    verdict     TEXT NOT NULL,
    failure     TEXT NOT NULL,
    session_id  TEXT NOT NULL,
    duration_ms BIGINT NOT NULL,
    steps       JSONB NOT NULL,
    PRIMARY KEY (run_id, scenario_id)
);`

const (
	sqlInsertRun = `
        INSERT INTO kiosk_runs (run_id, driver, base_url, started_at, duration_ms, total, passed, failed, aborted, ok)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
    `
	sqlInsertResult = `
        INSERT INTO kiosk_scenario_results (run_id, scenario_id, name, status, verdict, failure, session_id, duration_ms, steps)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
    `
	sqlRecentRuns = `
        SELECT run_id, driver, base_url, started_at, duration_ms, total, passed, failed, aborted, ok
        FROM kiosk_runs
        ORDER BY started_at DESC
        LIMIT $1;
    `
)

// RunSummary is one row of run history.
type RunSummary struct {
	RunID     string
	Driver    string
	BaseURL   string
	StartedAt time.Time
	Duration  time.Duration
	Total     int
	Passed    int
	Failed    int
	Aborted   int
	OK        bool
}

// Store persists suite results to PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// Open connects to dsn and returns a store plus a cleanup that closes the pool.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, func(), error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse PGX pool config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create PGX connection pool: %w", err)
	}

	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() {
		logger.Debug("Closing PostgreSQL connection pool.")
		pool.Close()
	}
	return s, cleanup, nil
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the result tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun writes a suite and all of its scenario results in one transaction.
func (s *Store) SaveRun(ctx context.Context, report *scenario.SuiteReport) error {
	doc := reporting.NewDocument(report)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	sum := doc.Summary
	_, err = tx.Exec(ctx, sqlInsertRun,
		doc.RunID, doc.Driver, doc.BaseURL, doc.StartedAt,
		doc.DurationMs, sum.Total, sum.Passed, sum.Failed, sum.Aborted, doc.OK,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", doc.RunID, err)
	}

	for _, sc := range doc.Scenarios {
		steps, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(sc.Steps)
		if err != nil {
			return fmt.Errorf("failed to encode steps of %s: %w", sc.ID, err)
		}
		_, err = tx.Exec(ctx, sqlInsertResult,
			doc.RunID, sc.ID, sc.Name, sc.Status, sc.Verdict,
			sc.Failure, sc.SessionID, sc.DurationMs, string(steps),
		)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", sc.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Run persisted.", zap.String("run_id", doc.RunID), zap.Int("scenarios", len(doc.Scenarios)))
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var durationMs int64
		err := rows.Scan(
			&r.RunID, &r.Driver, &r.BaseURL, &r.StartedAt, &durationMs,
			&r.Total, &r.Passed, &r.Failed, &r.Aborted, &r.OK,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
