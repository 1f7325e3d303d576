package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MananS02/Interview/pkg/errorsx"
	"github.com/MananS02/Interview/pkg/evaluation"
)

// ErrNotFound is returned when no report exists for the requested session.
var ErrNotFound = errors.New("report not found")

const ddlReports = `
CREATE TABLE IF NOT EXISTS interview_reports (
    session_id      TEXT         PRIMARY KEY,
    candidate_name  TEXT         NOT NULL DEFAULT '',
    started_at      TIMESTAMPTZ  NOT NULL,
    concluded_at    TIMESTAMPTZ  NOT NULL,
    end_reason      TEXT         NOT NULL DEFAULT '',
    turns           JSONB        NOT NULL DEFAULT '[]',
    kpis            JSONB        NOT NULL DEFAULT '{}',
    violation_count INT          NOT NULL DEFAULT 0,
    terminated      BOOLEAN      NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_interview_reports_concluded_at
    ON interview_reports (concluded_at);`

// PostgresStore persists reports in a PostgreSQL interview_reports table.
// All methods are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn and ensures the
// interview_reports table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("report store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlReports); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report store: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Save(ctx context.Context, r Report) error {
	turns, err := json.Marshal(r.Turns)
	if err != nil {
		return fmt.Errorf("report store: marshal turns: %w", err)
	}
	kpis, err := json.Marshal(r.KPIs)
	if err != nil {
		return fmt.Errorf("report store: marshal kpis: %w", err)
	}

	const q = `
		INSERT INTO interview_reports
		    (session_id, candidate_name, started_at, concluded_at, end_reason, turns, kpis, violation_count, terminated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
		    concluded_at    = EXCLUDED.concluded_at,
		    end_reason      = EXCLUDED.end_reason,
		    turns           = EXCLUDED.turns,
		    kpis            = EXCLUDED.kpis,
		    violation_count = EXCLUDED.violation_count,
		    terminated      = EXCLUDED.terminated`

	_, err = s.pool.Exec(ctx, q,
		r.SessionID,
		r.CandidateName,
		r.StartedAt,
		r.ConcludedAt,
		r.EndReason,
		turns,
		kpis,
		r.ViolationCount,
		r.Terminated,
	)
	if err != nil {
		return errorsx.Wrap(fmt.Errorf("report store: save: %w", err), errorsx.ReasonReportStore)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (Report, error) {
	const q = `
		SELECT session_id, candidate_name, started_at, concluded_at, end_reason, turns, kpis, violation_count, terminated
		FROM   interview_reports
		WHERE  session_id = $1`

	row := s.pool.QueryRow(ctx, q, sessionID)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, errorsx.Wrap(fmt.Errorf("report store: get: %w", err), errorsx.ReasonReportStore)
	}
	return r, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Report, error) {
	q := `
		SELECT session_id, candidate_name, started_at, concluded_at, end_reason, turns, kpis, violation_count, terminated
		FROM   interview_reports
		ORDER  BY concluded_at DESC`
	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		q += "\nLIMIT $1"
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("report store: list: %w", err), errorsx.ReasonReportStore)
	}
	reports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Report, error) {
		return scanReport(row)
	})
	if err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("report store: list: %w", err), errorsx.ReasonReportStore)
	}
	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var (
		r     Report
		turns []byte
		kpis  []byte
	)
	if err := row.Scan(
		&r.SessionID,
		&r.CandidateName,
		&r.StartedAt,
		&r.ConcludedAt,
		&r.EndReason,
		&turns,
		&kpis,
		&r.ViolationCount,
		&r.Terminated,
	); err != nil {
		return Report{}, err
	}
	if err := json.Unmarshal(turns, &r.Turns); err != nil {
		return Report{}, fmt.Errorf("unmarshal turns: %w", err)
	}
	if err := json.Unmarshal(kpis, &r.KPIs); err != nil {
		return Report{}, fmt.Errorf("unmarshal kpis: %w", err)
	}
	if r.Turns == nil {
		r.Turns = []evaluation.Record{}
	}
	return r, nil
}

var _ Store = (*PostgresStore)(nil)
