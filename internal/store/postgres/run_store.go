package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Insert appends a run record. Batch statistics are stored as JSONB.
func (s *RunStore) Insert(ctx context.Context, run domain.RunRecord) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("postgres: marshal run stats: %w", err)
	}

	const query = `
		INSERT INTO normalize_runs (
			id, source, variant, snapshot_timestamp, input_markets,
			total_markets, failed_count, stats, outputs, error,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = s.pool.Exec(ctx, query,
		run.ID, run.Source, run.Variant, run.SnapshotTimestamp, run.InputMarkets,
		run.Stats.TotalMarkets, run.Stats.FailedCount, statsJSON, orEmpty(run.Outputs), run.Error,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", run.ID, err)
	}
	return nil
}

// ListRecent returns run records newest first with pagination and optional
// time filtering on started_at.
func (s *RunStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.RunRecord, error) {
	query := `SELECT id, source, variant, snapshot_timestamp, input_markets,
		stats, outputs, error, started_at, finished_at
		FROM normalize_runs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND started_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND started_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY started_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		var statsJSON []byte

		if err := rows.Scan(
			&r.ID, &r.Source, &r.Variant, &r.SnapshotTimestamp, &r.InputMarkets,
			&statsJSON, &r.Outputs, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}

		if statsJSON != nil {
			if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal run stats: %w", err)
			}
		}

		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs rows: %w", err)
	}
	return runs, nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
