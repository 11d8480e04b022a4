/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: postgres.go
Description: PostgreSQL scan history backed by a pgx connection pool. Parse results
are stored as JSONB.
*/

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/logparse"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_results (
	id          UUID PRIMARY KEY,
	command     TEXT NOT NULL,
	args        JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	success     BOOLEAN NOT NULL,
	error_code  TEXT NOT NULL DEFAULT '',
	result      JSONB
);
CREATE INDEX IF NOT EXISTS scan_results_started_at_idx ON scan_results (started_at DESC);
`

const selectColumns = `id, command, args, started_at, duration_ms, success, error_code, result`

// PostgresStore persists records in the scan_results table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and migrates
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the table when missing
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate scan_results: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, r *Record) error {
	args, err := json.Marshal(r.Args)
	if err != nil {
		return err
	}
	var result []byte
	if r.Result != nil {
		if result, err = json.Marshal(r.Result); err != nil {
			return err
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO scan_results (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			success = EXCLUDED.success,
			error_code = EXCLUDED.error_code,
			result = EXCLUDED.result,
			duration_ms = EXCLUDED.duration_ms`,
		r.ID, r.Command, args, r.StartedAt, r.Duration.Milliseconds(), r.Success, r.ErrorCode, result)
	if err != nil {
		return fmt.Errorf("save scan %s: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.New(apperr.ScanNotFound, map[string]interface{}{"id": id})
	}
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM scan_results WHERE id = $1`, id)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.ScanNotFound, map[string]interface{}{"id": id})
	}
	return r, err
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = DefaultCapacity
	}
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM scan_results ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r          Record
		args       []byte
		result     []byte
		durationMS int64
	)
	if err := row.Scan(&r.ID, &r.Command, &args, &r.StartedAt, &durationMS, &r.Success, &r.ErrorCode, &result); err != nil {
		return nil, err
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal(args, &r.Args); err != nil {
		return nil, fmt.Errorf("decode args of scan %s: %w", r.ID, err)
	}
	if len(result) > 0 {
		r.Result = &logparse.ParseResult{}
		if err := json.Unmarshal(result, r.Result); err != nil {
			return nil, fmt.Errorf("decode result of scan %s: %w", r.ID, err)
		}
	}
	return &r, nil
}
