// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/acuity/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/acuity/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage results in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
// The caller owns the pool's lifecycle.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const runColumns = `id, fingerprint, status, input, stages, recommendation,
	error_text, created_at, completed_at, duration_s`

// Get retrieves a triage result by ID.
//
//nolint:dupl // similar structure to GetByFingerprint is intentional
func (s *Store) Get(ctx context.Context, id string) (*triage.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM triage_runs WHERE id = $1`
	r, err := scanRunRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetByFingerprint retrieves the most recent triage result for an intake
// fingerprint, for deduplication.
//
//nolint:dupl // similar structure to Get is intentional
func (s *Store) GetByFingerprint(ctx context.Context, fingerprint string) (*triage.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetByFingerprint", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM triage_runs WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`
	r, err := scanRunRow(s.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts or updates a triage result (upsert on id).
func (s *Store) Put(ctx context.Context, r *triage.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	inputJSON, err := json.Marshal(r.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	var stagesJSON []byte
	if len(r.Stages) > 0 {
		stagesJSON, err = json.Marshal(r.Stages)
		if err != nil {
			return fmt.Errorf("marshal stages: %w", err)
		}
	}

	var recJSON []byte
	if r.Recommendation != nil {
		recJSON, err = json.Marshal(r.Recommendation)
		if err != nil {
			return fmt.Errorf("marshal recommendation: %w", err)
		}
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO triage_runs (
		id, fingerprint, status, input, stages, recommendation,
		error_text, created_at, completed_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (id) DO UPDATE SET
		fingerprint    = EXCLUDED.fingerprint,
		status         = EXCLUDED.status,
		input          = EXCLUDED.input,
		stages         = EXCLUDED.stages,
		recommendation = EXCLUDED.recommendation,
		error_text     = EXCLUDED.error_text,
		completed_at   = EXCLUDED.completed_at,
		duration_s     = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Fingerprint, string(r.Status), inputJSON, stagesJSON, recJSON,
		r.Error, r.CreatedAt, completedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert triage run: %w", err)
	}
	return nil
}

// scanRunRow scans a single row into a triage.Result.
// Returns (nil, nil) when no row is found.
func scanRunRow(row pgx.Row) (*triage.Result, error) {
	var (
		r           triage.Result
		status      string
		inputJSON   []byte
		stagesJSON  []byte
		recJSON     []byte
		completedAt *time.Time
	)

	err := row.Scan(
		&r.ID, &r.Fingerprint, &status, &inputJSON, &stagesJSON, &recJSON,
		&r.Error, &r.CreatedAt, &completedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = triage.Status(status)
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}

	if err := json.Unmarshal(inputJSON, &r.Input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	if len(stagesJSON) > 0 {
		if err := json.Unmarshal(stagesJSON, &r.Stages); err != nil {
			return nil, fmt.Errorf("unmarshal stages: %w", err)
		}
	}
	if len(recJSON) > 0 {
		if err := json.Unmarshal(recJSON, &r.Recommendation); err != nil {
			return nil, fmt.Errorf("unmarshal recommendation: %w", err)
		}
	}

	return &r, nil
}
