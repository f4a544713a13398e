// Package store persists normalized postings in Postgres. Writes are
// first-write-wins on the posting's primary key: a record, once stored, is
// never updated by later runs.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/jobs"
)

// JobStore is what the loader needs from persistence.
type JobStore interface {
	Exists(ctx context.Context, primaryKey string) (bool, error)
	Insert(ctx context.Context, job *jobs.PersistedJob) error
	Close() error
}

// Postgres implements JobStore over pgx. Every method opens its own
// connection and closes it before returning; nothing is shared between
// operations, so there is no connection state to corrupt when a stage is
// killed and re-run. A single writer is assumed.
type Postgres struct {
	url        string
	dimensions int
	logger     *zap.Logger
}

// NewPostgres returns a store whose embedding column is sized for vectors of
// the given length, as reported by the configured embedding provider.
// A non-positive value falls back to the OpenAI small-model size.
func NewPostgres(url string, dimensions int, logger *zap.Logger) *Postgres {
	return &Postgres{url: url, dimensions: dimensions, logger: logger}
}

func (p *Postgres) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, p.url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pgxvec.RegisterTypes(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("register vector types: %w", err)
	}
	return conn, nil
}

const defaultDimensions = 1536

const schemaTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS jobs (
	id                BIGSERIAL PRIMARY KEY,
	primary_key       TEXT UNIQUE NOT NULL,
	date              TEXT,
	resume_similarity DOUBLE PRECISION,
	title             TEXT,
	company           TEXT,
	company_url       TEXT,
	salary_low        DOUBLE PRECISION,
	salary_high       DOUBLE PRECISION,
	location          TEXT,
	job_url           TEXT,
	description       TEXT,
	job_type          TEXT,
	job_is_remote     BOOLEAN,
	job_benefits      TEXT,
	apply_link        TEXT,
	embedding         vector(%d)
)`

func schemaSQL(dimensions int) string {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	return fmt.Sprintf(schemaTemplate, dimensions)
}

// EnsureSchema creates the jobs table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, schemaSQL(p.dimensions)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Exists(ctx context.Context, primaryKey string) (bool, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM jobs WHERE primary_key = $1)`,
		primaryKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check primary key %q: %w", primaryKey, err)
	}

	return exists, nil
}

// Insert stores one posting. ON CONFLICT DO NOTHING keeps the first write
// even when two stages race on the same key.
func (p *Postgres) Insert(ctx context.Context, job *jobs.PersistedJob) error {
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	var vec any
	if len(job.Embedding) > 0 {
		vec = pgvector.NewVector(job.Embedding)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO jobs (
			primary_key, date, resume_similarity, title, company, company_url,
			salary_low, salary_high, location, job_url, description,
			job_type, job_is_remote, job_benefits, apply_link, embedding
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (primary_key) DO NOTHING
	`,
		job.PrimaryKey, job.Date, job.ResumeSimilarity, job.Title, job.Company,
		job.CompanyURL, job.SalaryLow, job.SalaryHigh, job.Location, job.JobURL,
		job.Description, job.JobType, job.JobIsRemote, job.JobBenefits,
		job.ApplyLink, vec,
	)
	if err != nil {
		return fmt.Errorf("insert %q: %w", job.PrimaryKey, err)
	}

	return nil
}

// Purge deletes every stored posting. Used by the purge command only.
func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close(ctx)

	tag, err := conn.Exec(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("purge jobs: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Close is a no-op: connections live per operation.
func (p *Postgres) Close() error { return nil }
