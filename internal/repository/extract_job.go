package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/entity"
)

const ExtractionJobsTable = "extraction_jobs"

var jobColumns = []string{"id", "filename", "template_id", "status", "extracted_data", "created_at", "error_message"}

var createTableDDL = map[string]string{
	dialect.Postgres: `CREATE TABLE IF NOT EXISTS extraction_jobs (
	id uuid PRIMARY KEY,
	filename text NOT NULL,
	template_id text NOT NULL,
	status text NOT NULL,
	extracted_data text,
	created_at timestamptz NOT NULL DEFAULT now(),
	error_message text
)`,
	dialect.SQLite: `CREATE TABLE IF NOT EXISTS extraction_jobs (
	id text PRIMARY KEY,
	filename text NOT NULL,
	template_id text NOT NULL,
	status text NOT NULL,
	extracted_data text,
	created_at datetime NOT NULL DEFAULT CURRENT_TIMESTAMP,
	error_message text
)`,
}

type ExtractionJobRepository interface {
	EnsureSchema(ctx context.Context) error
	TableExists(ctx context.Context) (bool, error)
	Record(ctx context.Context, job *entity.ExtractionJob) error
	ListRecent(ctx context.Context, limit int) ([]entity.ExtractionJob, error)
}

type extractionJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractionJobRepository(db *DB, log *slog.Logger) ExtractionJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractionJobRepo{db: db, log: log}
}

func (r *extractionJobRepo) EnsureSchema(ctx context.Context) error {
	ddl, ok := createTableDDL[r.db.Dialect()]
	if !ok {
		return fmt.Errorf("no extraction_jobs schema for dialect %q", r.db.Dialect())
	}
	if err := r.db.Driver.Exec(ctx, ddl, []any{}, nil); err != nil {
		r.log.Error("extraction_jobs create failed", "err", err)
		return fmt.Errorf("%w: create %s: %w", common.ErrDatabase, ExtractionJobsTable, err)
	}
	return nil
}

func (r *extractionJobRepo) TableExists(ctx context.Context) (bool, error) {
	b := entsql.Dialect(r.db.Dialect())
	var sel *entsql.Selector
	if r.db.Dialect() == dialect.SQLite {
		sel = b.Select("name").
			From(entsql.Table("sqlite_master")).
			Where(entsql.And(entsql.EQ("type", "table"), entsql.EQ("name", ExtractionJobsTable)))
	} else {
		sel = b.Select("table_name").
			From(entsql.Table("tables").Schema("information_schema")).
			Where(entsql.EQ("table_name", ExtractionJobsTable))
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return false, fmt.Errorf("%w: check %s: %w", common.ErrDatabase, ExtractionJobsTable, err)
	}
	defer rows.Close()
	exists := rows.Next()
	return exists, rows.Err()
}

// Record inserts job, filling ID and CreatedAt when unset.
func (r *extractionJobRepo) Record(ctx context.Context, job *entity.ExtractionJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	var data any
	if len(job.ExtractedData) > 0 {
		data = string(job.ExtractedData)
	}
	var errMsg any
	if job.ErrorMessage != nil {
		errMsg = *job.ErrorMessage
	}

	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(ExtractionJobsTable).
		Columns(jobColumns...).
		Values(job.ID.String(), job.Filename, job.TemplateID, string(job.Status), data, job.CreatedAt, errMsg).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("extraction_job insert failed", "file", job.Filename, "err", err)
		return fmt.Errorf("%w: insert extraction job: %w", common.ErrDatabase, err)
	}
	r.log.Debug("extraction_job recorded", "job_id", job.ID, "file", job.Filename, "status", job.Status)
	return nil
}

// ListRecent returns up to limit jobs, newest first.
func (r *extractionJobRepo) ListRecent(ctx context.Context, limit int) ([]entity.ExtractionJob, error) {
	query, args := entsql.Dialect(r.db.Dialect()).
		Select(jobColumns...).
		From(entsql.Table(ExtractionJobsTable)).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: list extraction jobs: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.ExtractionJob
	for rows.Next() {
		var (
			id, status string
			data       sql.NullString
			errMsg     sql.NullString
			job        entity.ExtractionJob
		)
		if err := rows.Scan(&id, &job.Filename, &job.TemplateID, &status, &data, &job.CreatedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("%w: scan extraction job: %w", common.ErrDatabase, err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("scan extraction job: bad id %q: %w", id, err)
		}
		job.ID = parsed
		job.Status = constants.JobStatus(status)
		if data.Valid {
			job.ExtractedData = []byte(data.String)
		}
		if errMsg.Valid {
			msg := errMsg.String
			job.ErrorMessage = &msg
		}
		out = append(out, job)
	}
	return out, rows.Err()
}
