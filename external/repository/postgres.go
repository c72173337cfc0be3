package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/segscribe/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, source_filename, result_filename, status, segment_count, empty_segment_count,
	dropped_tail_ms, error, started_at, ended_at, created_at, updated_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateJob(ctx context.Context, input repository.CreateJobInput) (*repository.Job, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transcription_jobs (source_filename, started_at, status)
		 VALUES ($1, $2, 'running')
		 RETURNING `+jobColumns,
		input.SourceFilename, input.StartedAt)
	return scanJob(row)
}

func (r *PostgresRepository) CompleteJob(ctx context.Context, input repository.CompleteJobInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transcription_jobs
		 SET status = 'completed', result_filename = $2, ended_at = $3, segment_count = $4,
		     empty_segment_count = $5, dropped_tail_ms = $6, updated_at = NOW()
		 WHERE id = $1`,
		input.JobID, input.ResultFilename, input.EndedAt, input.SegmentCount, input.EmptySegmentCount, input.DroppedTailMs)
	return err
}

func (r *PostgresRepository) FailJob(ctx context.Context, input repository.FailJobInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transcription_jobs SET status = 'failed', error = $2, ended_at = $3, updated_at = NOW() WHERE id = $1`,
		input.JobID, input.Error, input.EndedAt)
	return err
}

func (r *PostgresRepository) GetJob(ctx context.Context, id string) (*repository.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM transcription_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

func (r *PostgresRepository) InsertSegment(ctx context.Context, input repository.InsertSegmentInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO job_segments (job_id, segment_index, start_ms, end_ms, content, status, attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		input.JobID, input.SegmentIndex, input.StartMs, input.EndMs, input.Content, input.Status, input.Attempts)
	return err
}

func (r *PostgresRepository) ListSegmentsByJobID(ctx context.Context, jobID string) ([]repository.JobSegment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, job_id, segment_index, start_ms, end_ms, content, status, attempts, created_at
		 FROM job_segments WHERE job_id = $1 ORDER BY segment_index ASC`,
		jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.JobSegment
	for rows.Next() {
		var seg repository.JobSegment
		if err := rows.Scan(&seg.ID, &seg.JobID, &seg.SegmentIndex, &seg.StartMs, &seg.EndMs, &seg.Content, &seg.Status, &seg.Attempts, &seg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, seg)
	}
	return list, rows.Err()
}

// Shutdown closes the pool when the injector shuts down.
func (r *PostgresRepository) Shutdown() {
	r.pool.Close()
}

func scanJob(row pgx.Row) (*repository.Job, error) {
	var j repository.Job
	var endedAt *time.Time
	err := row.Scan(&j.ID, &j.SourceFilename, &j.ResultFilename, &j.Status, &j.SegmentCount, &j.EmptySegmentCount,
		&j.DroppedTailMs, &j.Error, &j.StartedAt, &endedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.EndedAt = endedAt
	return &j, nil
}
