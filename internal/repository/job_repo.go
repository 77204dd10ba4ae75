package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create inserts a job row in the running state.
func (r *JobRepo) Create(ctx context.Context, job *model.IngestionJob) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ingestion_jobs (id, status, job_type, trigger_source, quota_units_used, metadata, started_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)`,
		job.ID, model.JobRunning, job.JobType, job.Trigger, job.Metadata, job.StartedAt)
	return classify(err)
}

// Complete moves a running job to completed. Terminal rows are never touched
// again.
func (r *JobRepo) Complete(ctx context.Context, id string, units int, meta model.JobMetadata) error {
	return r.finish(ctx, id, model.JobCompleted, units, meta, nil)
}

// Fail moves a running job to failed with the captured message.
func (r *JobRepo) Fail(ctx context.Context, id string, units int, meta model.JobMetadata, msg string) error {
	return r.finish(ctx, id, model.JobFailed, units, meta, &msg)
}

func (r *JobRepo) finish(ctx context.Context, id, status string, units int, meta model.JobMetadata, msg *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ingestion_jobs
		SET status = $2, quota_units_used = $3, metadata = $4, error_message = $5, completed_at = NOW()
		WHERE id = $1 AND status = 'running'`,
		id, status, units, meta, msg)
	return classify(err)
}

// Recent returns the newest jobs first.
func (r *JobRepo) Recent(ctx context.Context, limit int) ([]model.IngestionJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, status, job_type, trigger_source, quota_units_used, metadata, error_message,
		       started_at, completed_at
		FROM ingestion_jobs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var jobs []model.IngestionJob
	for rows.Next() {
		var j model.IngestionJob
		err := rows.Scan(
			&j.ID, &j.Status, &j.JobType, &j.Trigger, &j.QuotaUnitsUsed, &j.Metadata,
			&j.ErrorMessage, &j.StartedAt, &j.CompletedAt,
		)
		if err != nil {
			return nil, classify(err)
		}
		jobs = append(jobs, j)
	}
	return jobs, classify(rows.Err())
}

// UnitsUsedSince sums quota units recorded by jobs started at or after since.
func (r *JobRepo) UnitsUsedSince(ctx context.Context, since time.Time) (int, error) {
	var units int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quota_units_used), 0)::int
		FROM ingestion_jobs
		WHERE started_at >= $1`, since).Scan(&units)
	return units, classify(err)
}

// AddUnits increments the running job's unit count so usage is visible to
// concurrent runs before the job finishes.
func (r *JobRepo) AddUnits(ctx context.Context, id string, units int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ingestion_jobs
		SET quota_units_used = quota_units_used + $2
		WHERE id = $1 AND status = 'running'`, id, units)
	return classify(err)
}

// JobQuota is the quota counter used when Redis is not configured. Usage is
// the sum of units recorded on job rows for the quota day.
type JobQuota struct {
	jobs *JobRepo
}

func NewJobQuota(jobs *JobRepo) *JobQuota {
	return &JobQuota{jobs: jobs}
}

func (q *JobQuota) Used(ctx context.Context, dayStart time.Time) (int, error) {
	return q.jobs.UnitsUsedSince(ctx, dayStart)
}

func (q *JobQuota) Add(ctx context.Context, dayStart time.Time, jobID string, units int) error {
	if units <= 0 {
		return nil
	}
	return q.jobs.AddUnits(ctx, jobID, units)
}
