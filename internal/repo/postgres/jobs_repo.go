package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/carehub/internal/domain/job"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, run_at, locked_at, locked_by, last_error, idempotency_key, created_at, updated_at`

// JobsRepo is the Postgres-backed queue the worker drains. Claims use
// SKIP LOCKED so several workers can poll the same table.
type JobsRepo struct {
	base
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{base{pool: pool, prom: prom}}
}

func scanJob(row pgx.Row) (j job.Job, err error) {
	err = row.Scan(
		&j.ID, &j.Type, &j.Payload, &j.Status,
		&j.Attempts, &j.MaxAttempts, &j.RunAt,
		&j.LockedAt, &j.LockedBy, &j.LastError,
		&j.IdempotencyKey, &j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return job.Job{}, job.ErrJobNotFound
	}
	return j, err
}

// Create enqueues a pending job. When the idempotency key is already taken the
// existing job is returned instead.
func (r *JobsRepo) Create(ctx context.Context, req job.CreateRequest) (j job.Job, err error) {
	n := job.New(req)

	err = r.observe("jobs.create", func() error {
		j, err = scanJob(r.pool.QueryRow(ctx, `
			INSERT INTO jobs (`+jobColumns+`)
			VALUES ($1, $2, $3, $4, 0, $5, $6, NULL, NULL, NULL, $7, $8, $8)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING `+jobColumns,
			n.ID, n.Type, n.Payload, n.Status, n.MaxAttempts, n.RunAt, n.IdempotencyKey, n.CreatedAt))
		return err
	})

	if errors.Is(err, job.ErrJobNotFound) && req.IdempotencyKey != nil {
		return r.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
	}
	return j, err
}

func (r *JobsRepo) GetByIdempotencyKey(ctx context.Context, key string) (j job.Job, err error) {
	err = r.observe("jobs.get_by_idempotency_key", func() error {
		j, err = scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE idempotency_key = $1`, key))
		return err
	})
	return j, err
}

// ClaimNext locks the oldest ready job for workerID. job.ErrJobNotFound means
// the queue is empty.
func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (j job.Job, err error) {
	err = r.observe("jobs.claim_next", func() error {
		j, err = scanJob(r.pool.QueryRow(ctx, `
			UPDATE jobs
			SET status = 'processing', locked_at = NOW(), locked_by = $1, updated_at = NOW()
			WHERE id = (
				SELECT id FROM jobs
				WHERE status = 'pending' AND run_at <= NOW() AND attempts < max_attempts
				ORDER BY run_at, created_at
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			RETURNING `+jobColumns, workerID))
		return err
	})
	return j, err
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.release(ctx, "jobs.mark_done", id,
		`status = 'done', last_error = NULL`)
}

func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.release(ctx, "jobs.reschedule", id,
		`status = 'pending', attempts = attempts + 1, run_at = $2, last_error = $3`, runAt, errMsg)
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.release(ctx, "jobs.mark_failed", id,
		`status = 'failed', attempts = attempts + 1, last_error = $2`, errMsg)
}

// release applies set to a job this process still holds and drops its lock.
// A job requeued by RequeueStaleProcessing in the meantime is left alone.
func (r *JobsRepo) release(ctx context.Context, op, id, set string, args ...any) error {
	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET `+set+`, locked_at = NULL, locked_by = NULL, updated_at = NOW()
			WHERE id = $1 AND status = 'processing'`,
			append([]any{id}, args...)...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return job.ErrJobNotFound
		}
		return nil
	})
}

// RequeueStaleProcessing hands back jobs whose worker has held them longer
// than lockTTL, usually because it died mid-run.
func (r *JobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (n int64, err error) {
	if lockTTL < time.Second {
		lockTTL = 30 * time.Second
	}

	err = r.observe("jobs.requeue_stale", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending', locked_at = NULL, locked_by = NULL, updated_at = NOW()
			WHERE status = 'processing' AND locked_at < NOW() - make_interval(secs => $1)`,
			lockTTL.Seconds())
		n = tag.RowsAffected()
		return err
	})
	return n, err
}
