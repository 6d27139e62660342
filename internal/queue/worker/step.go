package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/carehub/internal/domain/job"
	"github.com/geocoder89/carehub/internal/observability"
)

// ErrPermanent marks failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

func Permanent(err error) error {
	return fmt.Errorf("%w: %v", ErrPermanent, err)
}

// ProcessOne claims and runs at most one job. processed is false when the
// queue had nothing ready.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	w.metrics.Claimed(j.Type)
	start := time.Now()

	err = w.execute(ctx, j)
	elapsed := time.Since(start)

	if err != nil {
		w.metrics.Finished(j.Type, w.handleFailure(ctx, j, err), true, elapsed)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.metrics.Finished(j.Type, observability.JobResultDeadLettered, true, elapsed)
		return true, err
	}

	w.metrics.Finished(j.Type, observability.JobResultDone, false, elapsed)
	w.log.Info("job.done", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts+1)

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) (err error) {
	runCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return w.handler.Handle(runCtx, j)
}

// handleFailure dead-letters or reschedules j and returns the job result.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	msg := cause.Error()

	if errors.Is(cause, ErrPermanent) || j.LastAttempt() {
		if err := w.repo.MarkFailed(ctx, j.ID, msg); err != nil {
			w.log.Error("job.mark_failed_error", "job_id", j.ID, "err", err)
		}
		w.log.Error("job.dead_lettered", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts+1, "err", msg)
		return observability.JobResultDeadLettered
	}

	delay := w.backoff(j.Attempts)
	if err := w.repo.Reschedule(ctx, j.ID, time.Now().UTC().Add(delay), msg); err != nil {
		w.log.Error("job.reschedule_error", "job_id", j.ID, "err", err)
	} else {
		w.log.Warn("job.retry_scheduled", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts+1, "delay", delay.String(), "err", msg)
	}
	return observability.JobResultRetry
}
