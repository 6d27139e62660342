package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/carehub/internal/domain/job"
	"github.com/geocoder89/carehub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Handler executes one claimed job. Returning an error wrapping ErrPermanent
// fails the job without retrying.
type Handler interface {
	Handle(ctx context.Context, j job.Job) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	JobTimeout    time.Duration
	LockTTL       time.Duration
}

type Worker struct {
	cfg     Config
	repo    JobsRepository
	handler Handler
	log     *slog.Logger
	metrics *observability.JobMetrics

	readyMu sync.RWMutex
	ready   bool

	backoff func(attempt int) time.Duration
}

func New(cfg Config, repo JobsRepository, handler Handler, log *slog.Logger, metrics *observability.JobMetrics) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewJobMetrics(nil)
	}

	return &Worker{
		cfg:     cfg,
		repo:    repo,
		handler: handler,
		log:     log,
		metrics: metrics,
		backoff: ExponentialBackoff,
	}
}

// Run polls until ctx is cancelled, then waits up to ShutdownGrace for
// in-flight jobs. Jobs keep running on their own context so a shutdown
// does not abort a half-sent email.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, jobsCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reaper(ctx)
	}()

	w.log.Info("worker.started", "worker_id", w.cfg.WorkerID, "concurrency", w.cfg.Concurrency)

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker.shutdown_requested", "grace", w.cfg.ShutdownGrace.String())

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Warn("worker.shutdown_grace_exceeded")
		cancelJobs()
		<-done
	}

	return nil
}

func (w *Worker) loop(ctx, jobsCtx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// drain while there is work, then go back to polling
		for ctx.Err() == nil {
			processed, err := w.ProcessOne(jobsCtx)
			if err != nil {
				w.log.Error("worker.process_error", "err", err)
			}
			if !processed {
				break
			}
		}
	}
}

func (w *Worker) reaper(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.Error("worker.requeue_stale_failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.Warn("worker.requeued_stale", "count", n)
			}
		}
	}
}

func (w *Worker) Metrics() observability.JobMetricsSnapshot {
	return w.metrics.Snapshot()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
