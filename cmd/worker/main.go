package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/db"
	"github.com/geocoder89/carehub/internal/notifications"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/geocoder89/carehub/internal/queue/worker"
	"github.com/geocoder89/carehub/internal/repo/postgres"
	"github.com/geocoder89/carehub/internal/search"
	"github.com/prometheus/client_golang/prometheus"
)

const revokedPurgeInterval = time.Hour

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker stopped with error", "err", err)
		os.Exit(1)
	}

	log.Info("worker shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "carehub-worker",
		Env:         cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Warn("tracing disabled", "err", err)
	} else {
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, prom)
	paymentsRepo := postgres.NewPaymentsRepo(pool, prom)
	revokedRepo := postgres.NewRevokedTokensRepo(pool, prom)

	var sender notifications.Notifier = notifications.NewLogNotifier(log)
	if cfg.SendGridAPIKey != "" {
		sender = notifications.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.EmailSender, "CareHub")
	} else {
		log.Warn("SENDGRID_API_KEY not set, emails are only logged")
	}
	notifier := notifications.NewProtectedNotifier(sender, notifications.ProtectedNotifierConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	})

	bootCtx, cancelBoot := context.WithTimeout(ctx, 15*time.Second)
	doctorIndex, err := search.Open(bootCtx, search.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword}, cfg.ESDoctorIndex)
	cancelBoot()
	if err != nil {
		return fmt.Errorf("doctor index: %w", err)
	}

	handler := worker.NewJobHandler(notifier, paymentsRepo, usersRepo, doctorIndex, log)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  500 * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
		JobTimeout:    30 * time.Second,
		LockTTL:       2 * time.Minute,
	}, jobsRepo, handler, log, observability.NewJobMetrics(prom))

	healthSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port+1),
		Handler:           w.HealthHandler(pool),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("worker health listening", "addr", healthSrv.Addr)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = healthSrv.Shutdown(sctx)
	}()

	go purgeRevoked(ctx, revokedRepo, log)

	log.Info("worker has started", "worker_id", workerID)

	return w.Run(ctx)
}

// purgeRevoked drops revocation rows whose refresh tokens have expired anyway.
func purgeRevoked(ctx context.Context, repo *postgres.RevokedTokensRepo, log *slog.Logger) {
	ticker := time.NewTicker(revokedPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				log.Warn("revoked tokens purge failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("revoked tokens purged", "count", n)
			}
		}
	}
}
