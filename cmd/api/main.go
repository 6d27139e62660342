package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/carehub/internal/auth"
	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/db"
	httpx "github.com/geocoder89/carehub/internal/http"
	"github.com/geocoder89/carehub/internal/http/handlers"
	"github.com/geocoder89/carehub/internal/jobs"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/geocoder89/carehub/internal/payments/stripegw"
	"github.com/geocoder89/carehub/internal/redisclient"
	"github.com/geocoder89/carehub/internal/repo/postgres"
	"github.com/geocoder89/carehub/internal/revocation"
	"github.com/geocoder89/carehub/internal/search"
	"github.com/geocoder89/carehub/internal/service/authflow"
	"github.com/geocoder89/carehub/internal/service/payments"
	"github.com/geocoder89/carehub/internal/service/users"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	bootCtx, cancelBoot := config.WithTimeout(30 * time.Second)
	defer cancelBoot()

	shutdownTracer, err := observability.InitTracer(bootCtx, observability.TracerConfig{
		ServiceName: "carehub-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Warn("tracing disabled", "err", err)
	} else {
		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	pool, err := db.NewPool(bootCtx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(bootCtx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if err := db.EnsureSuperAdmin(bootCtx, pool, cfg); err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	// repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)
	paymentsRepo := postgres.NewPaymentsRepo(pool, prom)
	dispatcher := jobs.NewDispatcher(jobsRepo)

	ready := []handlers.ReadinessCheck{{Name: "postgres", Check: pool.Ping}}

	var revoker authflow.Revoker = postgres.NewRevokedTokensRepo(pool, prom)
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		rdb, err := redisclient.Open(bootCtx, redisclient.Config{
			URL:      cfg.RedisURL,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		revoker = revocation.NewRedisStore(rdb)
		ready = append(ready, handlers.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Info("refresh revocation backed by redis")
	}

	doctorIndex, err := search.Open(bootCtx, search.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword}, cfg.ESDoctorIndex)
	if err != nil {
		return fmt.Errorf("doctor index: %w", err)
	}

	tokens := auth.NewManager(
		auth.Secrets{Access: cfg.JWTAccessSecret, Refresh: cfg.JWTRefreshSecret, Reset: cfg.JWTResetSecret},
		auth.TTLs{Access: cfg.AccessTTL(), Refresh: cfg.RefreshTTL(), Reset: cfg.ResetTTL()},
	)

	gateway := stripegw.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.FrontendURL)
	if cfg.StripeSecretKey == "" {
		log.Warn("stripe secret key not set, checkout sessions disabled")
	}

	// services
	authSvc := authflow.NewService(usersRepo, tokens, dispatcher, authflow.Options{
		ResetLink:  cfg.ResetLink,
		BcryptCost: cfg.BcryptCost,
		Logger:     log,
		Prom:       prom,
		Revoker:    revoker,
	})
	usersSvc := users.NewService(usersRepo, doctorIndex, dispatcher, cfg.BcryptCost, log)
	paymentsSvc := payments.NewService(paymentsRepo, gateway, dispatcher, prom, log)

	router := httpx.NewRouter(httpx.Deps{
		Log:    log,
		Config: cfg,
		Prom:   prom,
		Ready:  ready,
		Tokens:       tokens,
		UserLookup:   usersRepo,
		Auth:         authSvc,
		Users:        usersSvc,
		Specialties:  postgres.NewSpecialtiesRepo(pool, prom),
		Schedules:    postgres.NewSchedulesRepo(pool, prom),
		Appointments: postgres.NewAppointmentsRepo(pool, prom),
		Payments:     paymentsSvc,
		Webhooks:     gateway,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-stop:
	}
	log.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
