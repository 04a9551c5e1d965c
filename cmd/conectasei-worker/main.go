// Command conectasei-worker runs the extraction pipeline: the
// scheduler that fires per-tenant runs and the HTTP task-status API,
// plus every repository/plugin/browser dependency both need. Wiring
// and graceful shutdown follow the same pattern as the original
// service's entrypoint — a signal channel, a bounded shutdown context,
// and an ordered teardown of each long-lived component.
//
// The document downloader and on-demand (API-triggered) extraction
// runs are deliberately not wired to any inbound route here: the only
// caller-facing REST route this service implements is
// GET /internal/tasks/{id}. internal/downloader and a direct
// extractor.Extractor.Run call are both available to whatever
// out-of-process caller triggers them; that trigger path is an
// external collaborator out of scope for this binary.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/conectasei/core/internal/browser"
	"github.com/conectasei/core/internal/config"
	"github.com/conectasei/core/internal/extractor"
	"github.com/conectasei/core/internal/httpapi"
	"github.com/conectasei/core/internal/logger"
	"github.com/conectasei/core/internal/notify"
	"github.com/conectasei/core/internal/objectstore"
	"github.com/conectasei/core/internal/repository"
	"github.com/conectasei/core/internal/scheduler"
	"github.com/conectasei/core/internal/scraper"
	"github.com/conectasei/core/internal/scraper/v4"
	"github.com/conectasei/core/internal/tasks"
	"github.com/conectasei/core/internal/vault"
)

// extractionRunner adapts *extractor.Extractor to scheduler.Runner. A
// scheduled fire for an inactive tenant is skipped before any task row
// is created — marking a routine, expected skip as a failed task would
// pollute result_summary dashboards with noise indistinguishable from
// real faults.
type extractionRunner struct {
	extractor *extractor.Extractor
	tenants   *repository.TenantRepo
	tasks     *tasks.Registry
	log       *logger.Logger
}

func (r *extractionRunner) Run(ctx context.Context, tenantID string) error {
	tenant, err := r.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !tenant.IsActive {
		r.log.Info("skipping scheduled run for inactive tenant", "tenant_id", tenantID)
		return nil
	}

	taskID, err := r.tasks.Create(ctx, tenantID)
	if err != nil {
		return err
	}
	_, err = r.extractor.Run(ctx, tenantID, taskID)
	return err
}

func main() {
	cfg := config.Load()

	lg := logger.New(logger.Config{
		Level:  logger.Level(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	db := repository.NewDB(pool)

	if err := objectstore.Init(ctx, objectstore.Config{
		Bucket:          cfg.ObjectStoreBucket,
		Endpoint:        cfg.ObjectStoreEndpoint,
		Region:          cfg.ObjectStoreRegion,
		AccessKeyID:     cfg.ObjectStoreAccessKeyID,
		SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
	}); err != nil {
		lg.Error("initialize object store; continuing without it", "error", err)
	}

	secretVault, err := vault.New(cfg.SymmetricEncryptionKey)
	if err != nil {
		lg.Error("initialize credential vault", "error", err)
		os.Exit(1)
	}

	tenants := repository.NewTenantRepo(db)
	processes := repository.NewProcessRepo(db)
	extractionTasks := repository.NewExtractionTaskRepo(db)
	downloadTasks := repository.NewDownloadTaskRepo(db)
	schedules := repository.NewScheduleRepo(db)

	plugins := scraper.NewRegistry(map[string]scraper.Factory{
		"4.0.0": func(baseURL string) scraper.Plugin {
			return v4.NewFamilyDefaults(baseURL)
		},
		"4.2.0": func(baseURL string) scraper.Plugin {
			return v4.NewPlugin420(baseURL)
		},
	})

	browserPool := browser.New(ctx, lg)
	defer browserPool.Close()

	taskRegistry := tasks.NewRegistry(extractionTasks, lg)
	if err := taskRegistry.Reconcile(ctx); err != nil {
		lg.Error("reconcile in-flight tasks at startup", "error", err)
	}

	notifier, err := notify.New(cfg.NotificationsAMQPURL, lg)
	if err != nil {
		lg.Error("connect to notification broker", "error", err)
		os.Exit(1)
	}

	ex := extractor.New(processes, tenants, taskRegistry, plugins, browserPool, secretVault, notifier, cfg.ExtractorWorkerLimit, lg)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		lg.Error("parse REDIS_URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	sched := scheduler.New(redisClient, schedules, &extractionRunner{extractor: ex, tenants: tenants, tasks: taskRegistry, log: lg}, lg, cfg.SchedulerShutdownGrace)
	if err := sched.Load(ctx); err != nil {
		lg.Error("load active schedules", "error", err)
		os.Exit(1)
	}

	handler := httpapi.New(extractionTasks, downloadTasks, lg, httpapi.Config{
		JWTSecret:   cfg.HTTPJWTSecret,
		CORSOrigin:  cfg.HTTPCORSOrigin,
		RequireAuth: cfg.HTTPRequireAuth,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("conectasei worker starting", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SchedulerShutdownGrace)
	defer cancel()

	sched.Shutdown(shutdownCtx)

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced to shutdown", "error", err)
	}

	lg.Info("shutdown complete")
}
