package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadsignal_backend/internal/events"
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/internal/http/router"
	"leadsignal_backend/internal/ingest"
	"leadsignal_backend/internal/notification"
	"leadsignal_backend/internal/reporting"
	"leadsignal_backend/internal/scheduler"
	"leadsignal_backend/internal/sources"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/db"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/secretbox"
	"leadsignal_backend/platform/telemetry"
	"leadsignal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(cfg, log.Logger)
	if err != nil {
		panic("failed to initialize tracing: " + err.Error())
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := db.Retry(ctx, log, "database migrations", 5, 2*time.Second, func(ctx context.Context) error {
		return db.RunMigrations(ctx, cfg, cfg.MigrationsDir)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := db.Retry(ctx, log, "database connection", 5, 2*time.Second, func(ctx context.Context) error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	box, err := secretbox.New(cfg.GetSecretsEncryptionKey())
	if err != nil {
		panic("failed to initialize secret box: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	alertClient, closeAlerts := initAlertClient(cfg, log)
	if closeAlerts != nil {
		defer closeAlerts()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.New(alertClient, log)
	notificationModule.RegisterHandlers(eventBus)

	ingestModule := ingest.NewModule(pool, box, cfg, eventBus, log)
	sourcesModule := sources.NewModule(pool, box, eventBus, val, log)
	reportingModule := reporting.NewModule(pool, val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			ingestModule,
			sourcesModule,
			reportingModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router.New(app), cfg.GetServiceName()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	// Let in-flight event handlers finish before the pool closes.
	eventBus.Wait()
	log.Info("server stopped")
}

func initAlertClient(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.LeadAlertEnqueuer, func()) {
	if !cfg.IsSchedulerEnabled() {
		log.Warn("REDIS_URL not configured; lead alerts disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize lead alert client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}
