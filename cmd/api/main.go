package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rutwin/cashflow/internal/api"
	"github.com/rutwin/cashflow/internal/app"
	"github.com/rutwin/cashflow/internal/config"
	"github.com/rutwin/cashflow/internal/jobs"
	"github.com/rutwin/cashflow/internal/logger"
	"github.com/rutwin/cashflow/internal/scheduler"
	"github.com/rutwin/cashflow/internal/webhook"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", os.Getenv("CASHFLOW_CONFIG"), "Path to a YAML config file (or set CASHFLOW_CONFIG env)")
		noWorker   = flag.Bool("no-worker", false, "Only enqueue jobs; leave processing to cmd/worker")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	cfg.Log.Service = "cashflow-api"
	log := logger.NewWithOptions(os.Stdout, cfg.Log)

	ctx := logger.WithContext(context.Background(), log)

	rt, err := app.Build(ctx, cfg, log, app.Options{WithJobs: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to release resources")
		}
	}()

	if !rt.Service.UploadsEnabled() {
		log.Warn().Msg("No GCS bucket configured - report uploads will be disabled")
	}

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if !*noWorker {
		log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting job worker")
		if err := rt.Queue.Start(workerCtx, rt.Service.HandleJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job worker")
		}
	}

	var sched *scheduler.ForecastScheduler
	if cfg.Schedule.Cron != "" {
		loc, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			log.Fatal().Err(err).Str("timezone", cfg.Schedule.Timezone).Msg("Invalid schedule timezone")
		}
		sched, err = scheduler.New(scheduler.Config{
			Spec:       cfg.Schedule.Cron,
			Location:   loc,
			AccountIDs: cfg.Schedule.AccountIDs,
			Type:       jobs.JobTypeForecastCashFlow,
		}, rt.Publisher, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create scheduler")
		}
		sched.Start()
	}

	var tellerHandler *webhook.TellerHandler
	if cfg.Teller.WebhookSecret != "" {
		tellerHandler = webhook.NewTellerHandler(cfg.Teller.WebhookSecret, rt.Publisher, rt.Metrics, log).
			AllowBareSignatures(cfg.Teller.AllowBareSignature)
		if cfg.Teller.AllowBareSignature {
			log.Warn().Msg("Untimestamped Teller signatures are accepted - deliveries can be replayed")
		}
	} else {
		log.Warn().Msg("No Teller webhook secret configured - /webhook/teller is disabled")
	}

	handler := api.NewRouter(api.RouterConfig{
		Analyzer:       rt.Service,
		Store:          rt.Store,
		Publisher:      rt.Publisher,
		Webhook:        tellerHandler,
		Metrics:        rt.Metrics,
		Gatherer:       prometheus.DefaultGatherer,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping scheduler")
		}
	}

	// Stop job queue and wait for in-flight jobs
	if err := rt.Queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
