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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rutwin/cashflow/internal/app"
	"github.com/rutwin/cashflow/internal/config"
	"github.com/rutwin/cashflow/internal/logger"
)

func main() {
	var (
		configPath  = flag.String("config", os.Getenv("CASHFLOW_CONFIG"), "Path to a YAML config file (or set CASHFLOW_CONFIG env)")
		metricsAddr = flag.String("metrics-addr", ":9090", "Address for the Prometheus /metrics listener (empty to disable)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	cfg.Log.Service = "cashflow-worker"
	log := logger.NewWithOptions(os.Stdout, cfg.Log)

	if cfg.Jobs.Backend == config.BackendMemory {
		log.Warn().Msg("Jobs backend is memory - this worker only sees jobs published in its own process")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	rt, err := app.Build(ctx, cfg, log, app.Options{WithJobs: true, WithStorage: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to release resources")
		}
	}()

	log.Info().Msg("Starting worker service")

	// Start consuming jobs
	if err := rt.Queue.Start(ctx, rt.Service.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	var metricsServer *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics listener stopped")
			}
		}()
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := rt.Queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	log.Info().Msg("Worker service exited")
}
