// Package app builds the long-lived collaborators shared by the cashflow
// binaries from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rutwin/cashflow/internal/analytics"
	"github.com/rutwin/cashflow/internal/config"
	"github.com/rutwin/cashflow/internal/forecast"
	"github.com/rutwin/cashflow/internal/gcsuploader"
	infraBQ "github.com/rutwin/cashflow/internal/infra/bigquery"
	"github.com/rutwin/cashflow/internal/insights"
	"github.com/rutwin/cashflow/internal/jobs"
	"github.com/rutwin/cashflow/internal/jobs/inmemory"
	"github.com/rutwin/cashflow/internal/jobs/rabbitmq"
	"github.com/rutwin/cashflow/internal/jobs/redisstore"
	"github.com/rutwin/cashflow/internal/metrics"
	"github.com/rutwin/cashflow/internal/notionsync"
)

// Queue both publishes and consumes analysis jobs.
type Queue interface {
	jobs.Publisher
	jobs.Consumer
}

// Options selects which optional parts Build creates.
type Options struct {
	// WithJobs creates the job store and queue.
	WithJobs bool
	// WithStorage forces a Cloud Storage client even without a report
	// bucket, for reading gs:// exports.
	WithStorage bool
}

// Runtime holds everything a binary needs. Close releases it in reverse
// order of creation.
type Runtime struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Service   *analytics.Service
	Storage   *gcsuploader.GCSStorageService
	Store     jobs.JobStore
	Queue     Queue
	Publisher jobs.Publisher

	closers []func() error
}

// Build connects to every configured backend. Anything left unconfigured is
// simply not wired; the analytics service degrades feature by feature.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*Runtime, error) {
	rt := &Runtime{
		Config:  cfg,
		Metrics: metrics.Default(),
	}

	deps := analytics.Deps{
		Forecaster: forecast.NewForecaster(),
		Defaults: analytics.Defaults{
			Recurring:  cfg.Analysis.Recurring,
			Forecast:   cfg.Analysis.Forecast,
			PeriodDays: cfg.Analysis.PeriodDays,
		},
		ReportBucket: cfg.GCP.Bucket,
		Metrics:      rt.Metrics,
		Logger:       log,
	}

	if cfg.LedgerEnabled() {
		store, err := infraBQ.NewStore(ctx, cfg.GCP.ProjectID, cfg.GCP.DatasetID)
		if err != nil {
			return nil, rt.fail(fmt.Errorf("Build: ledger: %w", err))
		}
		rt.closers = append(rt.closers, store.Close)
		ledger := infraBQ.NewLedger(store)
		deps.Transactions = ledger
		deps.Balances = ledger
		deps.Runs = store
		log.Info().
			Str("project_id", cfg.GCP.ProjectID).
			Str("dataset_id", cfg.GCP.DatasetID).
			Msg("Ledger store enabled")
	}

	if cfg.GCP.Bucket != "" || opts.WithStorage {
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			return nil, rt.fail(fmt.Errorf("Build: storage: %w", err))
		}
		rt.closers = append(rt.closers, storage.Close)
		rt.Storage = storage
		deps.Storage = storage
	}

	if cfg.Gemini.Enabled {
		narrator, err := insights.NewGeminiNarrator(ctx, cfg.Gemini.Model)
		if err != nil {
			return nil, rt.fail(fmt.Errorf("Build: narrator: %w", err))
		}
		deps.Narrator = narrator
	}

	if cfg.Notion.Enabled() {
		client := notionsync.NewNotionClient(cfg.Notion.Token)
		deps.Patterns = notionsync.NewSyncer(client, cfg.Notion.DatabaseID)
	}

	rt.Service = analytics.NewService(deps)

	if opts.WithJobs {
		if err := rt.buildJobs(ctx, log); err != nil {
			return nil, rt.fail(err)
		}
	}
	return rt, nil
}

func (rt *Runtime) buildJobs(ctx context.Context, log zerolog.Logger) error {
	jc := rt.Config.Jobs

	switch jc.Store {
	case config.StoreRedis:
		store, err := redisstore.New(ctx, redisstore.Config{
			Address:  jc.Redis.Address,
			Password: jc.Redis.Password,
			DB:       jc.Redis.DB,
			Prefix:   jc.Redis.Prefix,
			TTL:      jc.Redis.TTL,
		})
		if err != nil {
			return fmt.Errorf("Build: job store: %w", err)
		}
		rt.closers = append(rt.closers, store.Close)
		rt.Store = store
	default:
		rt.Store = inmemory.NewStore()
	}

	switch jc.Backend {
	case config.BackendRabbitMQ:
		queue, err := rabbitmq.NewQueue(rabbitmq.Config{
			URL:          jc.RabbitMQ.URL,
			Queue:        jc.RabbitMQ.Queue,
			Prefetch:     jc.RabbitMQ.Prefetch,
			Durable:      true,
			Workers:      jc.Workers,
			RetryBackoff: jc.RetryBackoff,
		}, rt.Store)
		if err != nil {
			return fmt.Errorf("Build: job queue: %w", err)
		}
		rt.Queue = queue
	default:
		rt.Queue = inmemory.NewQueue(rt.Store, inmemory.Options{
			BufferSize:   jc.BufferSize,
			Workers:      jc.Workers,
			RetryBackoff: jc.RetryBackoff,
		})
	}
	rt.closers = append(rt.closers, rt.Queue.Close)
	rt.Publisher = jobs.WithMaxRetries(rt.Queue, jc.MaxRetries)

	log.Info().
		Str("backend", jc.Backend).
		Str("store", jc.Store).
		Int("workers", jc.Workers).
		Msg("Job infrastructure ready")
	return nil
}

// Close releases every backend, newest first.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *Runtime) fail(err error) error {
	if cerr := rt.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}
