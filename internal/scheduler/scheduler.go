// Package scheduler enqueues periodic forecast jobs for a fixed set of
// accounts.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rutwin/cashflow/internal/jobs"
)

// publishTimeout bounds a single scheduled enqueue.
const publishTimeout = 30 * time.Second

// Config describes what to schedule.
type Config struct {
	// Spec is a standard five-field cron expression, e.g. "0 6 * * *".
	Spec       string
	Location   *time.Location
	AccountIDs []string
	// Type defaults to forecast_cash_flow.
	Type   jobs.JobType
	Params jobs.Params
}

// ForecastScheduler publishes one analysis job per configured account every
// time the cron spec fires.
type ForecastScheduler struct {
	cronEngine *cron.Cron
	publisher  jobs.Publisher
	cfg        Config
	log        zerolog.Logger
	entryID    cron.EntryID
}

// New validates the cron spec and builds a scheduler. Nothing runs until Start.
func New(cfg Config, publisher jobs.Publisher, log zerolog.Logger) (*ForecastScheduler, error) {
	if publisher == nil {
		return nil, fmt.Errorf("New: publisher is required")
	}
	if len(cfg.AccountIDs) == 0 {
		return nil, fmt.Errorf("New: at least one account is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Type == "" {
		cfg.Type = jobs.JobTypeForecastCashFlow
	}
	if !cfg.Type.Valid() {
		return nil, fmt.Errorf("New: unknown job type %q", cfg.Type)
	}

	s := &ForecastScheduler{
		cronEngine: cron.New(cron.WithLocation(cfg.Location)),
		publisher:  publisher,
		cfg:        cfg,
		log:        log.With().Str("component", "scheduler").Logger(),
	}

	id, err := s.cronEngine.AddFunc(cfg.Spec, func() {
		s.log.Info().Msg("Scheduled analysis triggered")
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("New: adding cron job %q: %w", cfg.Spec, err)
	}
	s.entryID = id
	return s, nil
}

// Start runs the cron engine in its own goroutine.
func (s *ForecastScheduler) Start() {
	s.cronEngine.Start()
	s.log.Info().
		Str("spec", s.cfg.Spec).
		Strs("account_ids", s.cfg.AccountIDs).
		Time("next_run", s.Next()).
		Msg("Scheduler started")
}

// Stop halts the engine and waits for a running trigger to finish or ctx to
// expire.
func (s *ForecastScheduler) Stop(ctx context.Context) error {
	done := s.cronEngine.Stop().Done()
	select {
	case <-done:
		s.log.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Stop: %w", ctx.Err())
	}
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *ForecastScheduler) Next() time.Time {
	return s.cronEngine.Entry(s.entryID).Next
}

// RunOnce publishes a job for every account and returns how many were
// enqueued. A failing account does not stop the others.
func (s *ForecastScheduler) RunOnce(ctx context.Context) int {
	published := 0
	for _, accountID := range s.cfg.AccountIDs {
		job := &jobs.AnalysisJob{
			Type:      s.cfg.Type,
			AccountID: accountID,
			Params:    s.cfg.Params,
		}
		if err := s.publisher.Publish(ctx, job); err != nil {
			s.log.Error().
				Err(err).
				Str("account_id", accountID).
				Msg("Failed to enqueue scheduled analysis")
			continue
		}
		published++
		s.log.Info().
			Str("job_id", job.JobID).
			Str("account_id", accountID).
			Str("job_type", string(job.Type)).
			Msg("Scheduled analysis enqueued")
	}
	return published
}
