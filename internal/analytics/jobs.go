package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rutwin/cashflow/internal/jobs"
	"github.com/rutwin/cashflow/internal/logger"
	"github.com/rutwin/cashflow/internal/recurring"
	"github.com/rutwin/cashflow/internal/sources"
)

// HandleJob runs a queued analysis job and stores its report on the job.
// Reports are also uploaded when object storage is configured, and detection
// results are mirrored into Notion when a publisher is configured. Request
// errors fail the job without retries.
func (s *Service) HandleJob(ctx context.Context, job *jobs.AnalysisJob) (err error) {
	log := s.log.With().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Str("account_id", job.AccountID).
		Logger()
	ctx = logger.WithContext(ctx, log)
	defer func() { s.metrics.ObserveJob(string(job.Type), err) }()

	if err := job.Params.Validate(); err != nil {
		return jobs.Permanent(fmt.Errorf("HandleJob: %w: %w", recurring.ErrInvalidConfiguration, err))
	}

	in := Input{
		Source:    job.Params.Source,
		AccountID: job.AccountID,
		InputURI:  job.Params.InputURI,
	}
	upload := s.UploadsEnabled()

	var report any
	switch job.Type {
	case jobs.JobTypeDetectRecurring:
		req := RecurringRequest{
			Input:           in,
			Days:            overrideInt(job.Params.LookbackDays),
			MinOccurrences:  overrideInt(job.Params.MinOccurrences),
			AmountTolerance: overrideFloat(job.Params.AmountTolerance),
			Publish:         s.patterns != nil,
			Upload:          upload,
		}
		r, err := s.IdentifyRecurring(ctx, req)
		if err != nil {
			return classify(err)
		}
		job.ReportURI = r.ReportURI
		report = r

	case jobs.JobTypeForecastCashFlow:
		req := ForecastRequest{
			Input:            in,
			HorizonDays:      job.Params.HorizonDays,
			LookbackDays:     overrideInt(job.Params.LookbackDays),
			IncludeRecurring: job.Params.IncludeRecurring,
			MinOccurrences:   overrideInt(job.Params.MinOccurrences),
			AmountTolerance:  overrideFloat(job.Params.AmountTolerance),
			Narrative:        job.Params.Narrative,
			Upload:           upload,
		}
		r, err := s.ForecastCashFlow(ctx, req)
		if err != nil {
			return classify(err)
		}
		job.ReportURI = r.ReportURI
		report = r

	case jobs.JobTypeAnalyzeCashFlow:
		req := CashFlowRequest{
			Input:      in,
			PeriodDays: overrideInt(job.Params.PeriodDays),
			Upload:     upload,
		}
		r, err := s.AnalyzeCashFlow(ctx, req)
		if err != nil {
			return classify(err)
		}
		job.ReportURI = r.ReportURI
		report = r

	default:
		return jobs.Permanent(fmt.Errorf("HandleJob: unknown job type %q", job.Type))
	}

	result, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("HandleJob: encoding result: %w", err)
	}
	job.Result = result

	log.Info().Str("report_uri", job.ReportURI).Msg("Analysis job completed")
	return nil
}

// IsRequestError reports whether err was caused by the caller rather than by
// an unavailable dependency.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, recurring.ErrInvalidConfiguration) ||
		errors.Is(err, sources.ErrUnknownSource)
}

func classify(err error) error {
	if IsRequestError(err) {
		return jobs.Permanent(err)
	}
	return err
}

// overrideInt maps a zero job param to "use the default". Negative values
// are passed through so validation rejects them.
func overrideInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func overrideFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
