package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid job params")

// ErrPermanent marks a handler failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the job fails without further retries.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeDetectRecurring runs recurring-pattern detection for an account.
	JobTypeDetectRecurring JobType = "detect_recurring"
	// JobTypeForecastCashFlow projects an account's balance forward.
	JobTypeForecastCashFlow JobType = "forecast_cash_flow"
	// JobTypeAnalyzeCashFlow summarizes an account's past cash flow.
	JobTypeAnalyzeCashFlow JobType = "analyze_cash_flow"
)

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeDetectRecurring, JobTypeForecastCashFlow, JobTypeAnalyzeCashFlow:
		return true
	}
	return false
}

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a published job does not set MaxRetries.
const DefaultMaxRetries = 3

// Params carries the per-job analysis overrides. Zero values mean "use the
// configured default".
type Params struct {
	Source           string  `json:"source,omitempty"`
	InputURI         string  `json:"input_uri,omitempty"`
	LookbackDays     int     `json:"lookback_days,omitempty"`
	HorizonDays      *int    `json:"horizon_days,omitempty"`
	PeriodDays       int     `json:"period_days,omitempty"`
	IncludeRecurring *bool   `json:"include_recurring,omitempty"`
	MinOccurrences   int     `json:"min_occurrences,omitempty"`
	AmountTolerance  float64 `json:"amount_tolerance,omitempty"`
	Narrative        bool    `json:"narrative,omitempty"`
}

// Validate rejects negative overrides. Zero still means "use the default".
func (p Params) Validate() error {
	var errs []error
	negative := func(name string, bad bool) {
		if bad {
			errs = append(errs, fmt.Errorf("%w: %s must not be negative", ErrInvalidParams, name))
		}
	}
	negative("lookback_days", p.LookbackDays < 0)
	negative("horizon_days", p.HorizonDays != nil && *p.HorizonDays < 0)
	negative("period_days", p.PeriodDays < 0)
	negative("min_occurrences", p.MinOccurrences < 0)
	negative("amount_tolerance", p.AmountTolerance < 0)
	return errors.Join(errs...)
}

// AnalysisJob is one queued detect, forecast or analyze request.
type AnalysisJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	Type      JobType `json:"type"`
	AccountID string  `json:"account_id,omitempty"`
	Params    Params  `json:"params"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Result is the JSON encoded analysis output of a completed job.
	Result json.RawMessage `json:"result,omitempty"`
	// ReportURI points at the uploaded report, when one was written.
	ReportURI string `json:"report_uri,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *AnalysisJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *AnalysisJob) GetType() JobType {
	return j.Type
}

// GetStatus implements the Job interface.
func (j *AnalysisJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// Publish enqueues an analysis job, filling in ID and defaults.
	Publish(ctx context.Context, job *AnalysisJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may set Result and ReportURI on the job; a
// returned error marks the attempt failed and schedules a retry if any remain.
type JobHandler func(ctx context.Context, job *AnalysisJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *AnalysisJob) error

	// GetJob retrieves a job by ID. Unknown IDs yield ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*AnalysisJob, error)

	// ListJobs retrieves jobs, newest first, with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalysisJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	AccountID string
	Type      JobType
	Status    JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
