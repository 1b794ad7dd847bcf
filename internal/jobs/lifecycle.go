package jobs

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Prepare fills in the fields a freshly published job needs.
func Prepare(job *AnalysisJob, now time.Time) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = DefaultMaxRetries
	}
}

// MarkRunning records the start of an attempt.
func MarkRunning(job *AnalysisJob, now time.Time) {
	job.Status = JobStatusRunning
	job.StartedAt = &now
	job.CompletedAt = nil
}

// Finish records the outcome of an attempt and reports whether the job should
// be retried. A retry increments RetryCount and leaves the job in
// JobStatusRetrying. Errors wrapping ErrPermanent are never retried.
func Finish(job *AnalysisJob, err error, now time.Time) (retry bool) {
	job.CompletedAt = &now
	if err == nil {
		job.Status = JobStatusCompleted
		job.Error = ""
		return false
	}

	job.Error = err.Error()
	if job.RetryCount < job.MaxRetries && !errors.Is(err, ErrPermanent) {
		job.RetryCount++
		job.Status = JobStatusRetrying
		return true
	}
	job.Status = JobStatusFailed
	return false
}

// ResetForRetry returns a retrying job to the pending state.
func ResetForRetry(job *AnalysisJob) {
	job.Status = JobStatusPending
	job.StartedAt = nil
	job.CompletedAt = nil
}

// Backoff is the linear delay before the given retry attempt.
func Backoff(base time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	return time.Duration(retryCount) * base
}

// Matches reports whether job passes filter's field constraints.
func (f JobFilter) Matches(job *AnalysisJob) bool {
	if f.AccountID != "" && job.AccountID != f.AccountID {
		return false
	}
	if f.Type != "" && job.Type != f.Type {
		return false
	}
	if f.Status != "" && job.Status != f.Status {
		return false
	}
	return true
}

// Apply filters, orders newest first and paginates.
func (f JobFilter) Apply(all []*AnalysisJob) []*AnalysisJob {
	result := make([]*AnalysisJob, 0, len(all))
	for _, job := range all {
		if f.Matches(job) {
			result = append(result, job)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].JobID < result[j].JobID
	})

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return []*AnalysisJob{}
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result
}

// Clone returns a deep copy so stores never share mutable state with callers.
func Clone(job *AnalysisJob) *AnalysisJob {
	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	if job.Params.HorizonDays != nil {
		v := *job.Params.HorizonDays
		c.Params.HorizonDays = &v
	}
	if job.Params.IncludeRecurring != nil {
		v := *job.Params.IncludeRecurring
		c.Params.IncludeRecurring = &v
	}
	if job.Result != nil {
		c.Result = append([]byte(nil), job.Result...)
	}
	return &c
}

// WithMaxRetries returns a Publisher that gives jobs without a retry budget
// the given one. A non-positive max leaves DefaultMaxRetries in effect.
func WithMaxRetries(p Publisher, max int) Publisher {
	return retryBudget{Publisher: p, max: max}
}

type retryBudget struct {
	Publisher
	max int
}

func (r retryBudget) Publish(ctx context.Context, job *AnalysisJob) error {
	if job.MaxRetries == 0 && r.max > 0 {
		job.MaxRetries = r.max
	}
	return r.Publisher.Publish(ctx, job)
}
