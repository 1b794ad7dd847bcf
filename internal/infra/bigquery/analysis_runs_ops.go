package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/rutwin/cashflow/internal/logger"
)

const maxErrorMessageLen = 2000

// StartAnalysisRun inserts a row with status=RUNNING and returns the generated
// analysis_run_id.
func (s *Store) StartAnalysisRun(ctx context.Context, kind, accountID string) (string, error) {
	runID := uuid.NewString()

	q := s.client.Query(fmt.Sprintf(`
		INSERT %s (
			analysis_run_id,
			kind,
			account_id,
			started_ts,
			status
		)
		VALUES (
			@analysis_run_id,
			@kind,
			@account_id,
			@started_ts,
			@status
		)
	`, s.table(analysisRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "analysis_run_id", Value: runID},
		{Name: "kind", Value: kind},
		{Name: "account_id", Value: accountID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: "RUNNING"},
	}

	if err := runAndWait(ctx, q); err != nil {
		return "", fmt.Errorf("StartAnalysisRun: %w", err)
	}
	return runID, nil
}

// MarkAnalysisRunFailed sets status=FAILED. Failures to record the failure are
// logged, not returned.
func (s *Store) MarkAnalysisRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if len(errMsg) > maxErrorMessageLen {
			errMsg = errMsg[:maxErrorMessageLen]
		}
	}

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE analysis_run_id = @analysis_run_id
	`, s.table(analysisRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "analysis_run_id", Value: runID},
	}

	if err := runAndWait(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("analysis_run_id", runID).
			Msg("MarkAnalysisRunFailed: update failed")
	}
}

// MarkAnalysisRunSucceeded sets status=SUCCESS and stores summary as JSON.
func (s *Store) MarkAnalysisRunSucceeded(ctx context.Context, runID string, summary any) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: encoding summary: %w", err)
	}

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    summary = PARSE_JSON(@summary)
		WHERE analysis_run_id = @analysis_run_id
	`, s.table(analysisRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "summary", Value: string(payload)},
		{Name: "analysis_run_id", Value: runID},
	}

	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: %w", err)
	}
	return nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
