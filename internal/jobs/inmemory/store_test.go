package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutwin/cashflow/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	job := &jobs.AnalysisJob{JobID: "j1", Type: jobs.JobTypeDetectRecurring, AccountID: "acc", Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))

	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status, "store must keep its own copy")

	got.AccountID = "mutated"
	again, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "acc", again.AccountID)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.Error(t, s.SaveJob(ctx, &jobs.AnalysisJob{}))

	_, err := s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	err = s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "x")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestStore_ListAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.SaveJob(ctx, &jobs.AnalysisJob{
			JobID:     id,
			Type:      jobs.JobTypeForecastCashFlow,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	require.NoError(t, s.UpdateJobStatus(ctx, "mid", jobs.JobStatusFailed, "boom"))

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].JobID)
	assert.Equal(t, "old", all[2].JobID)

	failed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)
}
