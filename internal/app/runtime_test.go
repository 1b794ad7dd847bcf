package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutwin/cashflow/internal/analytics"
	"github.com/rutwin/cashflow/internal/config"
	"github.com/rutwin/cashflow/internal/jobs"
)

func TestBuild_InProcessDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Jobs.MaxRetries = 1
	cfg.Jobs.RetryBackoff = time.Millisecond

	rt, err := Build(context.Background(), cfg, zerolog.New(io.Discard), Options{WithJobs: true})
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close()) }()

	require.NotNil(t, rt.Service)
	require.NotNil(t, rt.Store)
	require.NotNil(t, rt.Queue)
	assert.Nil(t, rt.Storage, "no bucket, no storage client")
	assert.False(t, rt.Service.UploadsEnabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rt.Queue.Start(ctx, rt.Service.HandleJob))

	job := &jobs.AnalysisJob{
		Type:      jobs.JobTypeDetectRecurring,
		AccountID: "acc-1",
	}
	require.NoError(t, rt.Publisher.Publish(ctx, job))
	assert.Equal(t, 1, job.MaxRetries, "configured retry budget applies")

	// Without a ledger the job can never succeed, so it fails on the first
	// attempt instead of burning retries.
	require.Eventually(t, func() bool {
		got, err := rt.Store.GetJob(ctx, job.JobID)
		return err == nil && got.Status == jobs.JobStatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	got, err := rt.Store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Zero(t, got.RetryCount)
	assert.Contains(t, got.Error, "no ledger is configured")
}

func TestBuild_WithoutJobs(t *testing.T) {
	rt, err := Build(context.Background(), config.Default(), zerolog.New(io.Discard), Options{})
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Queue)
	assert.Nil(t, rt.Publisher)

	report, err := rt.Service.AnalyzeCashFlow(context.Background(), analytics.CashFlowRequest{
		Input: analytics.Input{
			Source:       "ledger",
			Transactions: json.RawMessage(`[{"transaction_id": "1", "amount": 10, "direction": "DEBIT", "transaction_date": "` + time.Now().Format("2006-01-02") + `", "raw_description": "Lunch"}]`),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, report.PeriodDays)
}

func TestRuntimeClose_JoinsErrors(t *testing.T) {
	var order []string
	rt := &Runtime{closers: []func() error{
		func() error { order = append(order, "first"); return errors.New("first failed") },
		func() error { order = append(order, "second"); return nil },
	}}

	err := rt.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, rt.Close(), "closing twice is a no-op")
}
