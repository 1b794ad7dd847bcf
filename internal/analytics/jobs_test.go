package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/jobs"
	"github.com/rutwin/cashflow/internal/notionsync"
	"github.com/rutwin/cashflow/internal/recurring"
)

func TestHandleJob_ForecastUploadsAndStoresResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage := NewMockReportStorage(ctrl)
	storage.EXPECT().Fetch(gomock.Any(), "gs://exports/acc-1.json").Return([]byte(plaidExport), nil)
	storage.EXPECT().
		UploadJSON(gomock.Any(), "reports", "reports/forecast/acc-1/20240630T120000Z.json", gomock.Any()).
		Return("gs://reports/reports/forecast/acc-1/20240630T120000Z.json", nil)

	svc := newTestService(Deps{Storage: storage, ReportBucket: "reports"})

	horizon := 3
	job := &jobs.AnalysisJob{
		JobID:     "job-1",
		Type:      jobs.JobTypeForecastCashFlow,
		AccountID: "acc-1",
		Params:    jobs.Params{Source: "plaid", InputURI: "gs://exports/acc-1.json", HorizonDays: &horizon},
	}
	require.NoError(t, svc.HandleJob(context.Background(), job))

	assert.Equal(t, "gs://reports/reports/forecast/acc-1/20240630T120000Z.json", job.ReportURI)
	var result struct {
		Summary domain.ForecastSummary `json:"summary"`
		Days    []domain.ForecastDay   `json:"daily_forecast"`
	}
	require.NoError(t, json.Unmarshal(job.Result, &result))
	assert.Equal(t, 3, result.Summary.HorizonDays)
	assert.Len(t, result.Days, 4)
}

func TestHandleJob_DetectFromLedgerPublishes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := NewMockTransactionSource(ctrl)
	ledger.EXPECT().
		LoadTransactions(gomock.Any(), "acc-1", date(2024, 5, 31), date(2024, 6, 30)).
		Return([]domain.Transaction{
			{ID: "1", Amount: 9.99, Date: date(2024, 6, 1), Description: "Spotify"},
			{ID: "2", Amount: 9.99, Date: date(2024, 6, 8), Description: "Spotify"},
		}, nil)

	publisher := NewMockPatternPublisher(ctrl)
	publisher.EXPECT().
		SyncPatterns(gomock.Any(), "acc-1", gomock.Len(1), false).
		Return(notionsync.Stats{Created: 1}, nil)

	svc := newTestService(Deps{Transactions: ledger, Patterns: publisher})

	job := &jobs.AnalysisJob{
		JobID:     "job-2",
		Type:      jobs.JobTypeDetectRecurring,
		AccountID: "acc-1",
		Params:    jobs.Params{LookbackDays: 30},
	}
	require.NoError(t, svc.HandleJob(context.Background(), job))
	assert.Empty(t, job.ReportURI)

	var result map[string]any
	require.NoError(t, json.Unmarshal(job.Result, &result))
	assert.EqualValues(t, 1, result["transaction_count"])
	assert.Contains(t, result, "notion")
}

func TestHandleJob_AnalyzeUsesPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := NewMockTransactionSource(ctrl)
	ledger.EXPECT().
		LoadTransactions(gomock.Any(), "acc-1", date(2024, 6, 16), date(2024, 6, 30)).
		Return([]domain.Transaction{{ID: "1", Amount: -100, Date: date(2024, 6, 20), Description: "Refund"}}, nil)

	svc := newTestService(Deps{Transactions: ledger})

	job := &jobs.AnalysisJob{
		Type:      jobs.JobTypeAnalyzeCashFlow,
		AccountID: "acc-1",
		Params:    jobs.Params{PeriodDays: 14},
	}
	require.NoError(t, svc.HandleJob(context.Background(), job))

	var result map[string]any
	require.NoError(t, json.Unmarshal(job.Result, &result))
	assert.EqualValues(t, 14, result["period_days"])
	assert.Equal(t, "positive", result["cash_flow_status"])
	assert.Nil(t, result["inflow_outflow_ratio"])
}

func TestHandleJob_PermanentAndTransientFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := NewMockTransactionSource(ctrl)
	ledger.EXPECT().LoadTransactions(gomock.Any(), "acc-1", gomock.Any(), gomock.Any()).
		Return(nil, errors.New("timeout"))

	svc := newTestService(Deps{Transactions: ledger})
	ctx := context.Background()

	err := svc.HandleJob(ctx, &jobs.AnalysisJob{Type: "reconcile"})
	assert.ErrorIs(t, err, jobs.ErrPermanent)

	err = svc.HandleJob(ctx, &jobs.AnalysisJob{
		Type:   jobs.JobTypeDetectRecurring,
		Params: jobs.Params{Source: "mint", InputURI: "gs://b/o.json"},
	})
	assert.ErrorIs(t, err, jobs.ErrPermanent)

	err = svc.HandleJob(ctx, &jobs.AnalysisJob{Type: jobs.JobTypeForecastCashFlow, AccountID: "acc-1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, jobs.ErrPermanent, "ledger outages are retried")
}

func TestHandleJob_RejectsNegativeThresholds(t *testing.T) {
	negative := func(v int) *int { return &v }
	tests := []struct {
		name    string
		jobType jobs.JobType
		params  jobs.Params
	}{
		{name: "detect min occurrences", jobType: jobs.JobTypeDetectRecurring, params: jobs.Params{MinOccurrences: -5}},
		{name: "detect tolerance", jobType: jobs.JobTypeDetectRecurring, params: jobs.Params{AmountTolerance: -1}},
		{name: "detect lookback", jobType: jobs.JobTypeDetectRecurring, params: jobs.Params{LookbackDays: -30}},
		{name: "forecast horizon", jobType: jobs.JobTypeForecastCashFlow, params: jobs.Params{HorizonDays: negative(-1)}},
		{name: "forecast tolerance", jobType: jobs.JobTypeForecastCashFlow, params: jobs.Params{AmountTolerance: -0.5}},
		{name: "analyze period", jobType: jobs.JobTypeAnalyzeCashFlow, params: jobs.Params{PeriodDays: -7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No expectations: the ledger must not be queried.
			ledger := NewMockTransactionSource(ctrl)
			svc := newTestService(Deps{Transactions: ledger})

			job := &jobs.AnalysisJob{Type: tt.jobType, AccountID: "acc-1", Params: tt.params}
			err := svc.HandleJob(context.Background(), job)
			require.Error(t, err)
			assert.ErrorIs(t, err, jobs.ErrPermanent)
			assert.ErrorIs(t, err, recurring.ErrInvalidConfiguration)
			assert.Nil(t, job.Result)
		})
	}
}

func TestOverrideValues(t *testing.T) {
	assert.Nil(t, overrideInt(0))
	assert.Equal(t, -3, *overrideInt(-3))
	assert.Equal(t, 7, *overrideInt(7))
	assert.Nil(t, overrideFloat(0))
	assert.Equal(t, -0.5, *overrideFloat(-0.5))
}
