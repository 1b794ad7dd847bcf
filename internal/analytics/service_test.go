package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/forecast"
	"github.com/rutwin/cashflow/internal/notionsync"
	"github.com/rutwin/cashflow/internal/recurring"
	"github.com/rutwin/cashflow/internal/sources"
)

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

// plaidExport has a monthly subscription, a monthly salary, a one-off
// purchase and one record without an amount.
const plaidExport = `[
	{"transaction_id": "n1", "account_id": "acc-1", "amount": 15.99, "date": "2024-04-01", "name": "NETFLIX.COM", "merchant_name": "Netflix"},
	{"transaction_id": "n2", "account_id": "acc-1", "amount": 15.99, "date": "2024-05-01", "name": "NETFLIX.COM", "merchant_name": "Netflix"},
	{"transaction_id": "n3", "account_id": "acc-1", "amount": 15.99, "date": "2024-05-31", "name": "NETFLIX.COM", "merchant_name": "Netflix"},
	{"transaction_id": "p1", "account_id": "acc-1", "amount": -2000, "date": "2024-04-05", "name": "ACME PAYROLL"},
	{"transaction_id": "p2", "account_id": "acc-1", "amount": -2000, "date": "2024-05-05", "name": "ACME PAYROLL"},
	{"transaction_id": "p3", "account_id": "acc-1", "amount": -2000, "date": "2024-06-04", "name": "ACME PAYROLL"},
	{"transaction_id": "c1", "account_id": "acc-1", "amount": 4.50, "date": "2024-06-20", "name": "Corner Coffee"},
	{"transaction_id": "bad", "account_id": "acc-1", "date": "2024-06-21", "name": "No Amount"}
]`

func intPtr(v int) *int { return &v }

func newTestService(d Deps) *Service {
	d.Forecaster = &forecast.Forecaster{Now: forecast.FixedClock(testNow)}
	d.Defaults = DefaultDefaults()
	d.Logger = zerolog.New(io.Discard)
	return NewService(d)
}

func plaidInput() Input {
	return Input{Source: "plaid", AccountID: "acc-1", Transactions: json.RawMessage(plaidExport)}
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestIdentifyRecurring_InlineTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runs := NewMockRunRecorder(ctrl)
	runs.EXPECT().StartAnalysisRun(gomock.Any(), KindRecurring, "acc-1").Return("run-1", nil)
	runs.EXPECT().MarkAnalysisRunSucceeded(gomock.Any(), "run-1", gomock.Any()).Return(nil)

	svc := newTestService(Deps{Runs: runs})

	report, err := svc.IdentifyRecurring(context.Background(), RecurringRequest{Input: plaidInput()})
	require.NoError(t, err)

	assert.Equal(t, "acc-1", report.AccountID)
	assert.Equal(t, 2, report.Count)
	require.Len(t, report.Patterns, 2)
	require.Len(t, report.Income, 1)
	require.Len(t, report.Expenses, 1)
	assert.InDelta(t, 2000.0, report.TotalIncome, 0.001)
	assert.InDelta(t, 15.99, report.TotalExpenses, 0.001)
	assert.Len(t, report.ByFrequency[domain.FrequencyMonthly], 2)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, AnalysisPeriod{Days: 90, StartDate: date(2024, 4, 1), EndDate: date(2024, 6, 30)}, report.AnalysisPeriod)
	assert.Equal(t, testNow, report.AnalysisDate)
	assert.Nil(t, report.Notion)
	assert.Empty(t, report.ReportURI)

	body, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	for _, key := range []string{
		"recurring_transactions", "recurring_income", "recurring_expenses",
		"total_recurring_income", "total_recurring_expenses", "grouped_by_frequency",
		"transaction_count", "analysis_period", "analysis_date",
	} {
		assert.Contains(t, decoded, key)
	}
}

func TestIdentifyRecurring_LoadsLedgerWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := NewMockTransactionSource(ctrl)
	ledger.EXPECT().
		LoadTransactions(gomock.Any(), "acc-9", date(2024, 5, 31), date(2024, 6, 30)).
		Return([]domain.Transaction{
			{ID: "1", Amount: 9.99, Date: date(2024, 6, 1), Description: "Spotify"},
			{ID: "2", Amount: 9.99, Date: date(2024, 6, 8), Description: "Spotify"},
			{ID: "3", Amount: 9.99, Date: date(2024, 6, 15), Description: "Spotify"},
		}, nil)

	svc := newTestService(Deps{Transactions: ledger})

	report, err := svc.IdentifyRecurring(context.Background(), RecurringRequest{
		Input: Input{AccountID: "acc-9"},
		Days:  intPtr(30),
	})
	require.NoError(t, err)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, domain.FrequencyWeekly, report.Patterns[0].Frequency)
	assert.Equal(t, 30, report.AnalysisPeriod.Days)
}

func TestIdentifyRecurring_RequestErrors(t *testing.T) {
	svc := newTestService(Deps{})
	ctx := context.Background()

	_, err := svc.IdentifyRecurring(ctx, RecurringRequest{Input: Input{AccountID: "acc-1"}})
	assert.ErrorIs(t, err, ErrNoTransactionSource)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.IdentifyRecurring(ctx, RecurringRequest{Input: plaidInput(), MinOccurrences: intPtr(0)})
	assert.ErrorIs(t, err, recurring.ErrInvalidConfiguration)

	_, err = svc.IdentifyRecurring(ctx, RecurringRequest{Input: plaidInput(), Days: intPtr(-1)})
	assert.ErrorIs(t, err, recurring.ErrInvalidConfiguration)

	in := plaidInput()
	in.Source = "mint"
	_, err = svc.IdentifyRecurring(ctx, RecurringRequest{Input: in})
	assert.ErrorIs(t, err, sources.ErrUnknownSource)

	in = plaidInput()
	in.Transactions = json.RawMessage(`{"not": "an array"}`)
	_, err = svc.IdentifyRecurring(ctx, RecurringRequest{Input: in})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.IdentifyRecurring(ctx, RecurringRequest{Input: plaidInput(), Upload: true})
	assert.ErrorIs(t, err, ErrInvalidRequest, "uploads need storage and a bucket")
}

func TestIdentifyRecurring_PublishesToNotion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	publisher := NewMockPatternPublisher(ctrl)
	publisher.EXPECT().
		SyncPatterns(gomock.Any(), "acc-1", gomock.Len(2), false).
		Return(notionsync.Stats{Created: 1, Updated: 1}, nil)

	svc := newTestService(Deps{Patterns: publisher})

	report, err := svc.IdentifyRecurring(context.Background(), RecurringRequest{Input: plaidInput(), Publish: true})
	require.NoError(t, err)
	require.NotNil(t, report.Notion)
	assert.Equal(t, SyncResult{Created: 1, Updated: 1}, *report.Notion)
}

func TestIdentifyRecurring_NotionFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	publisher := NewMockPatternPublisher(ctrl)
	publisher.EXPECT().
		SyncPatterns(gomock.Any(), "acc-1", gomock.Any(), false).
		Return(notionsync.Stats{}, errors.New("notion down"))

	svc := newTestService(Deps{Patterns: publisher})

	report, err := svc.IdentifyRecurring(context.Background(), RecurringRequest{Input: plaidInput(), Publish: true})
	require.NoError(t, err)
	assert.Nil(t, report.Notion)
	assert.Equal(t, 2, report.Count)
}

func TestForecastCashFlow_LedgerBalancesNarrativeAndUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	balances := NewMockBalanceSource(ctrl)
	balances.EXPECT().LoadBalances(gomock.Any(), "acc-1").Return([]domain.AccountBalanceSnapshot{
		{AccountID: "acc-2", CurrentBalance: 50},
		{AccountID: "acc-1", CurrentBalance: 1000},
	}, nil)

	narrator := NewMockNarrator(ctrl)
	narrator.EXPECT().Narrate(gomock.Any(), "acc-1", gomock.Any()).Return("Balance stays healthy.", nil)

	storage := NewMockReportStorage(ctrl)
	storage.EXPECT().
		UploadJSON(gomock.Any(), "reports", "reports/forecast/acc-1/20240630T120000Z.json", gomock.Any()).
		Return("gs://reports/reports/forecast/acc-1/20240630T120000Z.json", nil)

	svc := newTestService(Deps{
		Balances:     balances,
		Narrator:     narrator,
		Storage:      storage,
		ReportBucket: "reports",
	})

	report, err := svc.ForecastCashFlow(context.Background(), ForecastRequest{
		Input:       plaidInput(),
		HorizonDays: intPtr(7),
		Narrative:   true,
		Upload:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1000.0, report.Summary.StartingBalance)
	assert.Len(t, report.Days, 8)
	assert.Equal(t, date(2024, 6, 30), report.Summary.StartDate)
	assert.Equal(t, date(2024, 7, 7), report.Summary.EndDate)
	assert.Len(t, report.Recurring, 2)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "Balance stays healthy.", report.Narrative)
	assert.Equal(t, "gs://reports/reports/forecast/acc-1/20240630T120000Z.json", report.ReportURI)
	assert.InDelta(t, report.Summary.EndingBalance, report.Days[len(report.Days)-1].RunningBalance, 1e-9)
}

func TestForecastCashFlow_ExplicitStartingBalanceSkipsBalanceLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	narrator := NewMockNarrator(ctrl)
	narrator.EXPECT().Narrate(gomock.Any(), "acc-1", gomock.Any()).Return("", errors.New("quota exceeded"))

	// No LoadBalances expectation: the mock fails the test if it is called.
	svc := newTestService(Deps{Balances: NewMockBalanceSource(ctrl), Narrator: narrator})

	start := 250.0
	include := false
	report, err := svc.ForecastCashFlow(context.Background(), ForecastRequest{
		Input:            plaidInput(),
		HorizonDays:      intPtr(0),
		IncludeRecurring: &include,
		StartingBalance:  &start,
		Narrative:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, 250.0, report.Summary.StartingBalance)
	assert.Len(t, report.Days, 1)
	assert.Empty(t, report.Recurring)
	assert.Empty(t, report.Narrative, "narrator failures leave the narrative empty")
}

func TestForecastCashFlow_InlineBalancesSumWithoutAccount(t *testing.T) {
	svc := newTestService(Deps{})

	in := plaidInput()
	in.AccountID = ""
	in.Balances = json.RawMessage(`[
		{"account_id": "acc-1", "balances": {"current": 100.5}},
		{"account_id": "acc-2", "current": 20}
	]`)
	report, err := svc.ForecastCashFlow(context.Background(), ForecastRequest{Input: in})
	require.NoError(t, err)
	assert.InDelta(t, 120.5, report.Summary.StartingBalance, 1e-9)
	assert.Len(t, report.Days, forecast.DefaultHorizonDays+1)
}

func TestForecastCashFlow_InvalidOptions(t *testing.T) {
	svc := newTestService(Deps{})

	_, err := svc.ForecastCashFlow(context.Background(), ForecastRequest{Input: plaidInput(), HorizonDays: intPtr(-1)})
	assert.ErrorIs(t, err, forecast.ErrInvalidConfiguration)

	_, err = svc.ForecastCashFlow(context.Background(), ForecastRequest{Input: plaidInput(), LookbackDays: intPtr(0)})
	assert.ErrorIs(t, err, forecast.ErrInvalidConfiguration)
}

func TestForecastCashFlow_ExportFromStorage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	export := `{"transactions": ` + plaidExport + `, "accounts": [{"account_id": "acc-1", "balances": {"current": 500}}]}`
	storage := NewMockReportStorage(ctrl)
	storage.EXPECT().Fetch(gomock.Any(), "gs://exports/plaid.json").Return([]byte(export), nil)

	// Balances come from the export, so the balance source is never asked.
	svc := newTestService(Deps{Storage: storage, Balances: NewMockBalanceSource(ctrl)})

	report, err := svc.ForecastCashFlow(context.Background(), ForecastRequest{
		Input: Input{Source: "plaid", AccountID: "acc-1", InputURI: "gs://exports/plaid.json"},
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, report.Summary.StartingBalance)
	assert.Equal(t, 1, report.Skipped)

	_, err = svc.ForecastCashFlow(context.Background(), ForecastRequest{
		Input: Input{Source: "plaid", InputURI: "/etc/passwd"},
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestForecastCashFlow_RecordsFailedRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage := NewMockReportStorage(ctrl)
	storage.EXPECT().UploadJSON(gomock.Any(), "reports", gomock.Any(), gomock.Any()).Return("", errors.New("bucket missing"))

	runs := NewMockRunRecorder(ctrl)
	runs.EXPECT().StartAnalysisRun(gomock.Any(), KindForecast, "acc-1").Return("run-7", nil)
	runs.EXPECT().MarkAnalysisRunFailed(gomock.Any(), "run-7", gomock.Any())

	svc := newTestService(Deps{Runs: runs, Storage: storage, ReportBucket: "reports"})

	start := 0.0
	_, err := svc.ForecastCashFlow(context.Background(), ForecastRequest{
		Input:           plaidInput(),
		StartingBalance: &start,
		Upload:          true,
	})
	require.Error(t, err)
	assert.False(t, IsRequestError(err))
}

func TestAnalyzeCashFlow(t *testing.T) {
	svc := newTestService(Deps{})

	report, err := svc.AnalyzeCashFlow(context.Background(), CashFlowRequest{Input: plaidInput()})
	require.NoError(t, err)

	// 2024-05-31 .. 2024-06-30: one subscription charge, one salary, one coffee.
	assert.Equal(t, 30, report.PeriodDays)
	assert.Equal(t, 3, report.TransactionCount)
	assert.InDelta(t, 2000.0, report.Inflows, 1e-9)
	assert.InDelta(t, 20.49, report.Outflows, 1e-9)
	assert.InDelta(t, 1979.51, report.NetCashFlow, 1e-9)
	assert.Equal(t, forecast.StatusPositive, report.Status)
	require.NotNil(t, report.InflowOutflowRatio)
	assert.InDelta(t, 2000/20.49, *report.InflowOutflowRatio, 1e-9)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, date(2024, 5, 31), report.StartDate)
	assert.Equal(t, date(2024, 6, 30), report.EndDate)

	_, err = svc.AnalyzeCashFlow(context.Background(), CashFlowRequest{Input: plaidInput(), PeriodDays: intPtr(0)})
	assert.ErrorIs(t, err, recurring.ErrInvalidConfiguration)
}

func TestAnalyzeCashFlow_LedgerError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := NewMockTransactionSource(ctrl)
	ledger.EXPECT().
		LoadTransactions(gomock.Any(), "acc-1", date(2024, 6, 23), date(2024, 6, 30)).
		Return(nil, errors.New("bigquery unavailable"))

	svc := newTestService(Deps{Transactions: ledger})

	_, err := svc.AnalyzeCashFlow(context.Background(), CashFlowRequest{
		Input:      Input{AccountID: "acc-1"},
		PeriodDays: intPtr(7),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bigquery unavailable")
	assert.False(t, IsRequestError(err))
}
