// Package analytics runs recurring detection, forecasting and cash-flow
// analysis over transactions supplied inline, read from an export, or loaded
// from the ledger.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/forecast"
	"github.com/rutwin/cashflow/internal/gcs"
	"github.com/rutwin/cashflow/internal/metrics"
	"github.com/rutwin/cashflow/internal/recurring"
	"github.com/rutwin/cashflow/internal/sources"
)

var (
	// ErrInvalidRequest marks a request that can never succeed as sent.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoTransactionSource is returned when a request omits transactions
	// and no ledger is configured to load them from.
	ErrNoTransactionSource = fmt.Errorf("%w: transactions are required when no ledger is configured", ErrInvalidRequest)
)

// Report kinds, used for run records and report object names.
const (
	KindRecurring = "recurring"
	KindForecast  = "forecast"
	KindCashFlow  = "cashflow"
)

// Defaults are the analysis settings applied when a request leaves a field out.
type Defaults struct {
	Recurring  recurring.Config
	Forecast   forecast.Options
	PeriodDays int
}

// DefaultDefaults mirrors the configuration defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Recurring:  recurring.DefaultConfig(),
		Forecast:   forecast.DefaultOptions(),
		PeriodDays: forecast.DefaultPeriodDays,
	}
}

// Deps are the collaborators of a Service. Only Defaults is required; every
// other dependency switches a feature off when nil.
type Deps struct {
	Transactions TransactionSource
	Balances     BalanceSource
	Runs         RunRecorder
	Storage      ReportStorage
	ReportBucket string
	Narrator     Narrator
	Patterns     PatternPublisher
	Forecaster   *forecast.Forecaster
	Defaults     Defaults
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// Service is safe for concurrent use.
type Service struct {
	transactions TransactionSource
	balances     BalanceSource
	runs         RunRecorder
	storage      ReportStorage
	bucket       string
	narrator     Narrator
	patterns     PatternPublisher
	forecaster   *forecast.Forecaster
	defaults     Defaults
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

// NewService wires a Service.
func NewService(d Deps) *Service {
	f := d.Forecaster
	if f == nil {
		f = forecast.NewForecaster()
	}
	return &Service{
		transactions: d.Transactions,
		balances:     d.Balances,
		runs:         d.Runs,
		storage:      d.Storage,
		bucket:       d.ReportBucket,
		narrator:     d.Narrator,
		patterns:     d.Patterns,
		forecaster:   f,
		defaults:     d.Defaults,
		metrics:      d.Metrics,
		log:          d.Logger.With().Str("component", "analytics").Logger(),
	}
}

func (s *Service) now() time.Time {
	if s.forecaster.Now != nil {
		return s.forecaster.Now()
	}
	return time.Now()
}

func (s *Service) today() civil.Date {
	return domain.Today(s.now())
}

// Input selects where the transactions of a request come from. Inline
// Transactions win over InputURI, which wins over the ledger.
type Input struct {
	Source       string          `json:"source,omitempty"`
	AccountID    string          `json:"account_id,omitempty"`
	Transactions json.RawMessage `json:"transactions,omitempty"`
	Balances     json.RawMessage `json:"balances,omitempty"`
	// InputURI is a gs:// export object.
	InputURI string `json:"input_uri,omitempty"`
}

// RecurringRequest asks for recurring pattern detection.
type RecurringRequest struct {
	Input
	// Days is the ledger window when transactions are not supplied.
	Days            *int     `json:"days,omitempty"`
	MinOccurrences  *int     `json:"min_occurrences,omitempty"`
	AmountTolerance *float64 `json:"amount_tolerance,omitempty"`
	// Publish mirrors the patterns into Notion when a publisher is configured.
	Publish bool `json:"publish,omitempty"`
	Upload  bool `json:"upload,omitempty"`
}

// ForecastRequest asks for a balance projection.
type ForecastRequest struct {
	Input
	HorizonDays      *int     `json:"horizon_days,omitempty"`
	LookbackDays     *int     `json:"lookback_days,omitempty"`
	IncludeRecurring *bool    `json:"include_recurring,omitempty"`
	MinOccurrences   *int     `json:"min_occurrences,omitempty"`
	AmountTolerance  *float64 `json:"amount_tolerance,omitempty"`
	// StartingBalance overrides any balance snapshot.
	StartingBalance *float64 `json:"starting_balance,omitempty"`
	Narrative       bool     `json:"narrative,omitempty"`
	Upload          bool     `json:"upload,omitempty"`
}

// CashFlowRequest asks for a historical cash-flow analysis.
type CashFlowRequest struct {
	Input
	PeriodDays *int `json:"period_days,omitempty"`
	Upload     bool `json:"upload,omitempty"`
}

// AnalysisPeriod is the window a recurring detection looked at.
type AnalysisPeriod struct {
	Days      int        `json:"days"`
	StartDate civil.Date `json:"start_date"`
	EndDate   civil.Date `json:"end_date"`
}

// RecurringReport is the result of IdentifyRecurring.
type RecurringReport struct {
	AccountID string                    `json:"account_id,omitempty"`
	Patterns  []domain.RecurringPattern `json:"recurring_transactions"`
	recurring.Summary
	AnalysisPeriod AnalysisPeriod `json:"analysis_period"`
	AnalysisDate   time.Time      `json:"analysis_date"`
	Skipped        int            `json:"skipped"`
	Notion         *SyncResult    `json:"notion,omitempty"`
	ReportURI      string         `json:"report_uri,omitempty"`
}

// SyncResult reports the outcome of mirroring patterns into Notion.
type SyncResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// ForecastReport is the result of ForecastCashFlow.
type ForecastReport struct {
	AccountID string `json:"account_id,omitempty"`
	forecast.Result
	Narrative    string    `json:"narrative,omitempty"`
	AnalysisDate time.Time `json:"analysis_date"`
	ReportURI    string    `json:"report_uri,omitempty"`
}

// CashFlowReport is the result of AnalyzeCashFlow.
type CashFlowReport struct {
	AccountID string `json:"account_id,omitempty"`
	forecast.Analysis
	StartDate    civil.Date `json:"start_date"`
	EndDate      civil.Date `json:"end_date"`
	AnalysisDate time.Time  `json:"analysis_date"`
	ReportURI    string     `json:"report_uri,omitempty"`
}

// IdentifyRecurring detects recurring patterns and summarizes them into
// income and expenses.
func (s *Service) IdentifyRecurring(ctx context.Context, req RecurringRequest) (report *RecurringReport, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveAnalysis(KindRecurring, started, err) }()

	cfg := s.defaults.Recurring
	if req.MinOccurrences != nil {
		cfg.MinOccurrences = *req.MinOccurrences
	}
	if req.AmountTolerance != nil {
		cfg.AmountTolerance = *req.AmountTolerance
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("IdentifyRecurring: %w", err)
	}
	days := s.defaults.Forecast.LookbackDays
	if req.Days != nil {
		days = *req.Days
	}
	if days <= 0 {
		return nil, fmt.Errorf("IdentifyRecurring: %w: days must be positive, got %d", recurring.ErrInvalidConfiguration, days)
	}

	today := s.today()
	from := today.AddDays(-days)
	data, err := s.load(ctx, req.Input, from, today, false)
	if err != nil {
		return nil, fmt.Errorf("IdentifyRecurring: %w", err)
	}

	runID := s.startRun(ctx, KindRecurring, req.AccountID)

	result, err := recurring.Detect(data.transactions, cfg)
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, fmt.Errorf("IdentifyRecurring: detecting: %w", err)
	}
	s.metrics.ObservePatterns(len(result.Patterns))

	report = &RecurringReport{
		AccountID:      req.AccountID,
		Patterns:       result.Patterns,
		Summary:        recurring.Summarize(result.Patterns),
		AnalysisPeriod: AnalysisPeriod{Days: days, StartDate: from, EndDate: today},
		AnalysisDate:   s.now().UTC(),
		Skipped:        data.skipped + result.Skipped,
	}
	if report.Patterns == nil {
		report.Patterns = []domain.RecurringPattern{}
	}

	if req.Publish {
		report.Notion = s.publishPatterns(ctx, req.AccountID, result.Patterns)
	}
	if req.Upload {
		if report.ReportURI, err = s.upload(ctx, KindRecurring, req.AccountID, report); err != nil {
			s.failRun(ctx, runID, err)
			return nil, fmt.Errorf("IdentifyRecurring: %w", err)
		}
	}

	s.succeedRun(ctx, runID, map[string]any{
		"pattern_count":            report.Count,
		"total_recurring_income":   report.TotalIncome,
		"total_recurring_expenses": report.TotalExpenses,
		"skipped":                  report.Skipped,
	})

	s.log.Info().
		Str("account_id", req.AccountID).
		Int("pattern_count", report.Count).
		Int("skipped", report.Skipped).
		Msg("Recurring detection completed")
	return report, nil
}

// ForecastCashFlow projects the balance forward from history and the starting
// balance.
func (s *Service) ForecastCashFlow(ctx context.Context, req ForecastRequest) (report *ForecastReport, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveAnalysis(KindForecast, started, err) }()

	opts := s.defaults.Forecast
	if req.HorizonDays != nil {
		opts.HorizonDays = *req.HorizonDays
	}
	if req.LookbackDays != nil {
		opts.LookbackDays = *req.LookbackDays
	}
	if req.IncludeRecurring != nil {
		opts.IncludeRecurring = *req.IncludeRecurring
	}
	if req.MinOccurrences != nil {
		opts.Recurring.MinOccurrences = *req.MinOccurrences
	}
	if req.AmountTolerance != nil {
		opts.Recurring.AmountTolerance = *req.AmountTolerance
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("ForecastCashFlow: %w", err)
	}

	today := s.today()
	data, err := s.load(ctx, req.Input, today.AddDays(-opts.LookbackDays), today, req.StartingBalance == nil)
	if err != nil {
		return nil, fmt.Errorf("ForecastCashFlow: %w", err)
	}

	balance := domain.StartingBalance(data.balances, req.AccountID)
	if req.StartingBalance != nil {
		balance = *req.StartingBalance
	}

	runID := s.startRun(ctx, KindForecast, req.AccountID)

	result, err := s.forecaster.Forecast(balance, data.transactions, opts)
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, fmt.Errorf("ForecastCashFlow: forecasting: %w", err)
	}
	result.Skipped += data.skipped
	s.metrics.ObserveForecast(req.AccountID, result.Summary.EndingBalance)

	report = &ForecastReport{
		AccountID:    req.AccountID,
		Result:       result,
		AnalysisDate: s.now().UTC(),
	}

	if req.Narrative {
		report.Narrative = s.narrate(ctx, req.AccountID, result)
	}
	if req.Upload {
		if report.ReportURI, err = s.upload(ctx, KindForecast, req.AccountID, report); err != nil {
			s.failRun(ctx, runID, err)
			return nil, fmt.Errorf("ForecastCashFlow: %w", err)
		}
	}

	s.succeedRun(ctx, runID, result.Summary)

	s.log.Info().
		Str("account_id", req.AccountID).
		Int("horizon_days", opts.HorizonDays).
		Float64("ending_balance", result.Summary.EndingBalance).
		Int("skipped", result.Skipped).
		Msg("Forecast completed")
	return report, nil
}

// AnalyzeCashFlow totals inflows and outflows over a past period.
func (s *Service) AnalyzeCashFlow(ctx context.Context, req CashFlowRequest) (report *CashFlowReport, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveAnalysis(KindCashFlow, started, err) }()

	period := s.defaults.PeriodDays
	if req.PeriodDays != nil {
		period = *req.PeriodDays
	}
	if period <= 0 {
		return nil, fmt.Errorf("AnalyzeCashFlow: %w: period_days must be positive, got %d", recurring.ErrInvalidConfiguration, period)
	}

	today := s.today()
	from := today.AddDays(-period)
	data, err := s.load(ctx, req.Input, from, today, false)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeCashFlow: %w", err)
	}

	runID := s.startRun(ctx, KindCashFlow, req.AccountID)

	analysis, err := s.forecaster.Analyze(data.transactions, period)
	if err != nil {
		s.failRun(ctx, runID, err)
		return nil, fmt.Errorf("AnalyzeCashFlow: analyzing: %w", err)
	}
	analysis.Skipped += data.skipped

	report = &CashFlowReport{
		AccountID:    req.AccountID,
		Analysis:     analysis,
		StartDate:    from,
		EndDate:      today,
		AnalysisDate: s.now().UTC(),
	}
	if req.Upload {
		if report.ReportURI, err = s.upload(ctx, KindCashFlow, req.AccountID, report); err != nil {
			s.failRun(ctx, runID, err)
			return nil, fmt.Errorf("AnalyzeCashFlow: %w", err)
		}
	}

	s.succeedRun(ctx, runID, analysis)

	s.log.Info().
		Str("account_id", req.AccountID).
		Int("period_days", period).
		Float64("net_cash_flow", analysis.NetCashFlow).
		Str("status", string(analysis.Status)).
		Msg("Cash flow analysis completed")
	return report, nil
}

// UploadsEnabled reports whether reports can be written to object storage.
func (s *Service) UploadsEnabled() bool {
	return s.storage != nil && s.bucket != ""
}

type dataset struct {
	transactions []domain.Transaction
	balances     []domain.AccountBalanceSnapshot
	skipped      int
}

// load resolves the transactions of a request. Balances are only looked up
// when wantBalances is set.
func (s *Service) load(ctx context.Context, in Input, from, to civil.Date, wantBalances bool) (dataset, error) {
	var data dataset

	src, err := sources.ParseSource(in.Source)
	if err != nil {
		return dataset{}, err
	}

	exportBalances := false
	switch {
	case hasPayload(in.Transactions):
		txns, skipped, err := sources.DecodeTransactions(src, in.Transactions)
		if err != nil {
			return dataset{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		data.transactions, data.skipped = txns, skipped

	case in.InputURI != "":
		if !gcs.IsURI(in.InputURI) {
			return dataset{}, fmt.Errorf("%w: input_uri must be a gs:// URI", ErrInvalidRequest)
		}
		if s.storage == nil {
			return dataset{}, fmt.Errorf("%w: object storage is not configured", ErrInvalidRequest)
		}
		raw, err := s.storage.Fetch(ctx, in.InputURI)
		if err != nil {
			return dataset{}, fmt.Errorf("fetching %s: %w", in.InputURI, err)
		}
		batch, err := sources.DecodeExport(src, raw)
		if err != nil {
			return dataset{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		data.transactions, data.skipped = batch.Transactions, batch.Skipped
		if len(batch.Balances) > 0 {
			data.balances = batch.Balances
			exportBalances = true
		}

	default:
		if s.transactions == nil {
			return dataset{}, ErrNoTransactionSource
		}
		txns, err := s.transactions.LoadTransactions(ctx, in.AccountID, from, to)
		if err != nil {
			return dataset{}, fmt.Errorf("loading transactions: %w", err)
		}
		data.transactions = txns
	}
	s.metrics.ObserveSkipped(string(src), data.skipped)

	if !wantBalances || exportBalances {
		return data, nil
	}
	switch {
	case hasPayload(in.Balances):
		balances, err := sources.DecodeBalances(src, in.Balances)
		if err != nil {
			return dataset{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		data.balances = balances
	case s.balances != nil:
		balances, err := s.balances.LoadBalances(ctx, in.AccountID)
		if err != nil {
			return dataset{}, fmt.Errorf("loading balances: %w", err)
		}
		data.balances = balances
	}
	return data, nil
}

func hasPayload(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func (s *Service) upload(ctx context.Context, kind, accountID string, report any) (string, error) {
	if !s.UploadsEnabled() {
		return "", fmt.Errorf("%w: report uploads are not configured", ErrInvalidRequest)
	}
	object := gcs.ReportObject(kind, accountID, s.now())
	uri, err := s.storage.UploadJSON(ctx, s.bucket, object, report)
	if err != nil {
		return "", fmt.Errorf("uploading report: %w", err)
	}
	return uri, nil
}

// narrate never fails the forecast; a missing narrative is logged.
func (s *Service) narrate(ctx context.Context, accountID string, result forecast.Result) string {
	if s.narrator == nil {
		s.log.Warn().Str("account_id", accountID).Msg("Narrative requested but no narrator is configured")
		return ""
	}
	text, err := s.narrator.Narrate(ctx, accountID, result)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("Failed to generate forecast narrative")
		return ""
	}
	return text
}

// publishPatterns never fails the detection; sync errors are logged.
func (s *Service) publishPatterns(ctx context.Context, accountID string, patterns []domain.RecurringPattern) *SyncResult {
	if s.patterns == nil {
		s.log.Warn().Str("account_id", accountID).Msg("Publish requested but Notion is not configured")
		return nil
	}
	stats, err := s.patterns.SyncPatterns(ctx, accountID, patterns, false)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to sync patterns to Notion")
		return nil
	}
	return &SyncResult{
		Created:  stats.Created,
		Updated:  stats.Updated,
		Archived: stats.Archived,
		Failed:   stats.Failed,
	}
}

// startRun returns "" when recording is off or failed; the analysis goes on
// without an audit row.
func (s *Service) startRun(ctx context.Context, kind, accountID string) string {
	if s.runs == nil {
		return ""
	}
	runID, err := s.runs.StartAnalysisRun(ctx, kind, accountID)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("Failed to record analysis run")
		return ""
	}
	return runID
}

func (s *Service) failRun(ctx context.Context, runID string, err error) {
	if runID == "" {
		return
	}
	s.runs.MarkAnalysisRunFailed(ctx, runID, err)
}

func (s *Service) succeedRun(ctx context.Context, runID string, summary any) {
	if runID == "" {
		return
	}
	if err := s.runs.MarkAnalysisRunSucceeded(ctx, runID, summary); err != nil {
		s.log.Warn().Err(err).Str("run_id", runID).Msg("Failed to mark analysis run succeeded")
	}
}
