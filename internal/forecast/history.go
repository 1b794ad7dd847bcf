package forecast

import (
	"fmt"
	"time"

	"github.com/rutwin/cashflow/internal/domain"
)

// Status labels the sign of a period's net cash flow.
type Status string

const (
	StatusPositive Status = "positive"
	StatusNegative Status = "negative"
	StatusNeutral  Status = "neutral"
)

// DefaultPeriodDays is the history window used by Analyze when none is given.
const DefaultPeriodDays = 30

// Analysis summarizes money in and out over a past period.
type Analysis struct {
	PeriodDays   int     `json:"period_days"`
	Inflows      float64 `json:"inflows"`
	Outflows     float64 `json:"outflows"`
	NetCashFlow  float64 `json:"net_cash_flow"`
	DailyInflow  float64 `json:"daily_inflow"`
	DailyOutflow float64 `json:"daily_outflow"`
	DailyNet     float64 `json:"daily_net"`
	Status       Status  `json:"cash_flow_status"`
	// InflowOutflowRatio is nil when there were no outflows.
	InflowOutflowRatio *float64 `json:"inflow_outflow_ratio"`
	TransactionCount   int      `json:"transaction_count"`
	Skipped            int      `json:"skipped"`
}

// Analyze totals transactions dated within the last periodDays, ending today.
func (f *Forecaster) Analyze(txns []domain.Transaction, periodDays int) (Analysis, error) {
	if periodDays <= 0 {
		return Analysis{}, fmt.Errorf("%w: period_days must be positive, got %d", ErrInvalidConfiguration, periodDays)
	}

	today := f.today()
	from := today.AddDays(-periodDays)

	a := Analysis{PeriodDays: periodDays}
	for _, t := range txns {
		if !t.Usable() {
			a.Skipped++
			continue
		}
		if t.Date.Before(from) || t.Date.After(today) {
			continue
		}
		a.TransactionCount++
		if t.Amount > 0 {
			a.Outflows += t.Amount
		} else {
			a.Inflows += -t.Amount
		}
	}

	a.NetCashFlow = a.Inflows - a.Outflows
	a.DailyInflow = a.Inflows / float64(periodDays)
	a.DailyOutflow = a.Outflows / float64(periodDays)
	a.DailyNet = a.NetCashFlow / float64(periodDays)

	switch {
	case a.NetCashFlow > 0:
		a.Status = StatusPositive
	case a.NetCashFlow < 0:
		a.Status = StatusNegative
	default:
		a.Status = StatusNeutral
	}

	if a.Outflows > 0 {
		ratio := a.Inflows / a.Outflows
		a.InflowOutflowRatio = &ratio
	}
	return a, nil
}

// FixedClock returns a clock function pinned to t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
