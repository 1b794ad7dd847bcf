package forecast

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/recurring"
)

// Result is a complete projection.
type Result struct {
	Summary   domain.ForecastSummary    `json:"summary"`
	Days      []domain.ForecastDay      `json:"daily_forecast"`
	Recurring []domain.RecurringPattern `json:"recurring_transactions"`
	Skipped   int                       `json:"skipped"`
}

// Forecaster projects balances forward from historical transactions. It holds
// no mutable state and is safe for concurrent use.
type Forecaster struct {
	// Now supplies "today". Defaults to time.Now when nil.
	Now func() time.Time
}

// NewForecaster returns a Forecaster on the wall clock.
func NewForecaster() *Forecaster {
	return &Forecaster{Now: time.Now}
}

func (f *Forecaster) today() civil.Date {
	if f == nil || f.Now == nil {
		return domain.Today(time.Now())
	}
	return domain.Today(f.Now())
}

// Forecast projects startingBalance over opts.HorizonDays. Every day starts
// from the flat daily averages of the lookback window; when recurring
// injection is on, each detected pattern is added on its projected dates and
// then rolled forward by its interval.
func (f *Forecaster) Forecast(startingBalance float64, txns []domain.Transaction, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	today := f.today()
	windowStart := today.AddDays(-opts.LookbackDays)

	var inflows, outflows float64
	skipped := 0
	for _, t := range txns {
		if !t.Usable() {
			skipped++
			continue
		}
		if t.Date.Before(windowStart) || t.Date.After(today) {
			continue
		}
		if t.Amount > 0 {
			outflows += t.Amount
		} else {
			inflows += -t.Amount
		}
	}
	dailyInflow := inflows / float64(opts.LookbackDays)
	dailyOutflow := outflows / float64(opts.LookbackDays)

	patterns := []domain.RecurringPattern{}
	if opts.IncludeRecurring {
		res, err := recurring.Detect(txns, opts.Recurring)
		if err != nil {
			return Result{}, err
		}
		patterns = res.Patterns
	}

	next := make([]civil.Date, len(patterns))
	for i, p := range patterns {
		next[i] = rollForward(p.NextExpectedDate, today, p.StepDays())
	}

	days := make([]domain.ForecastDay, 0, opts.HorizonDays+1)
	balance := startingBalance
	var totalIn, totalOut float64
	for offset := 0; offset <= opts.HorizonDays; offset++ {
		date := today.AddDays(offset)
		day := domain.ForecastDay{
			Date:    date,
			Inflow:  dailyInflow,
			Outflow: dailyOutflow,
		}

		for i, p := range patterns {
			if next[i] != date {
				continue
			}
			if p.RepresentativeAmount > 0 {
				day.Outflow += p.RepresentativeAmount
			} else {
				day.Inflow += -p.RepresentativeAmount
			}
			day.RecurringEvents = append(day.RecurringEvents, p.MerchantName)
			next[i] = next[i].AddDays(p.StepDays())
		}

		day.NetFlow = day.Inflow - day.Outflow
		balance += day.NetFlow
		day.RunningBalance = balance

		totalIn += day.Inflow
		totalOut += day.Outflow
		days = append(days, day)
	}

	net := balance - startingBalance
	return Result{
		Summary: domain.ForecastSummary{
			StartingBalance: startingBalance,
			TotalInflow:     totalIn,
			TotalOutflow:    totalOut,
			NetChange:       net,
			EndingBalance:   balance,
			DailyAverageNet: net / float64(len(days)),
			DailyInflow:     dailyInflow,
			DailyOutflow:    dailyOutflow,
			StartDate:       today,
			EndDate:         today.AddDays(opts.HorizonDays),
			HorizonDays:     opts.HorizonDays,
		},
		Days:      days,
		Recurring: patterns,
		Skipped:   skipped,
	}, nil
}

// rollForward advances a stale projected date by whole steps until it is on or
// after from.
func rollForward(d, from civil.Date, step int) civil.Date {
	if !d.Before(from) {
		return d
	}
	behind := from.DaysSince(d)
	n := (behind + step - 1) / step
	return d.AddDays(n * step)
}
