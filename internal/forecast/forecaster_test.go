package forecast

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/recurring"
)

var fixedNow = time.Date(2023, time.June, 15, 9, 30, 0, 0, time.UTC)

func newTestForecaster() *Forecaster {
	return &Forecaster{Now: FixedClock(fixedNow)}
}

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestForecast_EmptyHistoryIsFlat(t *testing.T) {
	opts := DefaultOptions()
	opts.HorizonDays = 10
	opts.IncludeRecurring = false

	res, err := newTestForecaster().Forecast(1000, nil, opts)
	require.NoError(t, err)

	require.Len(t, res.Days, 11)
	for _, d := range res.Days {
		assert.Equal(t, 0.0, d.NetFlow)
		assert.Equal(t, 1000.0, d.RunningBalance)
	}
	assert.Equal(t, 1000.0, res.Summary.EndingBalance)
	assert.Equal(t, day("2023-06-15"), res.Summary.StartDate)
	assert.Equal(t, day("2023-06-25"), res.Summary.EndDate)
	assert.Empty(t, res.Recurring)
}

func TestForecast_ZeroHorizonIsOneDay(t *testing.T) {
	opts := DefaultOptions()
	opts.HorizonDays = 0

	res, err := newTestForecaster().Forecast(250, nil, opts)
	require.NoError(t, err)
	require.Len(t, res.Days, 1)
	assert.Equal(t, day("2023-06-15"), res.Days[0].Date)
}

func TestForecast_DailyAveragesUseLookbackWindow(t *testing.T) {
	txns := []domain.Transaction{
		{ID: "salary", Amount: -900, Date: day("2023-06-01"), Description: "Payroll"},
		{ID: "rent", Amount: 450, Date: day("2023-05-20"), Description: "Rent"},
		{ID: "old", Amount: 10000, Date: day("2022-01-01"), Description: "Old purchase"},
		{ID: "future", Amount: 10000, Date: day("2023-07-01"), Description: "Scheduled"},
	}

	opts := DefaultOptions()
	opts.HorizonDays = 2
	opts.IncludeRecurring = false

	res, err := newTestForecaster().Forecast(0, txns, opts)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, res.Summary.DailyInflow, 1e-9)
	assert.InDelta(t, 5.0, res.Summary.DailyOutflow, 1e-9)
	for _, d := range res.Days {
		assert.InDelta(t, 5.0, d.NetFlow, 1e-9)
	}
	assert.InDelta(t, 15.0, res.Summary.EndingBalance, 1e-9)
	assert.InDelta(t, 5.0, res.Summary.DailyAverageNet, 1e-9)
}

func TestForecast_InjectsRecurringPatterns(t *testing.T) {
	// Gaps of 30 and 31 days round to a 31 day step: projected 2023-07-02.
	txns := []domain.Transaction{
		{ID: "g1", Amount: 30, Date: day("2023-04-01"), MerchantName: "Gym"},
		{ID: "g2", Amount: 30, Date: day("2023-05-01"), MerchantName: "Gym"},
		{ID: "g3", Amount: 30, Date: day("2023-06-01"), MerchantName: "Gym"},
	}

	opts := DefaultOptions()
	opts.HorizonDays = 30

	res, err := newTestForecaster().Forecast(500, txns, opts)
	require.NoError(t, err)
	require.Len(t, res.Recurring, 1)

	var hits []civil.Date
	for _, d := range res.Days {
		if len(d.RecurringEvents) > 0 {
			hits = append(hits, d.Date)
			assert.Equal(t, []string{"Gym"}, d.RecurringEvents)
		}
	}
	nextDate := day("2023-07-02")
	assert.Equal(t, nextDate, res.Recurring[0].NextExpectedDate)
	assert.Equal(t, []civil.Date{nextDate}, hits)

	// All three charges fall inside the 90 day window.
	base := 90.0 / 90.0
	for _, d := range res.Days {
		if d.Date == nextDate {
			assert.InDelta(t, base+30, d.Outflow, 1e-9)
		} else {
			assert.InDelta(t, base, d.Outflow, 1e-9)
		}
	}
}

func TestForecast_RollsStalePatternsForward(t *testing.T) {
	// Weekly deposit last seen months ago: the first projected hit must land
	// on the series' cadence at or after today.
	txns := []domain.Transaction{
		{ID: "p1", Amount: -100, Date: day("2023-01-02"), MerchantName: "Side Gig"},
		{ID: "p2", Amount: -100, Date: day("2023-01-09"), MerchantName: "Side Gig"},
		{ID: "p3", Amount: -100, Date: day("2023-01-16"), MerchantName: "Side Gig"},
	}

	opts := DefaultOptions()
	opts.HorizonDays = 14

	res, err := newTestForecaster().Forecast(0, txns, opts)
	require.NoError(t, err)

	var hits []civil.Date
	for _, d := range res.Days {
		if len(d.RecurringEvents) > 0 {
			hits = append(hits, d.Date)
			assert.InDelta(t, 100.0, d.Inflow, 1e-9)
		}
	}
	// 2023-01-16 is a Monday; Mondays in the window are 06-19 and 06-26.
	assert.Equal(t, []civil.Date{day("2023-06-19"), day("2023-06-26")}, hits)
}

func TestForecast_BalanceConservation(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	merchants := []string{"Rent", "Payroll", "Gym", "Grocer", "Fuel"}

	for round := 0; round < 25; round++ {
		var txns []domain.Transaction
		for i := 0; i < 80; i++ {
			txns = append(txns, domain.Transaction{
				ID:           "t",
				MerchantName: merchants[r.Intn(len(merchants))],
				Amount:       float64(r.Intn(50000)-20000) / 100,
				Date:         day("2023-03-01").AddDays(r.Intn(120)),
			})
		}

		opts := DefaultOptions()
		opts.HorizonDays = r.Intn(90)
		start := float64(r.Intn(1000000)) / 100

		res, err := newTestForecaster().Forecast(start, txns, opts)
		require.NoError(t, err)

		var sumNet float64
		for _, d := range res.Days {
			sumNet += d.NetFlow
		}
		assert.InDelta(t, res.Summary.EndingBalance-start, sumNet, 1e-6)
		assert.InDelta(t, res.Summary.TotalInflow-res.Summary.TotalOutflow, res.Summary.NetChange, 1e-6)
		assert.Equal(t, res.Days[len(res.Days)-1].RunningBalance, res.Summary.EndingBalance)
	}
}

func TestForecast_CountsMalformedRecords(t *testing.T) {
	txns := []domain.Transaction{
		{ID: "ok", Amount: 9, Date: day("2023-06-10")},
		{ID: "undated", Amount: 9},
	}

	res, err := newTestForecaster().Forecast(0, txns, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
}

func TestForecast_NonFiniteAmountsAreSkipped(t *testing.T) {
	txns := []domain.Transaction{
		{ID: "ok", Amount: 10, Date: day("2023-06-10")},
		{ID: "nan", Amount: math.NaN(), Date: day("2023-06-11")},
		{ID: "inf", Amount: math.Inf(1), Date: day("2023-06-12")},
		{ID: "-inf", Amount: math.Inf(-1), Date: day("2023-06-13")},
	}
	opts := DefaultOptions()
	opts.HorizonDays = 5

	res, err := newTestForecaster().Forecast(1000, txns, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
	assert.False(t, math.IsNaN(res.Summary.EndingBalance))
	assert.False(t, math.IsInf(res.Summary.EndingBalance, 0))
	assert.InDelta(t, 1000-6*10.0/float64(opts.LookbackDays), res.Summary.EndingBalance, 1e-9)
}

func TestForecast_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero lookback", func(o *Options) { o.LookbackDays = 0 }},
		{"negative horizon", func(o *Options) { o.HorizonDays = -1 }},
		{"bad recurring tolerance", func(o *Options) { o.Recurring.AmountTolerance = 0 }},
		{"bad recurring occurrences", func(o *Options) { o.Recurring = recurring.Config{AmountTolerance: 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			_, err := newTestForecaster().Forecast(0, nil, opts)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestForecast_RecurringConfigIgnoredWhenDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeRecurring = false
	opts.Recurring = recurring.Config{}

	_, err := newTestForecaster().Forecast(0, nil, opts)
	assert.NoError(t, err)
}

func TestRollForward(t *testing.T) {
	tests := []struct {
		d, from string
		step    int
		want    string
	}{
		{"2023-06-20", "2023-06-15", 7, "2023-06-20"},
		{"2023-06-15", "2023-06-15", 7, "2023-06-15"},
		{"2023-06-08", "2023-06-15", 7, "2023-06-15"},
		{"2023-06-07", "2023-06-15", 7, "2023-06-21"},
		{"2023-01-01", "2023-06-15", 30, "2023-06-30"},
	}

	for _, tt := range tests {
		got := rollForward(day(tt.d), day(tt.from), tt.step)
		if got != day(tt.want) {
			t.Errorf("rollForward(%s, %s, %d) = %s, want %s", tt.d, tt.from, tt.step, got, tt.want)
		}
	}
}
