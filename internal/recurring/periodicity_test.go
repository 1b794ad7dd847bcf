package recurring

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/rutwin/cashflow/internal/domain"
)

func TestClassifyInterval(t *testing.T) {
	tests := []struct {
		avg  float64
		want domain.Frequency
	}{
		{5.9, domain.FrequencyUnknown},
		{6, domain.FrequencyWeekly},
		{7, domain.FrequencyWeekly},
		{8, domain.FrequencyWeekly},
		{8.5, domain.FrequencyUnknown},
		{13, domain.FrequencyBiweekly},
		{16, domain.FrequencyBiweekly},
		{25, domain.FrequencyMonthly},
		{30.4, domain.FrequencyMonthly},
		{31, domain.FrequencyMonthly},
		{32, domain.FrequencyUnknown},
		{85, domain.FrequencyQuarterly},
		{95, domain.FrequencyQuarterly},
		{350, domain.FrequencyAnnual},
		{365, domain.FrequencyAnnual},
		{380, domain.FrequencyAnnual},
		{381, domain.FrequencyUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyInterval(tt.avg); got != tt.want {
			t.Errorf("ClassifyInterval(%v) = %q, want %q", tt.avg, got, tt.want)
		}
	}
}

func TestDetectPeriodicity(t *testing.T) {
	d := func(y int, m int, day int) civil.Date {
		return civil.Date{Year: y, Month: timeMonth(m), Day: day}
	}

	tests := []struct {
		name       string
		dates      []civil.Date
		wantOK     bool
		wantSpread int
		wantAvg    float64
	}{
		{"too short", []civil.Date{d(2023, 1, 1)}, false, 0, 0},
		{"exact biweekly", []civil.Date{d(2023, 1, 6), d(2023, 1, 20), d(2023, 2, 3)}, true, 0, 14},
		{"spread of three", []civil.Date{d(2023, 1, 1), d(2023, 1, 29), d(2023, 3, 1)}, true, 3, 29.5},
		{"spread of four", []civil.Date{d(2023, 1, 1), d(2023, 1, 29), d(2023, 3, 2)}, false, 4, 0},
		{"same day charges", []civil.Date{d(2023, 1, 1), d(2023, 1, 1)}, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := DetectPeriodicity(tt.dates)
			if ok != tt.wantOK {
				t.Fatalf("DetectPeriodicity() ok = %v, want %v", ok, tt.wantOK)
			}
			if p.Spread != tt.wantSpread {
				t.Errorf("Spread = %d, want %d", p.Spread, tt.wantSpread)
			}
			if ok && p.Average != tt.wantAvg {
				t.Errorf("Average = %v, want %v", p.Average, tt.wantAvg)
			}
		})
	}
}
