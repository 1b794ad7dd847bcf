package recurring

import (
	"cloud.google.com/go/civil"

	"github.com/rutwin/cashflow/internal/domain"
)

// MaxIntervalSpread is the largest allowed difference, in days, between the
// longest and shortest gap of a recurring series.
const MaxIntervalSpread = 3

// Periodicity describes the spacing of a date series.
type Periodicity struct {
	Gaps      []int
	Average   float64
	Variance  float64
	Spread    int
	Frequency domain.Frequency
}

type frequencyBand struct {
	freq     domain.Frequency
	min, max float64
}

var frequencyBands = []frequencyBand{
	{domain.FrequencyWeekly, 6, 8},
	{domain.FrequencyBiweekly, 13, 16},
	{domain.FrequencyMonthly, 25, 31},
	{domain.FrequencyQuarterly, 85, 95},
	{domain.FrequencyAnnual, 350, 380},
}

// ClassifyInterval maps an average gap in days onto a frequency label.
// Bands are inclusive; anything outside them is FrequencyUnknown.
func ClassifyInterval(avgDays float64) domain.Frequency {
	for _, b := range frequencyBands {
		if avgDays >= b.min && avgDays <= b.max {
			return b.freq
		}
	}
	return domain.FrequencyUnknown
}

// DetectPeriodicity computes the gaps of a date-sorted series. The boolean is
// false when there are fewer than two dates or the gaps spread by more than
// MaxIntervalSpread days. An unrecognised average still yields true with
// FrequencyUnknown.
func DetectPeriodicity(dates []civil.Date) (Periodicity, bool) {
	if len(dates) < 2 {
		return Periodicity{}, false
	}

	gaps := make([]int, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, domain.DaysBetween(dates[i-1], dates[i]))
	}

	minGap, maxGap, sum := gaps[0], gaps[0], 0
	for _, g := range gaps {
		if g < minGap {
			minGap = g
		}
		if g > maxGap {
			maxGap = g
		}
		sum += g
	}

	spread := maxGap - minGap
	if spread > MaxIntervalSpread {
		return Periodicity{Gaps: gaps, Spread: spread}, false
	}

	avg := float64(sum) / float64(len(gaps))
	var sq float64
	for _, g := range gaps {
		d := float64(g) - avg
		sq += d * d
	}

	return Periodicity{
		Gaps:      gaps,
		Average:   avg,
		Variance:  sq / float64(len(gaps)),
		Spread:    spread,
		Frequency: ClassifyInterval(avg),
	}, true
}
