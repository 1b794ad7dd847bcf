package domain

import (
	"math"

	"cloud.google.com/go/civil"
)

// Frequency labels a detected recurrence interval.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
	FrequencyUnknown   Frequency = "unknown"
)

// RecurringPattern is a merchant charge (or deposit) that repeats at a
// consistent interval. It is derived on every analysis call and never stored.
type RecurringPattern struct {
	MerchantKey          string     `json:"merchant_key"`
	MerchantName         string     `json:"merchant_name"`
	RepresentativeAmount float64    `json:"representative_amount"`
	Direction            Direction  `json:"direction"`
	OccurrenceCount      int        `json:"occurrence_count"`
	AverageIntervalDays  float64    `json:"average_interval_days"`
	IntervalVariance     float64    `json:"interval_variance"`
	IntervalSpread       int        `json:"interval_spread"`
	Frequency            Frequency  `json:"frequency"`
	FirstSeenDate        civil.Date `json:"first_seen_date"`
	LastSeenDate         civil.Date `json:"last_seen_date"`
	NextExpectedDate     civil.Date `json:"next_expected_date"`
	TransactionIDs       []string   `json:"transaction_ids"`
}

// StepDays is the whole number of days between projected occurrences. It is
// never less than one so projections always move forward.
func (p RecurringPattern) StepDays() int {
	step := int(math.Round(p.AverageIntervalDays))
	if step < 1 {
		return 1
	}
	return step
}

