package recurring

import (
	"math"
	"sort"

	"cloud.google.com/go/civil"

	"github.com/rutwin/cashflow/internal/domain"
)

// Result is the output of one detection pass.
type Result struct {
	Patterns []domain.RecurringPattern `json:"patterns"`
	// Skipped counts records that could not be used (no valid date or a
	// non-finite amount).
	Skipped int `json:"skipped"`
}

// Detect finds recurring patterns using the default merchant key.
func Detect(txns []domain.Transaction, cfg Config) (Result, error) {
	return DetectWithKey(txns, cfg, MerchantKey)
}

// DetectWithKey groups transactions by key, clusters each group by amount and
// keeps clusters whose dates are evenly spaced. Input is never modified and the
// output order is deterministic: largest representative amount first, then
// merchant key, then first occurrence.
func DetectWithKey(txns []domain.Transaction, cfg Config, key KeyFunc) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	usable := make([]domain.Transaction, 0, len(txns))
	skipped := 0
	for _, t := range txns {
		if !t.Usable() {
			skipped++
			continue
		}
		usable = append(usable, t)
	}

	groups := GroupByKey(usable, key)

	patterns := []domain.RecurringPattern{}
	for _, k := range sortedKeys(groups) {
		group := groups[k]
		if len(group) < cfg.MinOccurrences {
			continue
		}

		for _, c := range ClusterByAmount(group, cfg.AmountTolerance) {
			if len(c.Members) < cfg.MinOccurrences {
				continue
			}
			if p, ok := buildPattern(k, c); ok {
				patterns = append(patterns, p)
			}
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if a.RepresentativeAmount != b.RepresentativeAmount {
			return a.RepresentativeAmount > b.RepresentativeAmount
		}
		if a.MerchantKey != b.MerchantKey {
			return a.MerchantKey < b.MerchantKey
		}
		return a.FirstSeenDate.Before(b.FirstSeenDate)
	})

	return Result{Patterns: patterns, Skipped: skipped}, nil
}

func buildPattern(key string, c Cluster) (domain.RecurringPattern, bool) {
	// Members arrive date-sorted from GroupByKey and ClusterByAmount keeps order.
	dates := make([]civil.Date, len(c.Members))
	ids := make([]string, len(c.Members))
	for i, t := range c.Members {
		dates[i] = t.Date
		ids[i] = t.ID
	}

	period, ok := DetectPeriodicity(dates)
	if !ok {
		return domain.RecurringPattern{}, false
	}

	first := c.Members[0]
	last := dates[len(dates)-1]
	name := first.MerchantName
	if name == "" {
		name = first.Description
	}

	return domain.RecurringPattern{
		MerchantKey:          key,
		MerchantName:         name,
		RepresentativeAmount: c.Anchor,
		Direction:            domain.DirectionOf(c.Anchor),
		OccurrenceCount:      len(c.Members),
		AverageIntervalDays:  period.Average,
		IntervalVariance:     period.Variance,
		IntervalSpread:       period.Spread,
		Frequency:            period.Frequency,
		FirstSeenDate:        dates[0],
		LastSeenDate:         last,
		NextExpectedDate:     last.AddDays(int(math.Round(period.Average))),
		TransactionIDs:       ids,
	}, true
}
