package recurring

import "github.com/rutwin/cashflow/internal/domain"

// Summary splits detected patterns into income and expenses.
type Summary struct {
	Income        []domain.RecurringPattern                      `json:"recurring_income"`
	Expenses      []domain.RecurringPattern                      `json:"recurring_expenses"`
	TotalIncome   float64                                        `json:"total_recurring_income"`
	TotalExpenses float64                                        `json:"total_recurring_expenses"`
	ByFrequency   map[domain.Frequency][]domain.RecurringPattern `json:"grouped_by_frequency"`
	Count         int                                            `json:"transaction_count"`
}

// Summarize totals one occurrence of every pattern. Income is reported as a
// positive number even though inflows carry negative amounts internally.
func Summarize(patterns []domain.RecurringPattern) Summary {
	s := Summary{
		Income:      []domain.RecurringPattern{},
		Expenses:    []domain.RecurringPattern{},
		ByFrequency: make(map[domain.Frequency][]domain.RecurringPattern),
		Count:       len(patterns),
	}

	for _, p := range patterns {
		switch {
		case p.RepresentativeAmount < 0:
			s.Income = append(s.Income, p)
			s.TotalIncome += -p.RepresentativeAmount
		case p.RepresentativeAmount > 0:
			s.Expenses = append(s.Expenses, p)
			s.TotalExpenses += p.RepresentativeAmount
		}
		s.ByFrequency[p.Frequency] = append(s.ByFrequency[p.Frequency], p)
	}
	return s
}
