package domain

import "cloud.google.com/go/civil"

// ForecastDay is one simulated day of a cash-flow projection.
type ForecastDay struct {
	Date            civil.Date `json:"date"`
	Inflow          float64    `json:"inflow"`
	Outflow         float64    `json:"outflow"`
	NetFlow         float64    `json:"net_flow"`
	RunningBalance  float64    `json:"running_balance"`
	RecurringEvents []string   `json:"recurring_events,omitempty"`
}

// ForecastSummary aggregates a projection.
type ForecastSummary struct {
	StartingBalance float64    `json:"starting_balance"`
	TotalInflow     float64    `json:"total_inflow"`
	TotalOutflow    float64    `json:"total_outflow"`
	NetChange       float64    `json:"net_change"`
	EndingBalance   float64    `json:"ending_balance"`
	DailyAverageNet float64    `json:"daily_average_net"`
	DailyInflow     float64    `json:"daily_inflow"`
	DailyOutflow    float64    `json:"daily_outflow"`
	StartDate       civil.Date `json:"start_date"`
	EndDate         civil.Date `json:"end_date"`
	HorizonDays     int        `json:"horizon_days"`
}
