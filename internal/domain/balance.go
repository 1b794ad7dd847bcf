package domain

// AccountBalanceSnapshot is an externally supplied starting point for forecasting.
type AccountBalanceSnapshot struct {
	AccountID        string   `json:"account_id"`
	CurrentBalance   float64  `json:"current_balance"`
	AvailableBalance *float64 `json:"available_balance,omitempty"`
}

// StartingBalance picks the forecast seed from a set of snapshots. With an
// account ID it returns that account's current balance (0 when absent);
// without one it sums every account.
func StartingBalance(balances []AccountBalanceSnapshot, accountID string) float64 {
	var total float64
	for _, b := range balances {
		if accountID != "" {
			if b.AccountID == accountID {
				return b.CurrentBalance
			}
			continue
		}
		total += b.CurrentBalance
	}
	return total
}
