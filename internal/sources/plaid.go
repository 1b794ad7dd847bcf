package sources

import (
	"encoding/json"
	"strings"

	"github.com/rutwin/cashflow/internal/domain"
)

// Plaid reports debits as positive amounts, which is already the internal
// convention.
type plaidTransaction struct {
	TransactionID  string     `json:"transaction_id"`
	AccountID      string     `json:"account_id"`
	Amount         flexAmount `json:"amount"`
	Date           string     `json:"date"`
	Name           string     `json:"name"`
	MerchantName   string     `json:"merchant_name"`
	Category       []string   `json:"category"`
	PaymentChannel string     `json:"payment_channel"`
	Pending        bool       `json:"pending"`
}

type plaidBalance struct {
	AccountID string     `json:"account_id"`
	Current   flexAmount `json:"current"`
	Available flexAmount `json:"available"`
	Balances  *struct {
		Current   flexAmount `json:"current"`
		Available flexAmount `json:"available"`
	} `json:"balances"`
}

func decodePlaidTransaction(raw json.RawMessage) (domain.Transaction, error) {
	var p plaidTransaction
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Transaction{}, err
	}
	if p.Pending {
		return domain.Transaction{}, errPending
	}
	if !p.Amount.Set {
		return domain.Transaction{}, errMissingAmount
	}
	date, err := parseDate(p.Date)
	if err != nil {
		return domain.Transaction{}, err
	}

	return domain.Transaction{
		ID:           p.TransactionID,
		AccountID:    p.AccountID,
		Amount:       p.Amount.Value,
		Date:         date,
		Description:  p.Name,
		MerchantName: p.MerchantName,
		Category:     strings.Join(p.Category, " > "),
		Type:         p.PaymentChannel,
	}, nil
}

// decodePlaidBalance accepts both a flat balance record and an account object
// with a nested "balances" block.
func decodePlaidBalance(raw json.RawMessage) (domain.AccountBalanceSnapshot, error) {
	var p plaidBalance
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.AccountBalanceSnapshot{}, err
	}
	current, available := p.Current, p.Available
	if p.Balances != nil {
		current, available = p.Balances.Current, p.Balances.Available
	}
	if !current.Set {
		return domain.AccountBalanceSnapshot{}, errMissingAmount
	}
	return snapshot(p.AccountID, current, available), nil
}

func snapshot(accountID string, current, available flexAmount) domain.AccountBalanceSnapshot {
	s := domain.AccountBalanceSnapshot{AccountID: accountID, CurrentBalance: current.Value}
	if available.Set {
		v := available.Value
		s.AvailableBalance = &v
	}
	return s
}
