package sources

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rutwin/cashflow/internal/domain"
)

// Ledger rows follow bank statement convention: money in is positive. An
// explicit direction column, when present, wins over the sign.
type ledgerTransaction struct {
	TransactionID         string     `json:"transaction_id"`
	AccountID             string     `json:"account_id"`
	TransactionDate       string     `json:"transaction_date"`
	Amount                flexAmount `json:"amount"`
	Direction             string     `json:"direction"`
	RawDescription        string     `json:"raw_description"`
	NormalizedDescription string     `json:"normalized_description"`
	CategoryName          string     `json:"category_name"`
	IsPending             bool       `json:"is_pending"`
}

type ledgerBalance struct {
	AccountID        string     `json:"account_id"`
	CurrentBalance   flexAmount `json:"current_balance"`
	AvailableBalance flexAmount `json:"available_balance"`
}

// LedgerAmount converts a statement amount and optional IN/OUT direction into
// the internal convention.
func LedgerAmount(amount float64, direction string) float64 {
	switch strings.ToUpper(strings.TrimSpace(direction)) {
	case "OUT", "DEBIT":
		return math.Abs(amount)
	case "IN", "CREDIT":
		return -math.Abs(amount)
	default:
		return -amount
	}
}

func decodeLedgerTransaction(raw json.RawMessage) (domain.Transaction, error) {
	var l ledgerTransaction
	if err := json.Unmarshal(raw, &l); err != nil {
		return domain.Transaction{}, err
	}
	if l.IsPending {
		return domain.Transaction{}, errPending
	}
	if !l.Amount.Set {
		return domain.Transaction{}, errMissingAmount
	}
	date, err := parseDate(l.TransactionDate)
	if err != nil {
		return domain.Transaction{}, err
	}

	return domain.Transaction{
		ID:           l.TransactionID,
		AccountID:    l.AccountID,
		Amount:       LedgerAmount(l.Amount.Value, l.Direction),
		Date:         date,
		Description:  l.RawDescription,
		MerchantName: l.NormalizedDescription,
		Category:     l.CategoryName,
	}, nil
}

func decodeLedgerBalance(raw json.RawMessage) (domain.AccountBalanceSnapshot, error) {
	var b ledgerBalance
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.AccountBalanceSnapshot{}, err
	}
	if !b.CurrentBalance.Set {
		return domain.AccountBalanceSnapshot{}, errMissingAmount
	}
	return snapshot(b.AccountID, b.CurrentBalance, b.AvailableBalance), nil
}
