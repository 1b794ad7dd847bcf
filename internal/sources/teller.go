package sources

import (
	"encoding/json"
	"strings"

	"github.com/rutwin/cashflow/internal/domain"
)

// Teller reports money leaving the account as a negative string amount, so
// amounts are negated on the way in.
type tellerTransaction struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	Amount      flexAmount `json:"amount"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Details     struct {
		Category     string `json:"category"`
		Counterparty struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"counterparty"`
	} `json:"details"`
}

type tellerBalance struct {
	AccountID string     `json:"account_id"`
	Ledger    flexAmount `json:"ledger"`
	Available flexAmount `json:"available"`
}

func decodeTellerTransaction(raw json.RawMessage) (domain.Transaction, error) {
	var t tellerTransaction
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Transaction{}, err
	}
	// Records without a status are treated as posted.
	if strings.EqualFold(strings.TrimSpace(t.Status), "pending") {
		return domain.Transaction{}, errPending
	}
	if !t.Amount.Set {
		return domain.Transaction{}, errMissingAmount
	}
	date, err := parseDate(t.Date)
	if err != nil {
		return domain.Transaction{}, err
	}

	return domain.Transaction{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Amount:       -t.Amount.Value,
		Date:         date,
		Description:  t.Description,
		MerchantName: t.Details.Counterparty.Name,
		Category:     t.Details.Category,
		Type:         t.Type,
	}, nil
}

func decodeTellerBalance(raw json.RawMessage) (domain.AccountBalanceSnapshot, error) {
	var b tellerBalance
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.AccountBalanceSnapshot{}, err
	}
	if !b.Ledger.Set {
		return domain.AccountBalanceSnapshot{}, errMissingAmount
	}
	return snapshot(b.AccountID, b.Ledger, b.Available), nil
}
