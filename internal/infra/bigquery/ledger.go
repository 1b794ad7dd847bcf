package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/sources"
)

// Ledger adapts the repositories to normalized domain values.
type Ledger struct {
	Transactions TransactionRepository
	Balances     BalanceRepository
}

// NewLedger serves both reads from one Store.
func NewLedger(s *Store) *Ledger {
	return &Ledger{Transactions: s, Balances: s}
}

// LoadTransactions returns normalized transactions dated within [from, to].
func (l *Ledger) LoadTransactions(ctx context.Context, accountID string, from, to civil.Date) ([]domain.Transaction, error) {
	rows, err := l.Transactions.QueryTransactions(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("LoadTransactions: %w", err)
	}
	return ToDomainTransactions(rows), nil
}

// LoadBalances returns the latest balance snapshot per account.
func (l *Ledger) LoadBalances(ctx context.Context, accountID string) ([]domain.AccountBalanceSnapshot, error) {
	rows, err := l.Balances.LatestBalances(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("LoadBalances: %w", err)
	}
	return ToDomainBalances(rows), nil
}

// ToDomainTransactions converts ledger rows into the outflow-positive
// convention. Rows without an amount keep a zero date so the analyzers count
// them as skipped.
func ToDomainTransactions(rows []*TransactionRow) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		t := domain.Transaction{
			ID:           r.TransactionID,
			AccountID:    r.AccountID,
			Date:         r.TransactionDate,
			Description:  r.RawDescription,
			MerchantName: r.NormalizedDescription.StringVal,
			Category:     r.CategoryName.StringVal,
		}
		if r.Amount == nil {
			t.Date = civil.Date{}
		} else {
			f, _ := r.Amount.Float64()
			t.Amount = sources.LedgerAmount(f, r.Direction.StringVal)
		}
		out = append(out, t)
	}
	return out
}

// ToDomainBalances converts balance rows to snapshots.
func ToDomainBalances(rows []*BalanceRow) []domain.AccountBalanceSnapshot {
	out := make([]domain.AccountBalanceSnapshot, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		s := domain.AccountBalanceSnapshot{AccountID: r.AccountID}
		if r.CurrentBalance != nil {
			s.CurrentBalance, _ = r.CurrentBalance.Float64()
		}
		if r.AvailableBalance != nil {
			v, _ := r.AvailableBalance.Float64()
			s.AvailableBalance = &v
		}
		out = append(out, s)
	}
	return out
}
