package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// LatestBalances returns the newest snapshot for each account.
func (s *Store) LatestBalances(ctx context.Context, accountID string) ([]*BalanceRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			account_id,
			current_balance,
			available_balance,
			currency,
			as_of_ts
		FROM %s
		WHERE (@account_id = "" OR account_id = @account_id)
		QUALIFY ROW_NUMBER() OVER (PARTITION BY account_id ORDER BY as_of_ts DESC) = 1
		ORDER BY account_id
	`, s.table(balancesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LatestBalances: reading query: %w", err)
	}

	var balances []*BalanceRow
	for {
		var row BalanceRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LatestBalances: iterating: %w", err)
		}
		balances = append(balances, &row)
	}

	return balances, nil
}
