package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// QueryTransactions queries posted transactions within [start, end], oldest first.
func (s *Store) QueryTransactions(ctx context.Context, accountID string, start, end civil.Date) ([]*TransactionRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.account_id,
			t.transaction_date,
			t.amount,
			t.currency,
			t.direction,
			t.raw_description,
			t.normalized_description,
			t.category_name,
			t.is_pending
		FROM %s t
		WHERE t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		  AND (@account_id = "" OR t.account_id = @account_id)
		  AND COALESCE(t.is_pending, FALSE) = FALSE
		ORDER BY t.transaction_date, t.transaction_id
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactions: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactions: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
