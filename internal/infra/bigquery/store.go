package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/rutwin/cashflow/internal/bigquery"
)

// Re-export row types and interfaces from the shared package.
type (
	TransactionRow        = bq.TransactionRow
	BalanceRow            = bq.BalanceRow
	AnalysisRunRow        = bq.AnalysisRunRow
	TransactionRepository = bq.TransactionRepository
	BalanceRepository     = bq.BalanceRepository
	AnalysisRunRepository = bq.AnalysisRunRepository
)

const (
	transactionsTable = "transactions"
	balancesTable     = "account_balances"
	analysisRunsTable = "analysis_runs"
)

// Store is the BigQuery implementation of the ledger repositories. It holds a
// shared client to avoid creating a new connection for each operation.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a client for projectID and scopes every query to datasetID.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("NewStore: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// table returns the fully qualified, backquoted table name.
func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

var (
	_ TransactionRepository = (*Store)(nil)
	_ BalanceRepository     = (*Store)(nil)
	_ AnalysisRunRepository = (*Store)(nil)
)
