package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRepository reads ledger transactions.
type TransactionRepository interface {
	// QueryTransactions returns rows dated within [start, end]. An empty
	// accountID selects every account.
	QueryTransactions(ctx context.Context, accountID string, start, end civil.Date) ([]*TransactionRow, error)
}

// BalanceRepository reads account balance snapshots.
type BalanceRepository interface {
	// LatestBalances returns the newest snapshot per account. An empty
	// accountID selects every account.
	LatestBalances(ctx context.Context, accountID string) ([]*BalanceRow, error)
}

// AnalysisRunRepository records the lifecycle of an analysis run.
type AnalysisRunRepository interface {
	// StartAnalysisRun inserts a run with status=RUNNING and returns its analysis_run_id.
	StartAnalysisRun(ctx context.Context, kind, accountID string) (string, error)

	// MarkAnalysisRunFailed sets status=FAILED, finished_ts and error_message.
	MarkAnalysisRunFailed(ctx context.Context, runID string, runErr error)

	// MarkAnalysisRunSucceeded sets status=SUCCESS, finished_ts and the JSON summary.
	MarkAnalysisRunSucceeded(ctx context.Context, runID string, summary any) error
}

// TransactionRow represents a transaction record in BigQuery. Amounts follow
// statement convention (money in is positive) unless direction says otherwise.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id" json:"transaction_id"`
	AccountID     string `bigquery:"account_id" json:"account_id"`

	TransactionDate civil.Date `bigquery:"transaction_date" json:"transaction_date"`

	Amount   *big.Rat `bigquery:"amount" json:"amount"`
	Currency string   `bigquery:"currency" json:"currency"`

	Direction bigquery.NullString `bigquery:"direction" json:"direction,omitempty"`

	RawDescription        string              `bigquery:"raw_description" json:"raw_description"`
	NormalizedDescription bigquery.NullString `bigquery:"normalized_description" json:"normalized_description,omitempty"`

	CategoryName bigquery.NullString `bigquery:"category_name" json:"category_name,omitempty"`

	IsPending bigquery.NullBool `bigquery:"is_pending" json:"is_pending,omitempty"`
}

// MarshalJSON renders NUMERIC amounts with two decimals.
func (t TransactionRow) MarshalJSON() ([]byte, error) {
	type Alias TransactionRow
	return json.Marshal(&struct {
		Amount                string `json:"amount"`
		Direction             string `json:"direction,omitempty"`
		NormalizedDescription string `json:"normalized_description,omitempty"`
		CategoryName          string `json:"category_name,omitempty"`
		*Alias
	}{
		Amount:                ratString(t.Amount),
		Direction:             t.Direction.StringVal,
		NormalizedDescription: t.NormalizedDescription.StringVal,
		CategoryName:          t.CategoryName.StringVal,
		Alias:                 (*Alias)(&t),
	})
}

// BalanceRow represents a balance snapshot in BigQuery.
type BalanceRow struct {
	AccountID        string   `bigquery:"account_id"`
	CurrentBalance   *big.Rat `bigquery:"current_balance"`
	AvailableBalance *big.Rat `bigquery:"available_balance"`
	Currency         string   `bigquery:"currency"`

	AsOfTS time.Time `bigquery:"as_of_ts"`
}

// AnalysisRunRow represents one detect or forecast run in BigQuery.
type AnalysisRunRow struct {
	AnalysisRunID string `bigquery:"analysis_run_id"`
	Kind          string `bigquery:"kind"`
	AccountID     string `bigquery:"account_id"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	Summary bigquery.NullJSON `bigquery:"summary"`
}

func ratString(r *big.Rat) string {
	if r == nil {
		return "0"
	}
	f, _ := r.Float64()
	return fmt.Sprintf("%.2f", f)
}
