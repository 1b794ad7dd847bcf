package analytics

//go:generate mockgen -source=interfaces.go -destination=analytics_mock.go -package=analytics

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/forecast"
	"github.com/rutwin/cashflow/internal/notionsync"
)

// TransactionSource loads stored transactions dated within [from, to].
type TransactionSource interface {
	LoadTransactions(ctx context.Context, accountID string, from, to civil.Date) ([]domain.Transaction, error)
}

// BalanceSource loads the latest balance snapshots.
type BalanceSource interface {
	LoadBalances(ctx context.Context, accountID string) ([]domain.AccountBalanceSnapshot, error)
}

// RunRecorder keeps an audit trail of analysis runs.
type RunRecorder interface {
	StartAnalysisRun(ctx context.Context, kind, accountID string) (string, error)
	MarkAnalysisRunFailed(ctx context.Context, runID string, err error)
	MarkAnalysisRunSucceeded(ctx context.Context, runID string, summary any) error
}

// ReportStorage reads exports from and writes reports to object storage.
type ReportStorage interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	UploadJSON(ctx context.Context, bucket, object string, v any) (string, error)
}

// Narrator writes a plain-language summary of a forecast.
type Narrator interface {
	Narrate(ctx context.Context, accountID string, result forecast.Result) (string, error)
}

// PatternPublisher mirrors detected patterns into an external workspace.
type PatternPublisher interface {
	SyncPatterns(ctx context.Context, accountID string, patterns []domain.RecurringPattern, dryRun bool) (notionsync.Stats, error)
}
