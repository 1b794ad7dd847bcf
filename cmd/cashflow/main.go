// Command cashflow runs recurring detection, forecasts and cash-flow
// summaries from the terminal and prints the JSON report to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rutwin/cashflow/internal/analytics"
	"github.com/rutwin/cashflow/internal/app"
	"github.com/rutwin/cashflow/internal/config"
	"github.com/rutwin/cashflow/internal/gcs"
	"github.com/rutwin/cashflow/internal/logger"
)

var rootOpts struct {
	configPath string
	source     string
	input      string
	account    string
	upload     bool
}

var rootCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Detect recurring transactions and forecast cash flow",
	Long: `cashflow reads a Plaid, Teller or ledger export (a local file or a gs://
object) or, without --input, the configured BigQuery ledger, and prints the
resulting report as JSON.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootOpts.configPath, "config", os.Getenv("CASHFLOW_CONFIG"), "Path to a YAML config file (or set CASHFLOW_CONFIG env)")
	pf.StringVarP(&rootOpts.source, "source", "s", "", "Export format: plaid, teller or ledger (default ledger)")
	pf.StringVarP(&rootOpts.input, "input", "i", "", "Export file path or gs:// URI; reads the ledger when empty")
	pf.StringVarP(&rootOpts.account, "account", "a", "", "Account ID")
	pf.BoolVar(&rootOpts.upload, "upload", false, "Also write the report to the configured GCS bucket")

	rootCmd.AddCommand(detectCmd, forecastCmd, analyzeCmd)

	detectCmd.Flags().Int("lookback", 0, "Days of history to scan")
	detectCmd.Flags().Int("min-occurrences", 0, "Minimum occurrences for a pattern")
	detectCmd.Flags().Float64("tolerance", 0, "Allowed amount deviation from a cluster anchor, in currency units")
	detectCmd.Flags().Bool("publish", false, "Mirror the patterns into Notion")

	forecastCmd.Flags().Int("horizon", 0, "Days to project past today")
	forecastCmd.Flags().Int("lookback", 0, "Days of history used for detection")
	forecastCmd.Flags().Int("min-occurrences", 0, "Minimum occurrences for a pattern")
	forecastCmd.Flags().Float64("tolerance", 0, "Allowed amount deviation from a cluster anchor, in currency units")
	forecastCmd.Flags().Bool("no-recurring", false, "Project the starting balance only")
	forecastCmd.Flags().Float64("starting-balance", 0, "Override the starting balance")
	forecastCmd.Flags().Bool("narrative", false, "Ask Gemini for a short narrative")

	analyzeCmd.Flags().Int("period", 0, "Days in the analysis window")
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List recurring transaction patterns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, svc *analytics.Service, in analytics.Input) (any, error) {
			req := analytics.RecurringRequest{Input: in, Upload: rootOpts.upload}
			req.Days = intFlag(cmd, "lookback")
			req.MinOccurrences = intFlag(cmd, "min-occurrences")
			req.AmountTolerance = floatFlag(cmd, "tolerance")
			req.Publish, _ = cmd.Flags().GetBool("publish")
			return svc.IdentifyRecurring(ctx, req)
		})
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project the daily balance forward",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, svc *analytics.Service, in analytics.Input) (any, error) {
			req := analytics.ForecastRequest{Input: in, Upload: rootOpts.upload}
			req.HorizonDays = intFlag(cmd, "horizon")
			req.LookbackDays = intFlag(cmd, "lookback")
			req.MinOccurrences = intFlag(cmd, "min-occurrences")
			req.AmountTolerance = floatFlag(cmd, "tolerance")
			req.StartingBalance = floatFlag(cmd, "starting-balance")
			if skip, _ := cmd.Flags().GetBool("no-recurring"); skip {
				include := false
				req.IncludeRecurring = &include
			}
			req.Narrative, _ = cmd.Flags().GetBool("narrative")
			return svc.ForecastCashFlow(ctx, req)
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize inflows and outflows over a recent window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, svc *analytics.Service, in analytics.Input) (any, error) {
			req := analytics.CashFlowRequest{Input: in, Upload: rootOpts.upload}
			req.PeriodDays = intFlag(cmd, "period")
			return svc.AnalyzeCashFlow(ctx, req)
		})
	},
}

type analysis func(ctx context.Context, svc *analytics.Service, in analytics.Input) (any, error)

// run loads configuration, builds the runtime, resolves --input and prints
// whatever fn returns.
func run(cmd *cobra.Command, fn analysis) error {
	cfg, err := config.Load(rootOpts.configPath)
	if err != nil {
		return err
	}
	// Reports go to stdout, so logs go to stderr.
	cfg.Log.Service = "cashflow-cli"
	log := logger.NewWithOptions(os.Stderr, cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	remote := gcs.IsURI(rootOpts.input)
	rt, err := app.Build(ctx, cfg, log, app.Options{WithStorage: remote})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to release resources")
		}
	}()

	if rootOpts.upload && !rt.Service.UploadsEnabled() {
		return fmt.Errorf("--upload needs gcp.bucket to be configured")
	}

	in, err := resolveInput(ctx, rootOpts.input, rootOpts.source, rootOpts.account)
	if err != nil {
		return err
	}
	logInput(log, in)

	report, err := fn(ctx, rt.Service, in)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), report)
}

// resolveInput turns --input into an analytics.Input. gs:// objects are left
// for the service to fetch; local files are read and passed inline.
func resolveInput(ctx context.Context, location, source, accountID string) (analytics.Input, error) {
	in := analytics.Input{Source: source, AccountID: accountID}
	switch {
	case location == "":
		return in, nil
	case gcs.IsURI(location):
		in.InputURI = location
		return in, nil
	}

	raw, err := gcs.ReadInput(ctx, nil, location)
	if err != nil {
		return analytics.Input{}, err
	}
	in.Transactions, in.Balances, err = splitExport(raw)
	if err != nil {
		return analytics.Input{}, fmt.Errorf("%s: %w", location, err)
	}
	return in, nil
}

func logInput(log zerolog.Logger, in analytics.Input) {
	ev := log.Debug().Str("source", in.Source).Str("account_id", in.AccountID)
	switch {
	case in.InputURI != "":
		ev.Str("input_uri", in.InputURI).Msg("Reading export from storage")
	case in.Transactions != nil:
		ev.Int("bytes", len(in.Transactions)).Msg("Read export file")
	default:
		ev.Msg("Reading from ledger")
	}
}

func writeReport(w io.Writer, report any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func floatFlag(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
