package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rutwin/cashflow/internal/config"
	infraBQ "github.com/rutwin/cashflow/internal/infra/bigquery"
	"github.com/rutwin/cashflow/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the BigQuery ledger tables",
	Long: `Apply the embedded schema migrations to gcp.project_id / gcp.dataset_id.
Applied versions are recorded in the schema_migrations table.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().String("applied-by", "cashflow-migrate", "Name recorded with each applied migration")
	migrateCmd.Flags().Bool("dry-run", false, "List pending migrations without applying them")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	appliedBy, _ := cmd.Flags().GetString("applied-by")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := config.Load(rootOpts.configPath)
	if err != nil {
		return err
	}
	if !cfg.LedgerEnabled() {
		return fmt.Errorf("migrate needs gcp.project_id and gcp.dataset_id")
	}
	cfg.Log.Service = "cashflow-migrate"
	log := logger.NewWithOptions(os.Stderr, cfg.Log)
	ctx := logger.WithContext(cmd.Context(), log)

	store, err := infraBQ.NewStore(ctx, cfg.GCP.ProjectID, cfg.GCP.DatasetID)
	if err != nil {
		return err
	}
	defer store.Close()

	applied, err := store.Migrate(ctx, appliedBy, dryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(applied) == 0 {
		fmt.Fprintln(out, "Schema is up to date.")
		return nil
	}
	verb := "Applied"
	if dryRun {
		verb = "Pending"
	}
	for _, m := range applied {
		fmt.Fprintf(out, "%s %04d_%s\n", verb, m.Version, m.Name)
	}
	return nil
}
