package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitExport(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		transactions string
		balances     string
		wantErr      bool
	}{
		{name: "bare array", raw: ` [{"id": "1"}] `, transactions: `[{"id": "1"}]`},
		{name: "object with balances", raw: `{"transactions": [], "balances": [{"a": 1}]}`, transactions: `[]`, balances: `[{"a": 1}]`},
		{name: "plaid accounts", raw: `{"transactions": [{"x": 1}], "accounts": [{"b": 2}]}`, transactions: `[{"x": 1}]`, balances: `[{"b": 2}]`},
		{name: "no transactions key", raw: `{"balances": []}`, transactions: `[]`, balances: `[]`},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "garbage", raw: `{"transactions":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, balances, err := splitExport([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.transactions, string(txns))
			assert.Equal(t, tt.balances, string(balances))
		})
	}
}

func TestResolveInput(t *testing.T) {
	ctx := context.Background()

	in, err := resolveInput(ctx, "", "teller", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "teller", in.Source)
	assert.Equal(t, "acc-1", in.AccountID)
	assert.Nil(t, in.Transactions, "no input means the ledger")

	in, err = resolveInput(ctx, "gs://exports/plaid.json", "plaid", "")
	require.NoError(t, err)
	assert.Equal(t, "gs://exports/plaid.json", in.InputURI)
	assert.Nil(t, in.Transactions)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"transactions": [{"id": "t1"}], "accounts": []}`), 0o600))
	in, err = resolveInput(ctx, path, "plaid", "")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": "t1"}]`, string(in.Transactions))
	assert.JSONEq(t, `[]`, string(in.Balances))

	_, err = resolveInput(ctx, filepath.Join(t.TempDir(), "missing.json"), "plaid", "")
	assert.Error(t, err)
}

func TestForecastCommand(t *testing.T) {
	for _, key := range []string{"GCP_PROJECT_ID", "BQ_DATASET", "GCS_BUCKET", "NOTION_TOKEN", "NOTION_DATABASE_ID", "CASHFLOW_CONFIG"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	today := time.Now().Format("2006-01-02")
	export := `[{"id": "t1", "account_id": "acc-1", "amount": "-9.99", "date": "` + today + `", "description": "Music", "status": "posted"}]`
	path := filepath.Join(dir, "teller.json")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"forecast",
		"--source", "teller",
		"--input", path,
		"--account", "acc-1",
		"--horizon", "3",
		"--starting-balance", "100",
	})
	require.NoError(t, rootCmd.Execute())

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report), out.String())
	assert.Equal(t, "acc-1", report["account_id"])
	assert.Len(t, report["daily_forecast"], 4)
	summary := report["summary"].(map[string]any)
	assert.InDelta(t, 100.0, summary["starting_balance"], 1e-9)
}
