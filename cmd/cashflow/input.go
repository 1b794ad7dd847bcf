package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// splitExport separates an export file into its transaction and balance
// arrays. A bare array is all transactions; an object carries
// "transactions" plus optional "balances" or "accounts".
func splitExport(raw []byte) (transactions, balances json.RawMessage, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil, errors.New("export is empty")
	}
	if trimmed[0] == '[' {
		return json.RawMessage(trimmed), nil, nil
	}

	var doc struct {
		Transactions json.RawMessage `json:"transactions"`
		Balances     json.RawMessage `json:"balances"`
		Accounts     json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing export: %w", err)
	}
	transactions = doc.Transactions
	if len(transactions) == 0 {
		transactions = json.RawMessage(`[]`)
	}
	balances = doc.Balances
	if len(balances) == 0 {
		balances = doc.Accounts
	}
	return transactions, balances, nil
}
