// Package sources turns provider exports into normalized transactions and
// balance snapshots. Every decoder maps amounts onto one convention:
// positive = money out, negative = money in.
package sources

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rutwin/cashflow/internal/domain"
)

// ErrUnknownSource is returned for a source name no decoder is registered for.
var ErrUnknownSource = errors.New("unknown source")

// Source names an upstream data provider.
type Source string

const (
	Plaid  Source = "plaid"
	Teller Source = "teller"
	Ledger Source = "ledger"
)

// ParseSource validates a source name. An empty name selects Ledger, the
// store rows are loaded from when a request carries no export.
func ParseSource(name string) (Source, error) {
	switch s := Source(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return Ledger, nil
	case Plaid, Teller, Ledger:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}

// Batch is the normalized content of one export.
type Batch struct {
	Transactions []domain.Transaction            `json:"transactions"`
	Balances     []domain.AccountBalanceSnapshot `json:"balances,omitempty"`
	// Skipped counts records dropped because a required field was missing or
	// unparseable.
	Skipped int `json:"skipped"`
}

type decoder struct {
	transaction func(json.RawMessage) (domain.Transaction, error)
	balance     func(json.RawMessage) (domain.AccountBalanceSnapshot, error)
}

func decoderFor(src Source) (decoder, error) {
	switch src {
	case Plaid:
		return decoder{transaction: decodePlaidTransaction, balance: decodePlaidBalance}, nil
	case Teller:
		return decoder{transaction: decodeTellerTransaction, balance: decodeTellerBalance}, nil
	case Ledger:
		return decoder{transaction: decodeLedgerTransaction, balance: decodeLedgerBalance}, nil
	default:
		return decoder{}, fmt.Errorf("%w: %q", ErrUnknownSource, string(src))
	}
}

// DecodeTransactions normalizes a JSON array of provider records. Pending
// records are dropped without being counted, matching ledger loads. Records
// that cannot be decoded are skipped and counted; only a payload that is not
// an array at all is an error.
func DecodeTransactions(src Source, raw json.RawMessage) ([]domain.Transaction, int, error) {
	dec, err := decoderFor(src)
	if err != nil {
		return nil, 0, err
	}

	items, err := splitArray(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("DecodeTransactions: %s: %w", src, err)
	}

	txns := make([]domain.Transaction, 0, len(items))
	skipped := 0
	for _, item := range items {
		t, err := dec.transaction(item)
		if errors.Is(err, errPending) {
			continue
		}
		if err != nil {
			skipped++
			continue
		}
		txns = append(txns, t)
	}
	return txns, skipped, nil
}

// DecodeBalances normalizes a JSON array of provider balance records.
// Unparseable records are dropped.
func DecodeBalances(src Source, raw json.RawMessage) ([]domain.AccountBalanceSnapshot, error) {
	dec, err := decoderFor(src)
	if err != nil {
		return nil, err
	}

	items, err := splitArray(raw)
	if err != nil {
		return nil, fmt.Errorf("DecodeBalances: %s: %w", src, err)
	}

	balances := make([]domain.AccountBalanceSnapshot, 0, len(items))
	for _, item := range items {
		b, err := dec.balance(item)
		if err != nil {
			continue
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// DecodeExport reads a whole export file. Two layouts are accepted: a bare
// array of transactions, or an object with "transactions" and optional
// "balances" (or "accounts") arrays.
func DecodeExport(src Source, raw []byte) (Batch, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		txns, skipped, err := DecodeTransactions(src, trimmed)
		if err != nil {
			return Batch{}, err
		}
		return Batch{Transactions: txns, Skipped: skipped}, nil
	}

	var doc struct {
		Transactions json.RawMessage `json:"transactions"`
		Balances     json.RawMessage `json:"balances"`
		Accounts     json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Batch{}, fmt.Errorf("DecodeExport: parsing document: %w", err)
	}

	var batch Batch
	if len(doc.Transactions) > 0 {
		txns, skipped, err := DecodeTransactions(src, doc.Transactions)
		if err != nil {
			return Batch{}, err
		}
		batch.Transactions = txns
		batch.Skipped = skipped
	}

	balances := doc.Balances
	if len(balances) == 0 {
		balances = doc.Accounts
	}
	if len(balances) > 0 {
		b, err := DecodeBalances(src, balances)
		if err != nil {
			return Batch{}, err
		}
		batch.Balances = b
	}
	if batch.Transactions == nil {
		batch.Transactions = []domain.Transaction{}
	}
	return batch, nil
}

func splitArray(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}
	return items, nil
}
