package bigquery

import (
	"encoding/json"
	"math/big"
	"testing"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

func TestTransactionRowMarshalJSON(t *testing.T) {
	row := TransactionRow{
		TransactionID:         "tx-1",
		AccountID:             "acc-1",
		TransactionDate:       civil.Date{Year: 2024, Month: 2, Day: 29},
		Amount:                big.NewRat(1999, 100),
		Currency:              "GBP",
		Direction:             bigquery.NullString{StringVal: "OUT", Valid: true},
		RawDescription:        "CARD PAYMENT TO GYM",
		NormalizedDescription: bigquery.NullString{StringVal: "Gym", Valid: true},
	}

	b, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := map[string]string{
		"amount":                 "19.99",
		"direction":              "OUT",
		"normalized_description": "Gym",
		"transaction_date":       "2024-02-29",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %q", k, got[k], v)
		}
	}
	if _, ok := got["category_name"]; ok {
		t.Errorf("category_name should be omitted when null")
	}
}

func TestTransactionRowMarshalJSON_NilAmount(t *testing.T) {
	b, err := json.Marshal(TransactionRow{TransactionID: "x"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["amount"] != "0" {
		t.Errorf("amount = %v, want \"0\"", got["amount"])
	}
}
