package domain

import (
	"math"
	"time"

	"cloud.google.com/go/civil"
)

// Transaction is one normalized transaction as consumed by the analytics core.
// Amounts always follow a single convention regardless of where the record came
// from: positive = money OUT (debit), negative = money IN (credit).
type Transaction struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	Amount       float64    `json:"amount"`
	Date         civil.Date `json:"date"`
	Description  string     `json:"description"`
	MerchantName string     `json:"merchant_name,omitempty"`
	Category     string     `json:"category,omitempty"`
	Type         string     `json:"type,omitempty"`
}

// IsOutflow reports whether the transaction took money out of the account.
func (t Transaction) IsOutflow() bool {
	return t.Amount > 0
}

// Usable reports whether the transaction has a valid date and a finite
// amount. Anything else is skipped by the analytics core.
func (t Transaction) Usable() bool {
	return t.Date.IsValid() && !math.IsNaN(t.Amount) && !math.IsInf(t.Amount, 0)
}

// Direction classifies money movement for a transaction or pattern.
type Direction string

const (
	DirectionInflow  Direction = "inflow"
	DirectionOutflow Direction = "outflow"
)

// DirectionOf returns the direction implied by a normalized amount.
func DirectionOf(amount float64) Direction {
	if amount > 0 {
		return DirectionOutflow
	}
	return DirectionInflow
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b civil.Date) int {
	return b.DaysSince(a)
}

// Today returns the calendar date of t in its own location.
func Today(t time.Time) civil.Date {
	return civil.DateOf(t)
}
