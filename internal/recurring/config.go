package recurring

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when detection thresholds make no sense.
// It signals a caller bug, not a data problem.
var ErrInvalidConfiguration = errors.New("invalid configuration")

const (
	// DefaultMinOccurrences is the smallest cluster that can be called recurring.
	DefaultMinOccurrences = 2

	// DefaultAmountTolerance is the allowed deviation from a cluster anchor, in currency units.
	DefaultAmountTolerance = 1.00
)

// Config holds the detection thresholds.
type Config struct {
	MinOccurrences  int     `json:"min_occurrences" yaml:"min_occurrences"`
	AmountTolerance float64 `json:"amount_tolerance" yaml:"amount_tolerance"`
}

// DefaultConfig returns the thresholds used when a caller does not override them.
func DefaultConfig() Config {
	return Config{
		MinOccurrences:  DefaultMinOccurrences,
		AmountTolerance: DefaultAmountTolerance,
	}
}

// Validate fails fast on zero or negative thresholds.
func (c Config) Validate() error {
	if c.MinOccurrences <= 0 {
		return fmt.Errorf("%w: min_occurrences must be positive, got %d", ErrInvalidConfiguration, c.MinOccurrences)
	}
	if c.AmountTolerance <= 0 {
		return fmt.Errorf("%w: amount_tolerance must be positive, got %.2f", ErrInvalidConfiguration, c.AmountTolerance)
	}
	return nil
}
