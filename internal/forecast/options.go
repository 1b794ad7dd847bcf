package forecast

import (
	"fmt"

	"github.com/rutwin/cashflow/internal/recurring"
)

// ErrInvalidConfiguration is shared with the detector so callers can test for
// one sentinel regardless of which stage rejected the options.
var ErrInvalidConfiguration = recurring.ErrInvalidConfiguration

const (
	DefaultHorizonDays  = 30
	DefaultLookbackDays = 90
)

// Options controls a single projection.
type Options struct {
	// HorizonDays is the number of days after today to project. The range is
	// inclusive, so a horizon of 0 yields exactly one day.
	HorizonDays int `json:"horizon_days" yaml:"horizon_days"`
	// LookbackDays is the history window, ending today, used for the flat
	// daily averages.
	LookbackDays     int              `json:"lookback_days" yaml:"lookback_days"`
	IncludeRecurring bool             `json:"include_recurring" yaml:"include_recurring"`
	Recurring        recurring.Config `json:"recurring" yaml:"recurring"`
}

// DefaultOptions returns a 30 day projection over 90 days of history with
// recurring injection enabled.
func DefaultOptions() Options {
	return Options{
		HorizonDays:      DefaultHorizonDays,
		LookbackDays:     DefaultLookbackDays,
		IncludeRecurring: true,
		Recurring:        recurring.DefaultConfig(),
	}
}

// Validate rejects windows that cannot produce a projection.
func (o Options) Validate() error {
	if o.LookbackDays <= 0 {
		return fmt.Errorf("%w: lookback_days must be positive, got %d", ErrInvalidConfiguration, o.LookbackDays)
	}
	if o.HorizonDays < 0 {
		return fmt.Errorf("%w: horizon_days must not be negative, got %d", ErrInvalidConfiguration, o.HorizonDays)
	}
	if o.IncludeRecurring {
		if err := o.Recurring.Validate(); err != nil {
			return err
		}
	}
	return nil
}
