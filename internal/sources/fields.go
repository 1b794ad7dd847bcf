package sources

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	errMissingAmount = errors.New("missing amount")
	errMissingDate   = errors.New("missing date")
	errInvalidAmount = errors.New("amount is not a finite number")
	// errPending marks a well-formed record that has not posted yet.
	errPending = errors.New("pending")
)

// flexAmount accepts a JSON number or a numeric string ("-86.46"). NaN and
// infinities are rejected.
type flexAmount struct {
	Value float64
	Set   bool
}

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("parsing amount %q: %w", s, errInvalidAmount)
	}
	a.Value = v
	a.Set = true
	return nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, errMissingDate
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return civil.DateOf(ts), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
