package repository

import "time"

// Period is a price-history lookback accepted by the bands endpoint.
type Period string

const (
	Period1Y Period = "1y"
	Period2Y Period = "2y"
	Period3Y Period = "3y"
	Period5Y Period = "5y"
)

// IsValidPeriod returns true if p is a supported lookback.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period1Y, Period2Y, Period3Y, Period5Y:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default lookback.
func DefaultPeriod() Period { return Period2Y }

// NormalizePeriod converts raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	if s == "" {
		return DefaultPeriod()
	}
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}

// Start returns the first day of the lookback ending at end.
func (p Period) Start(end time.Time) time.Time {
	switch p {
	case Period1Y:
		return end.AddDate(-1, 0, 0)
	case Period3Y:
		return end.AddDate(-3, 0, 0)
	case Period5Y:
		return end.AddDate(-5, 0, 0)
	default:
		return end.AddDate(-2, 0, 0)
	}
}
