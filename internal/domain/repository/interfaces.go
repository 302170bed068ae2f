package repository

import (
	"context"
	"time"

	"GammaDesk/internal/domain/models"
)

// SpotPriceSource returns current and historical daily prices.
type SpotPriceSource interface {
	Current(ctx context.Context, symbol string) (float64, error)
	History(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
}

// OptionGreeksSource returns per-option greeks rows for a date range.
type OptionGreeksSource interface {
	Options(ctx context.Context, symbol string, from, to time.Time) (models.OptionChain, error)
}

// OpenInterestSource reads the positions archive.
// A zero asOf means the latest date the archive holds for (symbol, code).
type OpenInterestSource interface {
	Breakdown(ctx context.Context, symbol, code string, asOf time.Time) (models.OIBreakdown, error)
	LatestDate(ctx context.Context, symbol, code string) (time.Time, error)
	// RecentDates returns up to n distinct as-of dates, oldest first.
	RecentDates(ctx context.Context, symbol, code string, n int) ([]time.Time, error)
	Count(ctx context.Context, symbol, code string, asOf time.Time) (int, error)
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordSourceCall(source string, d time.Duration, err error)
	RecordDroppedRows(source string, n int)
	RecordAnalysis(kind string, d time.Duration, err error)
	RecordFallback(model string)
	RecordCache(namespace string, hit bool)
	RecordSpot(symbol string, price float64)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordSourceCall(string, time.Duration, error) {}
func (NopMetrics) RecordDroppedRows(string, int)                 {}
func (NopMetrics) RecordAnalysis(string, time.Duration, error)   {}
func (NopMetrics) RecordFallback(string)                         {}
func (NopMetrics) RecordCache(string, bool)                      {}
func (NopMetrics) RecordSpot(string, float64)                    {}
