package repository

import (
	"context"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	"GammaDesk/pkg/cache"
	xutil "GammaDesk/pkg/util"
)

// Cache keys always carry symbol, expiration and the as-of date of the source data,
// so a new archive date never serves a stale result.

// CachedOpenInterest is a read-through cache over an OpenInterestSource.
type CachedOpenInterest struct {
	inner   domrepo.OpenInterestSource
	c       cache.Service
	ttl     time.Duration
	dateTTL time.Duration
	metrics domrepo.Metrics
}

var _ domrepo.OpenInterestSource = (*CachedOpenInterest)(nil)

func NewCachedOpenInterest(inner domrepo.OpenInterestSource, c cache.Service, ttl time.Duration, m domrepo.Metrics) *CachedOpenInterest {
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	return &CachedOpenInterest{inner: inner, c: c, ttl: ttl, dateTTL: time.Minute, metrics: m}
}

func (s *CachedOpenInterest) Breakdown(ctx context.Context, symbol, code string, asOf time.Time) (models.OIBreakdown, error) {
	if asOf.IsZero() {
		latest, err := s.LatestDate(ctx, symbol, code)
		if err != nil {
			return nil, err
		}
		asOf = latest
	}
	key := cache.Key("oi", symbol, code, asOf.Format(xutil.CodeLayout))
	v, hit, err := cache.GetOrLoad(ctx, s.c, key, s.ttl, func(ctx context.Context) (models.OIBreakdown, error) {
		return s.inner.Breakdown(ctx, symbol, code, asOf)
	})
	s.metrics.RecordCache("oi", hit)
	return v, err
}

func (s *CachedOpenInterest) LatestDate(ctx context.Context, symbol, code string) (time.Time, error) {
	dates, err := s.RecentDates(ctx, symbol, code, 1)
	if err != nil {
		return time.Time{}, err
	}
	if len(dates) == 0 {
		return s.inner.LatestDate(ctx, symbol, code)
	}
	return dates[0], nil
}

func (s *CachedOpenInterest) RecentDates(ctx context.Context, symbol, code string, n int) ([]time.Time, error) {
	key := cache.Key("oi_dates", symbol, code, n)
	v, hit, err := cache.GetOrLoad(ctx, s.c, key, s.dateTTL, func(ctx context.Context) ([]time.Time, error) {
		return s.inner.RecentDates(ctx, symbol, code, n)
	})
	s.metrics.RecordCache("oi_dates", hit)
	return v, err
}

func (s *CachedOpenInterest) Count(ctx context.Context, symbol, code string, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		dates, err := s.RecentDates(ctx, symbol, code, 1)
		if err != nil {
			return 0, err
		}
		if len(dates) == 0 {
			return 0, nil
		}
		asOf = dates[0]
	}
	key := cache.Key("oi_count", symbol, code, asOf.Format(xutil.CodeLayout))
	v, hit, err := cache.GetOrLoad(ctx, s.c, key, s.ttl, func(ctx context.Context) (int, error) {
		return s.inner.Count(ctx, symbol, code, asOf)
	})
	s.metrics.RecordCache("oi_count", hit)
	return v, err
}

func (s *CachedOpenInterest) Health(ctx context.Context) error {
	return s.inner.Health(ctx)
}

// CachedGreeks caches option chains per (symbol, from, to).
type CachedGreeks struct {
	inner   domrepo.OptionGreeksSource
	c       cache.Service
	ttl     time.Duration
	metrics domrepo.Metrics
}

var _ domrepo.OptionGreeksSource = (*CachedGreeks)(nil)

func NewCachedGreeks(inner domrepo.OptionGreeksSource, c cache.Service, ttl time.Duration, m domrepo.Metrics) *CachedGreeks {
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	return &CachedGreeks{inner: inner, c: c, ttl: ttl, metrics: m}
}

func (s *CachedGreeks) Options(ctx context.Context, symbol string, from, to time.Time) (models.OptionChain, error) {
	key := cache.Key("greeks", symbol, from.Format(xutil.CodeLayout), to.Format(xutil.CodeLayout))
	v, hit, err := cache.GetOrLoad(ctx, s.c, key, s.ttl, func(ctx context.Context) (models.OptionChain, error) {
		return s.inner.Options(ctx, symbol, from, to)
	})
	s.metrics.RecordCache("greeks", hit)
	return v, err
}

// CachedSpot caches current quotes briefly and history per date range.
type CachedSpot struct {
	inner      domrepo.SpotPriceSource
	c          cache.Service
	currentTTL time.Duration
	historyTTL time.Duration
	metrics    domrepo.Metrics
}

var _ domrepo.SpotPriceSource = (*CachedSpot)(nil)

func NewCachedSpot(inner domrepo.SpotPriceSource, c cache.Service, currentTTL, historyTTL time.Duration, m domrepo.Metrics) *CachedSpot {
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	return &CachedSpot{inner: inner, c: c, currentTTL: currentTTL, historyTTL: historyTTL, metrics: m}
}

func (s *CachedSpot) Current(ctx context.Context, symbol string) (float64, error) {
	key := cache.Key("spot", symbol, time.Now().UTC().Format(xutil.CodeLayout))
	v, hit, err := cache.GetOrLoad(ctx, s.c, key, s.currentTTL, func(ctx context.Context) (float64, error) {
		return s.inner.Current(ctx, symbol)
	})
	s.metrics.RecordCache("spot", hit)
	if err == nil {
		s.metrics.RecordSpot(symbol, v)
	}
	return v, err
}

func (s *CachedSpot) History(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	key := cache.Key("bars", symbol, from.Format(xutil.CodeLayout), to.Format(xutil.CodeLayout))
	v, hit, err := cache.GetOrLoad(ctx, s.c, key, s.historyTTL, func(ctx context.Context) ([]models.Bar, error) {
		return s.inner.History(ctx, symbol, from, to)
	})
	s.metrics.RecordCache("bars", hit)
	return v, err
}
