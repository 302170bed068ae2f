package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	applogger "GammaDesk/pkg/logger"
	xutil "GammaDesk/pkg/util"
)

// FallbackPriceSource tries the primary source first, then the secondary.
type FallbackPriceSource struct {
	primary   domrepo.SpotPriceSource
	secondary domrepo.SpotPriceSource
	l         *applogger.Logger
}

var _ domrepo.SpotPriceSource = (*FallbackPriceSource)(nil)

func NewFallbackPriceSource(primary, secondary domrepo.SpotPriceSource, l *applogger.Logger) *FallbackPriceSource {
	if l == nil {
		l = applogger.NewNop()
	}
	return &FallbackPriceSource{primary: primary, secondary: secondary, l: l}
}

func (s *FallbackPriceSource) Current(ctx context.Context, symbol string) (float64, error) {
	p, err := s.primary.Current(ctx, symbol)
	if err == nil && p > 0 {
		return p, nil
	}
	s.l.Warn("primary spot source failed, trying fallback",
		applogger.String("symbol", symbol), applogger.Any("error", errString(err)))
	if s.secondary == nil {
		return 0, fmt.Errorf("%w: %s", models.ErrNoSpotPrice, symbol)
	}
	p2, err2 := s.secondary.Current(ctx, symbol)
	if err2 == nil && p2 > 0 {
		return p2, nil
	}
	return 0, fmt.Errorf("%w: %s: %v", models.ErrNoSpotPrice, symbol, errors.Join(err, err2))
}

func (s *FallbackPriceSource) History(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	bars, err := s.primary.History(ctx, symbol, from, to)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if s.secondary == nil {
		return nil, fmt.Errorf("%w: %s history: %v", models.ErrNoSpotPrice, symbol, err)
	}
	bars2, err2 := s.secondary.History(ctx, symbol, from, to)
	if err2 == nil && len(bars2) > 0 {
		return bars2, nil
	}
	return nil, fmt.Errorf("%w: %s history: %v", models.ErrNoSpotPrice, symbol, errors.Join(err, err2))
}

// CloseOn returns the close of the last bar dated on or before day.
func CloseOn(bars []models.Bar, day time.Time) (float64, bool) {
	target := xutil.Day(day)
	best := -1
	for i, b := range bars {
		if xutil.Day(b.Date).After(target) {
			continue
		}
		if best < 0 || b.Date.After(bars[best].Date) {
			best = i
		}
	}
	if best < 0 || !(bars[best].Close > 0) {
		return 0, false
	}
	return bars[best].Close, true
}

func errString(err error) string {
	if err == nil {
		return "non-positive price"
	}
	return err.Error()
}
