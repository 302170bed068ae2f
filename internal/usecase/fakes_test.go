package usecase

import (
	"context"
	"sync"
	"time"

	"GammaDesk/internal/domain/models"
	xutil "GammaDesk/pkg/util"
)

type fakeSpot struct {
	current float64
	err     error
	bars    []models.Bar
}

func (f *fakeSpot) Current(context.Context, string) (float64, error) { return f.current, f.err }

func (f *fakeSpot) History(_ context.Context, _ string, from, to time.Time) ([]models.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Bar
	for _, b := range f.bars {
		if !b.Date.Before(xutil.Day(from)) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeGreeks struct {
	rows []models.OptionRow
	err  error

	mu   sync.Mutex
	from []time.Time
}

func (f *fakeGreeks) Options(_ context.Context, _ string, from, _ time.Time) (models.OptionChain, error) {
	f.mu.Lock()
	f.from = append(f.from, from)
	f.mu.Unlock()
	if f.err != nil {
		return models.OptionChain{}, f.err
	}
	return models.OptionChain{Rows: f.rows}, nil
}

type fakeOI struct {
	mu        sync.Mutex
	breakdown models.OIBreakdown
	dates     []time.Time
	counts    map[string]int
	err       error
	asOf      []time.Time
}

func (f *fakeOI) Breakdown(_ context.Context, _, _ string, asOf time.Time) (models.OIBreakdown, error) {
	f.mu.Lock()
	f.asOf = append(f.asOf, asOf)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.breakdown, nil
}

func (f *fakeOI) LatestDate(context.Context, string, string) (time.Time, error) {
	if len(f.dates) == 0 {
		return time.Time{}, models.ErrNoPositionsData
	}
	return f.dates[len(f.dates)-1], nil
}

func (f *fakeOI) RecentDates(_ context.Context, _, _ string, n int) ([]time.Time, error) {
	if n > len(f.dates) {
		n = len(f.dates)
	}
	return f.dates[len(f.dates)-n:], nil
}

func (f *fakeOI) Count(_ context.Context, _, code string, _ time.Time) (int, error) {
	n, ok := f.counts[code]
	if !ok {
		return 0, models.ErrNoPositionsData
	}
	return n, nil
}

func (f *fakeOI) Health(context.Context) error { return nil }

type fakePublisher struct {
	events []models.AlertEvent
}

func (p *fakePublisher) PublishAlerts(_ context.Context, ev models.AlertEvent) error {
	p.events = append(p.events, ev)
	return nil
}

var (
	day1 = time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
)

func fixedNow() time.Time { return day2.Add(15 * time.Hour) }

var ladder = []float64{96, 98, 100, 102, 104, 106, 108, 110, 112}

// chainOn builds a call and a put per ladder strike for day.
func chainOn(day time.Time) []models.OptionRow {
	var rows []models.OptionRow
	for _, s := range ladder {
		for _, typ := range []models.OptionType{models.Call, models.Put} {
			delta := 0.5
			if typ == models.Put {
				delta = -0.5
			}
			rows = append(rows, models.OptionRow{
				Symbol:         "PETR4",
				Time:           day.Add(18 * time.Hour),
				Strike:         s,
				Type:           typ,
				Gamma:          0.05,
				Delta:          delta,
				Vega:           0.1,
				Theta:          -0.04,
				IV:             45,
				DaysToMaturity: 7,
				Premium:        1.5,
				Volume:         100,
			})
		}
	}
	return rows
}

// putHeavyBelow105 puts uncovered put OI below 105 and uncovered call OI above it.
func putHeavyBelow105() models.OIBreakdown {
	oi := models.OIBreakdown{}
	for _, s := range ladder {
		callU, putU := int64(200), int64(1000)
		if s > 105 {
			callU, putU = 1000, 200
		}
		oi.Add(s, models.Call, models.OIEntry{Total: callU * 2, Uncovered: callU})
		oi.Add(s, models.Put, models.OIEntry{Total: putU * 2, Uncovered: putU})
	}
	return oi
}
