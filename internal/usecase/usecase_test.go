package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"GammaDesk/internal/domain/models"
	"GammaDesk/internal/services/catalog"
	"GammaDesk/internal/services/exposure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExpirations(oi *fakeOI) *ExpirationsUseCase {
	uc := NewExpirationsUseCase(catalog.Default(), oi, 3, nil)
	uc.now = fixedNow
	return uc
}

func newAnalysis(src Sources, oi *fakeOI) *AnalysisUseCase {
	a := NewAnalysisUseCase(src, newExpirations(oi), 5, nil, nil)
	a.now = fixedNow
	return a
}

func TestListAvailableProbesEveryExpiration(t *testing.T) {
	oi := &fakeOI{counts: map[string]int{"20250418": 120, "20250516": 0}}
	uc := newExpirations(oi)

	list, err := uc.ListAvailable(context.Background(), "petr4.sa")

	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "20250321", list[0].Code)
	assert.False(t, list[0].Available)
	assert.Equal(t, "20250418", list[1].Code)
	assert.Equal(t, 120, list[1].DataCount)
	assert.True(t, list[1].Available)
	assert.False(t, list[2].Available)

	best, err := uc.BestAvailable(context.Background(), "PETR4")
	require.NoError(t, err)
	assert.Equal(t, "20250418", best.Code)
	assert.Equal(t, 35, best.DaysUntil)
}

func TestBestAvailableWithoutPositions(t *testing.T) {
	_, err := newExpirations(&fakeOI{}).BestAvailable(context.Background(), "PETR4")
	assert.ErrorIs(t, err, models.ErrNoPositionsData)
}

func TestResolveUnknownCode(t *testing.T) {
	_, err := newExpirations(&fakeOI{}).Resolve(context.Background(), "PETR4", "20250322")
	assert.ErrorIs(t, err, models.ErrUnknownExpiration)

	e, err := newExpirations(&fakeOI{}).Resolve(context.Background(), "PETR4", "20250321")
	require.NoError(t, err)
	assert.Equal(t, 7, e.DaysUntil)
}

func TestAnalyzeGamma(t *testing.T) {
	oi := &fakeOI{breakdown: putHeavyBelow105(), counts: map[string]int{"20250321": 18}}
	src := Sources{
		Spot:   &fakeSpot{current: 100},
		Greeks: &fakeGreeks{rows: append(chainOn(day1), chainOn(day2)...)},
		OI:     oi,
	}

	res, err := newAnalysis(src, oi).Analyze(context.Background(), models.GreekAnalysisRequest{
		Greek: "gamma", Ticker: "PETR4", DaysBack: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, "20250321", res.Expiration.Code)
	assert.Equal(t, day2, res.AsOf)
	assert.Equal(t, len(ladder)*2, res.Quality.OptionsCount)
	require.NotNil(t, res.Flip)
	require.NotNil(t, res.Flip.Strike)
	assert.InDelta(t, 105, *res.Flip.Strike, 1e-9)
	assert.Equal(t, models.ShortGamma, res.Regime)
	require.NotNil(t, res.Walls)
	assert.Equal(t, 106.0, res.Walls.Support.Strike)
	assert.Equal(t, 96.0, res.Walls.Resistance.Strike)

	body, err := json.Marshal(res.Response())
	require.NoError(t, err)
	assert.Contains(t, string(body), `"gamma_levels"`)
	assert.Contains(t, string(body), `"total_gex_uncovered"`)
}

func TestAnalyzeWithoutPositions(t *testing.T) {
	oi := &fakeOI{err: models.ErrNoPositionsData}
	src := Sources{
		Spot:   &fakeSpot{current: 100},
		Greeks: &fakeGreeks{rows: chainOn(day2)},
		OI:     oi,
	}
	a := newAnalysis(src, oi)

	gamma, err := a.Analyze(context.Background(), models.GreekAnalysisRequest{Greek: "gamma", Ticker: "PETR4", ExpirationCode: "20250321"})
	require.NoError(t, err)
	assert.Empty(t, gamma.Table.Rows)
	assert.False(t, gamma.Quality.HasPositions)
	assert.Nil(t, gamma.Flip.Strike)

	vega, err := a.Analyze(context.Background(), models.GreekAnalysisRequest{Greek: "vega", Ticker: "PETR4", ExpirationCode: "20250321"})
	require.NoError(t, err)
	assert.Equal(t, len(ladder), vega.Quality.SyntheticStrikes)
	require.NotNil(t, vega.Volatility)
}

func TestAnalyzeFailsWithoutSpot(t *testing.T) {
	oi := &fakeOI{}
	src := Sources{Spot: &fakeSpot{err: models.ErrNoSpotPrice}, Greeks: &fakeGreeks{}, OI: oi}
	_, err := newAnalysis(src, oi).Analyze(context.Background(), models.GreekAnalysisRequest{Greek: "delta", Ticker: "PETR4", ExpirationCode: "20250321"})
	assert.ErrorIs(t, err, models.ErrNoSpotPrice)
}

func TestMacroAggregatesAndPublishes(t *testing.T) {
	oi := &fakeOI{breakdown: putHeavyBelow105()}
	src := Sources{
		Spot:   &fakeSpot{current: 104},
		Greeks: &fakeGreeks{rows: chainOn(day2)},
		OI:     oi,
	}
	pub := &fakePublisher{}
	uc := NewMacroUseCase(newAnalysis(src, oi), pub, time.Second, 10, nil)

	res, err := uc.Analyze(context.Background(), models.MacroAnalysisRequest{Ticker: "PETR4", ExpirationCode: "20250321"})

	require.NoError(t, err)
	assert.Len(t, res.Dimensions, 4)
	assert.Nil(t, res.Errors)
	types := map[string]bool{}
	for _, a := range res.Integrated.Alerts {
		types[a.Type] = true
	}
	assert.True(t, types["GAMMA_FLIP_CLOSE"])
	assert.True(t, types["HIGH_IV"])
	require.Len(t, pub.events, 1)
	assert.Equal(t, "PETR4", pub.events[0].Symbol)

	body, err := json.Marshal(res.Response())
	require.NoError(t, err)
	assert.Contains(t, string(body), `"theta_data"`)
}

func TestMacroFailsWhenEveryDimensionFails(t *testing.T) {
	oi := &fakeOI{}
	src := Sources{Spot: &fakeSpot{current: 100}, Greeks: &fakeGreeks{err: models.ErrNoGreeksData}, OI: oi}
	uc := NewMacroUseCase(newAnalysis(src, oi), nil, time.Second, 10, nil)

	_, err := uc.Analyze(context.Background(), models.MacroAnalysisRequest{Ticker: "PETR4", ExpirationCode: "20250321"})
	assert.ErrorIs(t, err, models.ErrNoGreeksData)
}

func TestMacroUsesConfiguredIVLookback(t *testing.T) {
	oi := &fakeOI{breakdown: putHeavyBelow105()}
	greeks := &fakeGreeks{rows: chainOn(day2)}
	src := Sources{Spot: &fakeSpot{current: 104}, Greeks: greeks, OI: oi}
	uc := NewMacroUseCase(newAnalysis(src, oi), nil, time.Second, 20, nil)

	_, err := uc.Analyze(context.Background(), models.MacroAnalysisRequest{Ticker: "PETR4", ExpirationCode: "20250321"})

	require.NoError(t, err)
	require.NotEmpty(t, greeks.from)
	for _, from := range greeks.from {
		assert.Equal(t, fixedNow().AddDate(0, 0, -31), from)
	}
	assert.Equal(t, defaultDaysBack, NewMacroUseCase(newAnalysis(src, oi), nil, time.Second, 0, nil).daysBack)
}

func TestIntegrateRules(t *testing.T) {
	flip := 101.0
	maxVega := 104.0
	iv := 35.0
	dims := map[models.Greek]*GreekResult{
		models.Gamma: {Regime: models.ShortGamma, Flip: &exposure.FlipResult{Strike: &flip}},
		models.Delta: {Directional: &exposure.DirectionalPressure{NetDEXUncovered: -250000}},
		models.Vega:  {Volatility: &exposure.VolatilityRegime{WeightedIV: &iv, MaxVegaStrike: &maxVega}},
		models.Theta: {TimeDecay: &exposure.TimeDecayRegime{DailyBleed: -20000}},
	}

	out := Integrate(100, dims)

	require.Len(t, out.Alerts, 2)
	assert.Equal(t, "GAMMA_FLIP_CLOSE", out.Alerts[0].Type)
	assert.Equal(t, models.SeverityHigh, out.Alerts[0].Severity)
	assert.Equal(t, "HIGH_DEX_EXPOSURE", out.Alerts[1].Type)
	require.Len(t, out.Opportunities, 1)
	assert.Equal(t, "SELL_PREMIUM", out.Opportunities[0].Type)
	require.Len(t, out.RiskZones, 1)
	assert.Equal(t, 104.0, out.RiskZones[0].Strike)

	empty := Integrate(100, map[models.Greek]*GreekResult{})
	assert.Equal(t, models.Neutral, empty.Regime)
	assert.Empty(t, empty.Alerts)
}

func historicalFixture() (Sources, *fakeOI) {
	oi := &fakeOI{breakdown: putHeavyBelow105(), dates: []time.Time{day1, day2}}
	src := Sources{
		Spot: &fakeSpot{bars: []models.Bar{
			{Date: day1, Close: 100},
			{Date: day2, Close: 110},
		}},
		Greeks: &fakeGreeks{rows: append(chainOn(day1), chainOn(day2)...)},
		OI:     oi,
	}
	return src, oi
}

func TestHistoricalUsesEachDaysSpot(t *testing.T) {
	src, oi := historicalFixture()
	uc := NewHistoricalUseCase(src, catalog.Default(), nil, nil)
	uc.now = fixedNow

	res, err := uc.Analyze(context.Background(), models.HistoricalAnalysisRequest{Ticker: "PETR4", Vencimento: "20250321", DaysBack: 3})

	require.NoError(t, err)
	require.Len(t, res.Snapshots, 2)
	a, b := res.Snapshots[0], res.Snapshots[1]
	assert.Equal(t, 100.0, a.Spot)
	assert.Equal(t, 110.0, b.Spot)
	require.NotNil(t, a.FlipDistancePct)
	require.NotNil(t, b.FlipDistancePct)
	assert.InDelta(t, 5, *a.FlipDistancePct, 1e-9)
	assert.InDelta(t, 5.0/110*100, *b.FlipDistancePct, 1e-9)
	assert.Equal(t, models.ShortGamma, a.Regime)
	assert.Equal(t, models.LongGamma, b.Regime)

	require.Len(t, res.Insights.RegimeChanges, 1)
	assert.Equal(t, "STABLE", res.Insights.FlipDirection)
	assert.ElementsMatch(t, []time.Time{day1, day2}, oi.asOf)

	body, err := json.Marshal(res.Response())
	require.NoError(t, err)
	assert.Contains(t, string(body), `"spot_prices_by_date":{"2025-03-13":100,"2025-03-14":110}`)
}

func TestHistoricalDaysAreIndependent(t *testing.T) {
	src, _ := historicalFixture()
	uc := NewHistoricalUseCase(src, catalog.Default(), nil, nil)
	exp, _ := catalog.Default().Lookup("20250321")
	bars := src.Spot.(*fakeSpot).bars
	rows := src.Greeks.(*fakeGreeks).rows
	liq := exposure.Classify("PETR4")
	ctx := context.Background()

	f1, err := uc.day(ctx, "PETR4", exp, day1, bars, rows, liq)
	require.NoError(t, err)
	f2, err := uc.day(ctx, "PETR4", exp, day2, bars, rows, liq)
	require.NoError(t, err)
	r2, err := uc.day(ctx, "PETR4", exp, day2, bars, rows, liq)
	require.NoError(t, err)
	r1, err := uc.day(ctx, "PETR4", exp, day1, bars, rows, liq)
	require.NoError(t, err)

	assert.Equal(t, f1, r1)
	assert.Equal(t, f2, r2)
}

func TestHistoricalNeedsTwoDates(t *testing.T) {
	src, oi := historicalFixture()
	oi.dates = oi.dates[1:]
	uc := NewHistoricalUseCase(src, catalog.Default(), nil, nil)

	_, err := uc.Analyze(context.Background(), models.HistoricalAnalysisRequest{Ticker: "PETR4", Vencimento: "20250321", DaysBack: 3})

	var ih *models.InsufficientHistoryError
	require.True(t, errors.As(err, &ih))
	assert.Equal(t, 1, ih.Available)
}

func TestInsightsMostImpacted(t *testing.T) {
	mk := func(d time.Time, unc ...float64) models.RegimeSnapshot {
		s := models.RegimeSnapshot{Date: d, Regime: models.ShortGamma}
		for i, u := range unc {
			s.Rows = append(s.Rows, models.StrikeExposure{Strike: 10 + float64(i), TotalUncovered: u})
			s.NetGEXUncovered += u
		}
		return s
	}
	in := Insights([]models.RegimeSnapshot{
		mk(day1, -1000, 2000, 0),
		mk(day2, -9000, 2500, 8000),
	})

	require.Len(t, in.MostImpacted, 2)
	assert.Equal(t, 10.0, in.MostImpacted[0].Strike)
	assert.Equal(t, -8000.0, in.MostImpacted[0].Change)
	assert.Equal(t, 12.0, in.MostImpacted[1].Strike)
	assert.Equal(t, "INCREASING_LONG", in.GEXTrend.Trend)
	assert.Equal(t, "UNDEFINED", in.FlipDirection)
	assert.Empty(t, in.RegimeChanges)
}

func TestGEXTrendTags(t *testing.T) {
	assert.Equal(t, "INCREASING_SHORT", gexTrend(-10, -20).Trend)
	assert.Equal(t, "DECREASING", gexTrend(20, 10).Trend)
	assert.Equal(t, "DECREASING", gexTrend(-20, -10).Trend)
	assert.Equal(t, "STABLE", gexTrend(5, 5).Trend)
}

func randomWalk(n int) []models.Bar {
	rng := rand.New(rand.NewSource(21))
	bars := make([]models.Bar, 0, n)
	price := 25.0
	d := fixedNow().AddDate(-1, 0, 0)
	for len(bars) < n {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		price *= math.Exp(0.015 * rng.NormFloat64())
		bars = append(bars, models.Bar{Date: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), Open: price, High: price * 1.01, Low: price * 0.99, Close: price})
	}
	return bars
}

func TestBandsResponseIsJSONSafe(t *testing.T) {
	uc := NewBandsUseCase(&fakeSpot{bars: randomWalk(240)}, nil, nil)
	uc.now = fixedNow

	res, err := uc.Analyze(context.Background(), models.BandsRequest{Ticker: "VALE3", Period: "2y"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.Rows)
	body, err := json.Marshal(res.Response())
	require.NoError(t, err)
	assert.Contains(t, string(body), `"trading_signal"`)
	assert.NotContains(t, string(body), "NaN")
}
