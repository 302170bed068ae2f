package exposure

import (
	"testing"
	"time"

	"GammaDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeVolatility(t *testing.T) {
	table := models.ExposureTable{Greek: models.Vega, Rows: []models.StrikeExposure{
		{Strike: 36, Total: 5000, IV: 30, CallOITotal: 100},
		{Strike: 38, Total: -9000, IV: 46, CallOITotal: 300},
		{Strike: 40, Total: 1000, IV: 0},
	}}
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	var rows []models.OptionRow
	for d, iv := range map[int]float64{10: 30, 11: 32, 12: 28} {
		rows = append(rows, models.OptionRow{Time: day(d), Strike: 38, Type: models.Call, IV: iv})
	}
	rows = append(rows, models.OptionRow{Time: day(12), Strike: 36, Type: models.Put, IV: 29})

	v := AnalyzeVolatility(table, 38.2, BuildIVHistory(rows, 10))

	require.NotNil(t, v.ATMStrike)
	assert.Equal(t, 38.0, *v.ATMStrike)
	assert.InDelta(t, 30, *v.ATMIVMean, 1e-9)
	assert.InDelta(t, 16, v.IVDiffPP, 1e-9)
	assert.Equal(t, TrendUp, v.Trend)
	assert.Equal(t, LevelHigh, v.Risk)
	assert.InDelta(t, (30*100+46*300)/400.0, *v.WeightedIV, 1e-9)
	assert.Equal(t, 38.0, *v.MaxVegaStrike)
	require.Len(t, v.Strikes, 2)
	assert.Equal(t, IVNormal, v.Strikes[0].Status)
	assert.Equal(t, IVVeryHigh, v.Strikes[1].Status)
	assert.Equal(t, 28.0, v.Strikes[1].Min)
	assert.Equal(t, 32.0, v.Strikes[1].Max)
}

func TestBuildIVHistoryKeepsLastDays(t *testing.T) {
	var rows []models.OptionRow
	for d := 1; d <= 5; d++ {
		rows = append(rows, models.OptionRow{
			Time: time.Date(2025, 3, d, 10, 0, 0, 0, time.UTC), Strike: 10, Type: models.Call, IV: float64(d),
		})
	}
	h := BuildIVHistory(rows, 3)
	assert.Equal(t, []float64{3, 4, 5}, h[models.NewStrikeKey(10, models.Call).Cents])
}

func TestIVStatusThresholds(t *testing.T) {
	assert.Equal(t, IVVeryHigh, ivStatus(13, 10))
	assert.Equal(t, IVHigh, ivStatus(11, 10))
	assert.Equal(t, IVNormal, ivStatus(9, 10))
	assert.Equal(t, IVLow, ivStatus(7, 10))
	assert.Equal(t, IVVeryLow, ivStatus(6.9, 10))
	assert.Equal(t, IVNormal, ivStatus(6.9, 0))
}

func TestAnalyzeTimeDecay(t *testing.T) {
	table := models.ExposureTable{Greek: models.Theta, Rows: []models.StrikeExposure{
		{Strike: 36, Total: -20000, TotalUncovered: -8000, Days: 10, CallOITotal: 300},
		{Strike: 38, Total: -15000, TotalUncovered: -4000, Days: 20, PutOITotal: 100},
	}}

	d := AnalyzeTimeDecay(table)

	assert.InDelta(t, 12.5, d.WeightedDays, 1e-9)
	assert.Equal(t, LevelHigh, d.Pressure)
	assert.Equal(t, SellerFavorable, d.MarketBias)
	assert.InDelta(t, -12000, d.DailyBleed, 1e-9)
	require.Len(t, d.Strikes, 2)
	assert.InDelta(t, 800, d.Strikes[0].Bleed, 1e-9)
	assert.InDelta(t, 200, d.Strikes[1].Bleed, 1e-9)
	assert.Equal(t, 36.0, *d.MaxBleedStrike)

	table.Rows[0].Total = -5000
	assert.Equal(t, ModeratelySellerFavorable, AnalyzeTimeDecay(table).MarketBias)
	assert.Equal(t, DecayNeutral, AnalyzeTimeDecay(models.ExposureTable{}).MarketBias)
}

func TestAnalyzeDirectional(t *testing.T) {
	table := models.ExposureTable{Greek: models.Delta, Rows: []models.StrikeExposure{
		{Strike: 34, Total: 3000},
		{Strike: 36, Total: 5000},
		{Strike: 38, Total: -2000},
		{Strike: 40, Total: 1000},
	}}

	p := AnalyzeDirectional(table, 38)

	assert.Equal(t, 36.0, *p.BullishTarget)
	assert.Equal(t, 38.0, *p.BearishTarget)
	assert.InDelta(t, 7000, p.NetDEX, 1e-9)
	assert.InDelta(t, 7000.0/11000, p.Concentration, 1e-9)
	assert.Equal(t, BiasBullish, p.Bias)
	// cumsum 3000, 8000, 6000, 7000
	assert.InDelta(t, 2000, p.RemainingPressure, 1e-9)

	empty := AnalyzeDirectional(models.ExposureTable{}, 38)
	assert.Equal(t, BiasNeutral, empty.Bias)
	assert.Nil(t, empty.BullishTarget)
}

func TestSnapshotUsesOwnSpot(t *testing.T) {
	rows, oi := chainFixture()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	liq := Classify("PETR4")

	a, flipA := Snapshot(day, "20250321", rows, oi, 37, liq)
	b, _ := Snapshot(day, "20250321", rows, oi, 38, liq)

	assert.Equal(t, 37.0, a.Spot)
	assert.Equal(t, 38.0, b.Spot)
	assert.NotEqual(t, a.NetGEX, b.NetGEX)
	assert.Equal(t, "HIGH", a.Liquidity)
	assert.Equal(t, flipA.Consistent, a.FlipConsistent)
}

func TestSnapshotRegimeWithoutFlip(t *testing.T) {
	assert.Equal(t, models.LongGamma, SnapshotRegime(100, nil, 10))
	assert.Equal(t, models.ShortGamma, SnapshotRegime(100, nil, -10))
	assert.Equal(t, models.Neutral, SnapshotRegime(100, nil, 0))
	f := 100.0
	assert.Equal(t, models.ShortGamma, SnapshotRegime(100, &f, 10))
}
