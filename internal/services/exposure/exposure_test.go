package exposure

import (
	"testing"
	"time"

	"GammaDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gexTable(strikes, uncovered []float64) models.ExposureTable {
	t := models.ExposureTable{Greek: models.Gamma}
	for i, s := range strikes {
		t.Rows = append(t.Rows, models.StrikeExposure{
			Strike:         s,
			TotalUncovered: uncovered[i],
			Total:          uncovered[i],
			HasRealData:    true,
		})
	}
	return t
}

var flipStrikes = []float64{140, 142.5, 145, 147.5, 150}

func TestDetectFlipNeutralPicksNearest(t *testing.T) {
	table := gexTable(flipStrikes, []float64{-5000, -3000, -500, 2000, 4000})

	res := DetectFlip(table, 145, 0.06)

	assert.Equal(t, models.Neutral, res.RegimeAtSpot)
	assert.Equal(t, SourceReal, res.Source)
	require.NotNil(t, res.Strike)
	assert.InDelta(t, 145.5, *res.Strike, 1e-9)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, Above, res.Candidates[0].Position)
	assert.InDelta(t, 2500, res.Candidates[0].Confidence, 1e-9)
}

func TestDetectFlipNeutralLeanAgainstFlipSide(t *testing.T) {
	// +500 at spot leans long, but the nearest crossing sits above spot
	table := gexTable(flipStrikes, []float64{-5000, 800, 500, -2000, -4000})

	res := DetectFlip(table, 145, 0.06)

	assert.Equal(t, models.Neutral, res.RegimeAtSpot)
	require.NotNil(t, res.Strike)
	assert.InDelta(t, 145.5, *res.Strike, 1e-9)
	assert.Len(t, res.Kept, 2)
	assert.False(t, res.Consistent)

	res = DetectFlip(gexTable(flipStrikes, []float64{-5000, -3000, -500, 2000, 4000}), 145, 0.06)
	assert.True(t, res.Consistent)
}

func TestDetectFlipShortGammaKeepsAbove(t *testing.T) {
	table := gexTable(flipStrikes, []float64{-5000, -3000, -2000, 2000, 4000})

	res := DetectFlip(table, 145, 0.06)

	assert.Equal(t, models.ShortGamma, res.RegimeAtSpot)
	require.NotNil(t, res.Strike)
	assert.InDelta(t, 146.25, *res.Strike, 1e-9)
	assert.True(t, res.Consistent)
}

func TestDetectFlipLongGammaDropsAbove(t *testing.T) {
	// only crossing sits above spot, which a long gamma regime rejects
	table := gexTable(flipStrikes, []float64{3000, 2500, 2000, -2000, -4000})

	res := DetectFlip(table, 144, 0.06)

	assert.Equal(t, models.LongGamma, res.RegimeAtSpot)
	assert.Len(t, res.Candidates, 1)
	assert.Empty(t, res.Kept)
	assert.Nil(t, res.Strike)
}

func TestDetectFlipWindowExcludesEverything(t *testing.T) {
	table := gexTable(flipStrikes, []float64{-5000, -3000, -500, 2000, 4000})

	res := DetectFlip(table, 135, 0.02)

	assert.Nil(t, res.Strike)
	assert.Empty(t, res.Candidates)
}

func TestDetectFlipEdgeCases(t *testing.T) {
	assert.Nil(t, DetectFlip(models.ExposureTable{}, 100, 0.1).Strike)
	assert.Nil(t, DetectFlip(gexTable([]float64{100}, []float64{-5000}), 100, 0.1).Strike)
	assert.Nil(t, DetectFlip(gexTable([]float64{99, 101}, []float64{0, 0}), 100, 0.1).Strike)
}

func TestDetectFlipFallsBackToMixedRows(t *testing.T) {
	table := gexTable(flipStrikes, []float64{-5000, -3000, -500, 2000, 4000})
	for i := range table.Rows {
		table.Rows[i].HasRealData = i%2 == 0
	}
	// real rows 140,145,150 still cross between 145 and 150
	res := DetectFlip(table, 145, 0.06)
	assert.Equal(t, SourceReal, res.Source)

	for i := range table.Rows {
		table.Rows[i].HasRealData = false
	}
	res = DetectFlip(table, 145, 0.06)
	assert.Equal(t, SourceMixed, res.Source)
	require.NotNil(t, res.Strike)
}

func TestFlipLiesBetweenCrossingStrikes(t *testing.T) {
	cases := [][]float64{
		{-5000, -3000, -500, 2000, 4000},
		{4000, -3000, 500, -2000, 4000},
		{-100, 0, 900, -1500, 300},
	}
	for _, unc := range cases {
		table := gexTable(flipStrikes, unc)
		for _, spot := range []float64{141, 144, 146, 149} {
			res := DetectFlip(table, spot, 0.06)
			if res.Strike == nil {
				continue
			}
			f := *res.Strike
			found := false
			for i := 0; i+1 < len(table.Rows); i++ {
				a, b := table.Rows[i], table.Rows[i+1]
				if sign(a.TotalUncovered) != sign(b.TotalUncovered) && a.Strike <= f && f <= b.Strike {
					found = true
				}
			}
			assert.True(t, found, "flip %v for %v at spot %v", f, unc, spot)

			regime := SnapshotRegime(spot, res.Strike, 0)
			assert.Equal(t, spot > f, regime == models.LongGamma)
		}
	}
}

func TestDetectWalls(t *testing.T) {
	table := models.ExposureTable{Greek: models.Gamma}
	calls := []int64{0, 0, 5000, 1000, 200}
	puts := []int64{300, 2000, 0, 0, 0}
	for i, s := range []float64{100, 105, 110, 115, 120} {
		table.Rows = append(table.Rows, models.StrikeExposure{
			Strike:          s,
			CallOIUncovered: calls[i],
			PutOIUncovered:  puts[i],
		})
	}

	w := DetectWalls(table, 108)

	require.NotNil(t, w.Support)
	require.NotNil(t, w.Resistance)
	assert.Equal(t, 110.0, w.Support.Strike)
	assert.Equal(t, int64(5000), w.Support.OI)
	assert.True(t, w.Support.Primary)
	assert.Equal(t, 105.0, w.Resistance.Strike)
	assert.Len(t, w.Secondary, 3)
	assert.Equal(t, 115.0, w.Secondary[0].Strike)
	assert.Equal(t, 120.0, w.Secondary[1].Strike)
	assert.Equal(t, 100.0, w.Secondary[2].Strike)
	assert.Len(t, w.All(), 5)
}

func TestDetectWallsEmpty(t *testing.T) {
	w := DetectWalls(models.ExposureTable{}, 100)
	assert.Nil(t, w.Support)
	assert.Nil(t, w.Resistance)
	assert.Empty(t, w.Secondary)
}

func option(strike float64, typ models.OptionType, gamma float64) models.OptionRow {
	return models.OptionRow{
		Symbol:         "PETR4",
		Time:           time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Strike:         strike,
		Type:           typ,
		Gamma:          gamma,
		Delta:          0.5,
		Vega:           0.2,
		Theta:          -0.05,
		IV:             35,
		DaysToMaturity: 7,
		Premium:        1.2,
		Volume:         40,
	}
}

func chainFixture() ([]models.OptionRow, models.OIBreakdown) {
	rows := []models.OptionRow{
		option(36, models.Call, 0.10),
		option(36, models.Call, 0.20),
		option(36, models.Put, 0.08),
		option(38, models.Call, 0.12),
		option(38, models.Put, 0.09),
		option(40, models.Put, 0.05),
	}
	oi := models.OIBreakdown{}
	oi.Add(36, models.Call, models.OIEntry{Total: 1000, Uncovered: 400})
	oi.Add(36, models.Put, models.OIEntry{Total: 800, Uncovered: 300})
	oi.Add(38, models.Call, models.OIEntry{Total: 500, Uncovered: 100})
	return rows, oi
}

func TestCalculateGEX(t *testing.T) {
	rows, oi := chainFixture()

	table := Calculate(rows, oi, 37, models.Gamma)

	// 40 has no positions at all and is dropped for gamma
	require.Len(t, table.Rows, 2)
	r := table.Rows[0]
	assert.Equal(t, 36.0, r.Strike)
	assert.InDelta(t, 0.15, r.CallAvgGreek, 1e-12)
	assert.InDelta(t, 0.15*1000*37*100, r.Call, 1e-6)
	assert.InDelta(t, -0.08*800*37*100, r.Put, 1e-6)
	assert.InDelta(t, 0.15*400*37*100-0.08*300*37*100, r.TotalUncovered, 1e-6)
	assert.True(t, r.HasRealData)

	// put side without positions contributes nothing for gamma
	assert.Equal(t, 38.0, table.Rows[1].Strike)
	assert.Zero(t, table.Rows[1].Put)
	assert.Zero(t, table.Rows[1].PutOITotal)
}

func TestCalculateSignInvariance(t *testing.T) {
	rows, oi := chainFixture()
	table := Calculate(rows, oi, 37, models.Gamma)
	for _, r := range table.Rows {
		assert.Equal(t, r.Call >= 0, r.CallAvgGreek >= 0 && r.CallOITotal >= 0)
		if r.PutOITotal > 0 {
			assert.LessOrEqual(t, r.Put, 0.0)
		}
	}
}

func TestCalculateSpotScaling(t *testing.T) {
	rows, oi := chainFixture()
	const k = 1.05

	base := Calculate(rows, oi, 37, models.Gamma)
	scaled := Calculate(rows, oi, 37*k, models.Gamma)
	require.Equal(t, len(base.Rows), len(scaled.Rows))
	for i := range base.Rows {
		assert.InDelta(t, base.Rows[i].Total*k, scaled.Rows[i].Total, 1e-6)
		assert.InDelta(t, base.Rows[i].TotalUncovered*k, scaled.Rows[i].TotalUncovered, 1e-6)
	}

	for _, g := range []models.Greek{models.Delta, models.Vega, models.Theta} {
		a := Calculate(rows, oi, 37, g)
		b := Calculate(rows, oi, 37*k, g)
		require.Equal(t, len(a.Rows), len(b.Rows))
		for i := range a.Rows {
			assert.InDelta(t, a.Rows[i].Total, b.Rows[i].Total, 1e-9)
		}
	}
}

func TestCalculateSynthesizesNonGamma(t *testing.T) {
	rows, oi := chainFixture()

	table := Calculate(rows, oi, 37, models.Vega)

	require.Len(t, table.Rows, 3)
	last := table.Rows[2]
	assert.Equal(t, 40.0, last.Strike)
	assert.False(t, last.HasRealData)
	assert.Equal(t, int64(40*100*1.5), last.PutOITotal)
	assert.Equal(t, int64(1800), last.PutOIUncovered)
	assert.InDelta(t, 0.2*6000*100, last.Put, 1e-6)

	// a strike with one real side keeps has_real_data
	assert.True(t, table.Rows[1].HasRealData)
	assert.Equal(t, int64(6000), table.Rows[1].PutOITotal)
}

func TestCalculateBand(t *testing.T) {
	rows, oi := chainFixture()
	rows = append(rows, option(60, models.Call, 0.01))
	oi.Add(60, models.Call, models.OIEntry{Total: 10, Uncovered: 10})

	for _, g := range models.AllGreeks {
		table := Calculate(rows, oi, 37, g)
		for _, r := range table.Rows {
			assert.LessOrEqual(t, r.Strike, 37*(1+Band(g)))
		}
	}
	assert.Empty(t, Calculate(rows, oi, 0, models.Gamma).Rows)
}

func TestSanitizeRows(t *testing.T) {
	good := option(36, models.Call, 0.1)
	noGamma := good
	noGamma.Gamma = 0
	far := good
	far.DaysToMaturity = 61
	expired := good
	expired.DaysToMaturity = 0
	free := good
	free.Premium = 0

	out := SanitizeRows([]models.OptionRow{good, noGamma, far, expired, free})
	assert.Equal(t, []models.OptionRow{good}, out)
}

func TestLatestAndOnDay(t *testing.T) {
	a := option(36, models.Call, 0.1)
	b := a
	b.Time = a.Time.AddDate(0, 0, 1).Add(15 * time.Hour)

	rows := []models.OptionRow{a, b}
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), LatestDay(rows))
	assert.Equal(t, []models.OptionRow{b}, Latest(rows))
	assert.Equal(t, []models.OptionRow{a}, OnDay(rows, a.Time))
	assert.Nil(t, Latest(nil))
}

func TestClassifyLiquidity(t *testing.T) {
	assert.Equal(t, Liquidity{Tier: HighLiquidity, WindowPct: 6}, Classify("PETR4"))
	assert.Equal(t, Liquidity{Tier: MediumLiquidity, WindowPct: 9}, Classify("wege3.SA"))
	l := Classify("ZZZZ3")
	assert.Equal(t, LowLiquidity, l.Tier)
	assert.InDelta(t, 0.13, l.Fraction(), 1e-12)
}
