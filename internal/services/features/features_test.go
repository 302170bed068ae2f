package features

import (
	"math"
	"testing"
	"time"

	"GammaDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(closes ...float64) []models.Bar {
	out := make([]models.Bar, len(closes))
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1000}
	}
	return out
}

func TestComputeLogReturns(t *testing.T) {
	r := ComputeLogReturns(bars(100, 110, 99))
	require.Len(t, r, 3)
	assert.True(t, math.IsNaN(r[0]))
	assert.InDelta(t, math.Log(1.1), r[1], 1e-12)
	assert.InDelta(t, math.Log(0.9), r[2], 1e-12)
}

func TestCleanBarsDropsNonPositive(t *testing.T) {
	in := bars(100, 0, -1, 101)
	assert.Len(t, CleanBars(in), 2)
}

func TestRealizedVolatilityIsRootSumOfSquares(t *testing.T) {
	r := []float64{math.NaN(), 0.01, -0.02, 0.02, 0.01}
	rv := RealizedVolatility(r, 3)
	assert.True(t, math.IsNaN(rv[2]))
	assert.InDelta(t, math.Sqrt(0.0001+0.0004+0.0004), rv[3], 1e-12)
	assert.InDelta(t, math.Sqrt(0.0004+0.0004+0.0001), rv[4], 1e-12)
}

func TestRollingStd(t *testing.T) {
	xs := []float64{math.NaN(), 1, 2, 3, 4}
	s := RollingStd(xs, 3, 3)
	assert.True(t, math.IsNaN(s[2]))
	assert.InDelta(t, 1, s[3], 1e-12)
	assert.InDelta(t, 1, s[4], 1e-12)

	loose := RollingStd(xs, 3, 1)
	assert.True(t, math.IsNaN(loose[1]))
	assert.InDelta(t, math.Sqrt(0.5), loose[2], 1e-12)
}

func TestRollingPercentileAndShift(t *testing.T) {
	p := RollingPercentile([]float64{3, 1, 2, 5}, 3)
	assert.Equal(t, 1.0, p[0])
	assert.Equal(t, 0.5, p[1])
	assert.InDelta(t, 2.0/3, p[2], 1e-12)
	assert.Equal(t, 1.0, p[3])

	sh := Shift([]float64{1, 2, 3}, 2)
	assert.True(t, math.IsNaN(sh[1]))
	assert.Equal(t, 1.0, sh[2])
}

func TestBuildFrame(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%7) - 3
	}
	b := bars(closes...)
	b[10].Volume = 0
	r := ComputeLogReturns(b)
	garch := RollingStd(r, 20, 1)

	f := Build(b, r, garch)

	require.Equal(t, 40, f.Len())
	require.Len(t, f.Rows[0], len(Columns))
	assert.Len(t, f.Realized, len(RealizedWindows))
	assert.False(t, f.Complete(0))
	assert.True(t, f.Complete(39))
	assert.Equal(t, 1.0, f.Rows[10][12], "missing volume maps to a neutral ratio")
	assert.InDelta(t, 0.02, f.Rows[39][10], 1e-9)

	idx := f.CompleteRows()
	require.NotEmpty(t, idx)
	for _, i := range idx {
		for _, x := range f.Rows[i] {
			assert.False(t, math.IsNaN(x))
		}
	}
}
