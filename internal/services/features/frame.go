package features

import (
	"math"
	"time"

	"GammaDesk/internal/domain/models"
)

// RealizedWindows are the realized volatility horizons attached to every frame.
var RealizedWindows = []int{3, 5, 10, 20}

var stdWindows = []int{5, 10, 20, 60}

// Columns names the regressor inputs, in matrix order.
var Columns = []string{
	"garch_vol_lag1", "garch_vol_lag2", "garch_vol_lag5",
	"return_lag1", "return_lag2", "return_lag5",
	"ret_std_5", "ret_std_10", "ret_std_20", "ret_std_60",
	"daily_range", "momentum_5", "volume_ratio",
	"trend_regime", "vol_regime", "garch_vol_pct_252",
	"realized_vol_5", "realized_vol_20",
}

// Frame is the per-day feature matrix aligned with the input bars.
type Frame struct {
	Dates    []time.Time
	Close    []float64
	Returns  []float64
	GarchVol []float64
	Realized map[int][]float64
	Rows     [][]float64
}

// Len is the number of days in the frame.
func (f Frame) Len() int { return len(f.Dates) }

// Complete reports whether row i has a finite target and finite features.
func (f Frame) Complete(i int) bool {
	if !finite(f.GarchVol[i]) {
		return false
	}
	for _, x := range f.Rows[i] {
		if !finite(x) {
			return false
		}
	}
	return true
}

// CompleteRows lists the indexes of complete rows in chronological order.
func (f Frame) CompleteRows() []int {
	var idx []int
	for i := range f.Rows {
		if f.Complete(i) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Build derives the feature frame from bars, their log returns and the GARCH volatility.
// All three slices must be aligned.
func Build(bars []models.Bar, returns, garchVol []float64) Frame {
	n := len(bars)
	f := Frame{
		Dates:    make([]time.Time, n),
		Close:    make([]float64, n),
		Returns:  returns,
		GarchVol: garchVol,
		Realized: make(map[int][]float64, len(RealizedWindows)),
		Rows:     make([][]float64, n),
	}
	volume := make([]float64, n)
	for i, b := range bars {
		f.Dates[i] = b.Date
		f.Close[i] = b.Close
		volume[i] = b.Volume
	}
	for _, w := range RealizedWindows {
		f.Realized[w] = RealizedVolatility(returns, w)
	}

	cols := [][]float64{
		Shift(garchVol, 1), Shift(garchVol, 2), Shift(garchVol, 5),
		Shift(returns, 1), Shift(returns, 2), Shift(returns, 5),
	}
	for _, w := range stdWindows {
		cols = append(cols, RollingStd(returns, w, 1))
	}

	dailyRange := make([]float64, n)
	momentum := make([]float64, n)
	for i, b := range bars {
		dailyRange[i] = (b.High - b.Low) / b.Close
		momentum[i] = math.NaN()
		if i >= 5 {
			momentum[i] = b.Close/bars[i-5].Close - 1
		}
	}
	cols = append(cols, dailyRange, momentum, volumeRatio(volume))

	sma50 := RollingMean(f.Close, 50, 1)
	sma200 := RollingMean(f.Close, 200, 1)
	garchMean60 := RollingMean(garchVol, 60, 1)
	trend := make([]float64, n)
	regime := make([]float64, n)
	for i := range trend {
		if sma50[i] > sma200[i] {
			trend[i] = 1
		}
		switch {
		case math.IsNaN(garchVol[i]):
			regime[i] = math.NaN()
		case garchVol[i] > garchMean60[i]:
			regime[i] = 1
		}
	}
	cols = append(cols, trend, regime, RollingPercentile(garchVol, 252), f.Realized[5], f.Realized[20])

	for i := 0; i < n; i++ {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c[i]
		}
		f.Rows[i] = row
	}
	return f
}

// volumeRatio is volume over its 20-day mean, 1 where volume is missing.
func volumeRatio(volume []float64) []float64 {
	clean := make([]float64, len(volume))
	for i, v := range volume {
		clean[i] = math.NaN()
		if v > 0 {
			clean[i] = v
		}
	}
	avg := RollingMean(clean, 20, 1)
	out := make([]float64, len(volume))
	for i := range out {
		out[i] = 1
		if !math.IsNaN(clean[i]) && avg[i] > 0 {
			out[i] = clean[i] / avg[i]
		}
	}
	return out
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
