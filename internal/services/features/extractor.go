package features

import (
	"math"
	"sort"

	"GammaDesk/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// CleanBars drops bars whose close is not a positive finite number.
func CleanBars(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 && !math.IsInf(b.Close, 0) {
			out = append(out, b)
		}
	}
	return out
}

// ComputeLogReturns computes r_t = ln(C_t / C_{t-1}) aligned with bars.
// r_0 is NaN, as is any return touching a non-positive close.
func ComputeLogReturns(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		prev, cur := bars[i-1].Close, bars[i].Close
		if prev <= 0 || cur <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(cur / prev)
	}
	return out
}

// RealizedVolatility is sqrt(sum r^2) over a trailing window. Rows without a
// full window of returns are NaN.
func RealizedVolatility(returns []float64, window int) []float64 {
	out := make([]float64, len(returns))
	for i := range returns {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		var sum2 float64
		n := 0
		for _, r := range returns[i+1-window : i+1] {
			if math.IsNaN(r) {
				continue
			}
			sum2 += r * r
			n++
		}
		if n == window {
			out[i] = math.Sqrt(sum2)
		}
	}
	return out
}

// RollingStd is the sample standard deviation over a trailing window, skipping NaN.
// At least max(minPeriods, 2) observations are required.
func RollingStd(xs []float64, window, minPeriods int) []float64 {
	if minPeriods < 2 {
		minPeriods = 2
	}
	return rolling(xs, window, minPeriods, func(w []float64) float64 { return stat.StdDev(w, nil) })
}

// RollingMean is the mean over a trailing window, skipping NaN.
func RollingMean(xs []float64, window, minPeriods int) []float64 {
	if minPeriods < 1 {
		minPeriods = 1
	}
	return rolling(xs, window, minPeriods, func(w []float64) float64 { return stat.Mean(w, nil) })
}

// RollingPercentile is the share of the trailing window at or below the current value.
func RollingPercentile(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = math.NaN()
		if math.IsNaN(xs[i]) {
			continue
		}
		w := valid(xs[max(0, i+1-window) : i+1])
		sort.Float64s(w)
		out[i] = float64(sort.Search(len(w), func(j int) bool { return w[j] > xs[i] })) / float64(len(w))
	}
	return out
}

// Shift lags xs by k rows, filling the head with NaN.
func Shift(xs []float64, k int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		if i < k {
			out[i] = math.NaN()
			continue
		}
		out[i] = xs[i-k]
	}
	return out
}

func rolling(xs []float64, window, minPeriods int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		w := valid(xs[max(0, i+1-window) : i+1])
		if len(w) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(w)
	}
	return out
}

func valid(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
