package volatility

import (
	"math"

	"GammaDesk/internal/services/features"
)

const (
	minGarchWeight   = 0.3
	maxGarchWeight   = 0.7
	adaptiveWindow   = 30
	adaptiveBaseline = 252
	// VolFloor is the last-resort hybrid volatility.
	VolFloor = 0.02
)

// Blend is the hybrid volatility series with its GARCH weights.
type Blend struct {
	WGarch []float64
	WXGB   []float64
	Hybrid []float64
}

// HybridWeights blends GARCH and regressor volatility. The GARCH weight grows with
// the normalized 30-day instability of the GARCH series and is clipped to [0.3, 0.7].
func HybridWeights(garchVol, xgbVol []float64) Blend {
	n := len(garchVol)
	adaptive := features.RollingStd(garchVol, adaptiveWindow, 1)
	baseline := features.RollingMean(adaptive, adaptiveBaseline, 1)

	b := Blend{WGarch: make([]float64, n), WXGB: make([]float64, n), Hybrid: make([]float64, n)}
	prev := math.NaN()
	for i := 0; i < n; i++ {
		norm := adaptive[i] / baseline[i]
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			norm = 1
		}
		w := math.Min(maxGarchWeight, math.Max(minGarchWeight, 0.3+0.4*norm))
		b.WGarch[i], b.WXGB[i] = w, 1-w

		h := w*garchVol[i] + (1-w)*xgbVol[i]
		if math.IsNaN(h) {
			h = garchVol[i]
		}
		if math.IsNaN(h) {
			h = prev
		}
		if math.IsNaN(h) {
			h = VolFloor
		}
		b.Hybrid[i] = h
		prev = h
	}
	return b
}
