package exposure

import (
	"math"

	"GammaDesk/internal/domain/models"
)

// RegimeThreshold is the |uncovered GEX| below which the strike nearest spot reads NEUTRAL.
const RegimeThreshold = 1000.0

// FlipPosition places a candidate relative to spot.
type FlipPosition string

const (
	Above FlipPosition = "ABOVE"
	Below FlipPosition = "BELOW"
)

// FlipSource tells which rows produced the candidates.
type FlipSource string

const (
	SourceReal  FlipSource = "REAL"
	SourceMixed FlipSource = "MIXED"
)

// FlipCandidate is a sign change of uncovered GEX between two adjacent strikes.
type FlipCandidate struct {
	Strike     float64      `json:"strike"`
	Lower      float64      `json:"lower"`
	Upper      float64      `json:"upper"`
	Distance   float64      `json:"distance"`
	Confidence float64      `json:"confidence"`
	Position   FlipPosition `json:"position"`
}

// FlipResult is the outcome of a flip search. Strike is nil when nothing qualified.
// Consistent is true by construction for LONG_GAMMA and SHORT_GAMMA, since the regime
// filter only keeps candidates on the matching side of spot. For a NEUTRAL reading it
// reports whether the flip side agrees with the sign of the sub-threshold GEX at spot.
type FlipResult struct {
	Strike       *float64           `json:"strike"`
	RegimeAtSpot models.GammaRegime `json:"regime_at_spot"`
	Source       FlipSource         `json:"source,omitempty"`
	WindowPct    float64            `json:"window_pct"`
	Candidates   []FlipCandidate    `json:"candidates"`
	Kept         []FlipCandidate    `json:"kept"`
	Consistent   bool               `json:"consistent"`
}

// RegimeAt classifies the uncovered GEX of the strike nearest to spot.
func RegimeAt(t models.ExposureTable, spot float64) models.GammaRegime {
	i := t.Nearest(spot)
	if i < 0 {
		return models.Neutral
	}
	return classify(t.Rows[i].TotalUncovered)
}

func classify(v float64) models.GammaRegime {
	switch {
	case v < -RegimeThreshold:
		return models.ShortGamma
	case v > RegimeThreshold:
		return models.LongGamma
	default:
		return models.Neutral
	}
}

// DetectFlip searches the gamma table for the strike where uncovered GEX changes sign,
// restricted to [spot*(1-w), spot*(1+w)].
//
// Candidates come from strikes backed by positions data; all strikes are used only
// when those yield none. In a SHORT_GAMMA regime the flip must sit at or above spot,
// in LONG_GAMMA strictly below. The nearest surviving candidate wins.
func DetectFlip(t models.ExposureTable, spot, window float64) FlipResult {
	res := FlipResult{
		RegimeAtSpot: RegimeAt(t, spot),
		WindowPct:    window * 100,
		Consistent:   true,
	}
	lo, hi := spot*(1-window), spot*(1+window)
	var inWindow []models.StrikeExposure
	for _, r := range t.Rows {
		if r.Strike >= lo && r.Strike <= hi {
			inWindow = append(inWindow, r)
		}
	}
	if len(inWindow) < 2 {
		return res
	}

	var realRows []models.StrikeExposure
	for _, r := range inWindow {
		if r.HasRealData {
			realRows = append(realRows, r)
		}
	}
	res.Candidates, res.Source = candidates(realRows, spot), SourceReal
	if len(res.Candidates) == 0 {
		res.Candidates, res.Source = candidates(inWindow, spot), SourceMixed
	}
	if len(res.Candidates) == 0 {
		res.Source = ""
		return res
	}

	for _, c := range res.Candidates {
		switch res.RegimeAtSpot {
		case models.ShortGamma:
			if c.Position == Above {
				res.Kept = append(res.Kept, c)
			}
		case models.LongGamma:
			if c.Position == Below {
				res.Kept = append(res.Kept, c)
			}
		default:
			res.Kept = append(res.Kept, c)
		}
	}
	if len(res.Kept) == 0 {
		return res
	}

	best := res.Kept[0]
	for _, c := range res.Kept[1:] {
		if c.Distance < best.Distance {
			best = c
		}
	}
	strike := best.Strike
	res.Strike = &strike
	if res.RegimeAtSpot == models.Neutral {
		lean := t.Rows[t.Nearest(spot)].TotalUncovered
		res.Consistent = sign(lean) == 0 || (RegimeFromFlip(spot, strike) == models.LongGamma) == (lean > 0)
	}
	return res
}

// RegimeFromFlip reads the regime implied by spot sitting above or below the flip.
func RegimeFromFlip(spot, flip float64) models.GammaRegime {
	if spot > flip {
		return models.LongGamma
	}
	return models.ShortGamma
}

func candidates(rows []models.StrikeExposure, spot float64) []FlipCandidate {
	var out []FlipCandidate
	for i := 0; i+1 < len(rows); i++ {
		a, b := rows[i], rows[i+1]
		ga, gb := a.TotalUncovered, b.TotalUncovered
		if sign(ga) == sign(gb) {
			continue
		}
		conf := math.Abs(ga) + math.Abs(gb)
		strike := a.Strike + (b.Strike-a.Strike)*math.Abs(ga)/conf
		pos := Below
		if strike >= spot {
			pos = Above
		}
		out = append(out, FlipCandidate{
			Strike:     strike,
			Lower:      a.Strike,
			Upper:      b.Strike,
			Distance:   math.Abs(strike - spot),
			Confidence: conf,
			Position:   pos,
		})
	}
	return out
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
