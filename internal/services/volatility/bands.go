package volatility

import (
	"time"
)

// BandMultipliers are the sigma levels emitted.
var BandMultipliers = []float64{2, 4}

// BandRow is one day of projection bands anchored on the previous month.
type BandRow struct {
	Date      time.Time `json:"date"`
	Close     float64   `json:"close"`
	GarchVol  float64   `json:"garch_vol"`
	XGBVol    float64   `json:"xgb_vol"`
	HybridVol float64   `json:"hybrid_vol"`
	WGarch    float64   `json:"w_garch"`
	RefPrice  float64   `json:"ref_price"`
	RefVol    float64   `json:"ref_vol"`
	Upper2    float64   `json:"upper_2sigma"`
	Lower2    float64   `json:"lower_2sigma"`
	Upper4    float64   `json:"upper_4sigma"`
	Lower4    float64   `json:"lower_4sigma"`
	Center    float64   `json:"center"`
}

// Reference is a month's closing price and hybrid volatility.
type Reference struct {
	Month time.Time
	Price float64
	Vol   float64
}

// Band returns (1+k*vol)*price and (1-k*vol)*price.
func Band(price, vol, k float64) (upper, lower float64) {
	return (1 + k*vol) * price, (1 - k*vol) * price
}

// MonthlyReferences takes the last close and hybrid volatility of each calendar month.
func MonthlyReferences(dates []time.Time, closes, hybrid []float64) []Reference {
	var refs []Reference
	for i, d := range dates {
		m := monthOf(d)
		if len(refs) == 0 || !refs[len(refs)-1].Month.Equal(m) {
			refs = append(refs, Reference{Month: m})
		}
		refs[len(refs)-1].Price = closes[i]
		refs[len(refs)-1].Vol = hybrid[i]
	}
	return refs
}

// BuildBands anchors each day of month M on the reference pair of month M-1.
// Days whose previous calendar month is absent get no band.
func BuildBands(rows []BandRow) []BandRow {
	dates := make([]time.Time, len(rows))
	closes := make([]float64, len(rows))
	hybrid := make([]float64, len(rows))
	for i, r := range rows {
		dates[i], closes[i], hybrid[i] = r.Date, r.Close, r.HybridVol
	}
	byMonth := make(map[time.Time]Reference)
	for _, ref := range MonthlyReferences(dates, closes, hybrid) {
		byMonth[ref.Month] = ref
	}

	out := make([]BandRow, 0, len(rows))
	for _, r := range rows {
		ref, ok := byMonth[monthOf(r.Date).AddDate(0, -1, 0)]
		if !ok {
			continue
		}
		r.RefPrice, r.RefVol = ref.Price, ref.Vol
		r.Upper2, r.Lower2 = Band(ref.Price, ref.Vol, BandMultipliers[0])
		r.Upper4, r.Lower4 = Band(ref.Price, ref.Vol, BandMultipliers[1])
		r.Center = (r.Upper2 + r.Lower2) / 2
		out = append(out, r)
	}
	return out
}

// PositionCode classifies the latest close within its bands.
type PositionCode string

const (
	Overbought PositionCode = "OVERBOUGHT"
	Oversold   PositionCode = "OVERSOLD"
	UpperHalf  PositionCode = "UPPER_HALF"
	LowerHalf  PositionCode = "LOWER_HALF"
)

// Position is the classification of a bar against its bands.
type Position struct {
	Code        PositionCode `json:"code"`
	Description string       `json:"description"`
}

// Classify places the close relative to the ±2σ band and the center.
func Classify(r BandRow) Position {
	switch {
	case r.Close > r.Upper2:
		return Position{Code: Overbought, Description: "overbought"}
	case r.Close < r.Lower2:
		return Position{Code: Oversold, Description: "oversold"}
	case r.Close > r.Center:
		return Position{Code: UpperHalf, Description: "upper half, bullish"}
	default:
		return Position{Code: LowerHalf, Description: "lower half, bearish"}
	}
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
