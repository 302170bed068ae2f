package exposure

import (
	"math"
	"sort"
	"time"

	"GammaDesk/internal/domain/models"
	xutil "GammaDesk/pkg/util"
)

// IVStatus rates a strike's current IV against its recent mean.
type IVStatus string

const (
	IVVeryHigh IVStatus = "MUITO_ALTA"
	IVHigh     IVStatus = "ALTA"
	IVNormal   IVStatus = "NORMAL"
	IVLow      IVStatus = "BAIXA"
	IVVeryLow  IVStatus = "MUITO_BAIXA"
)

// Trend is the direction of ATM IV against its mean.
type Trend string

const (
	TrendUp     Trend = "ALTA"
	TrendDown   Trend = "BAIXA"
	TrendStable Trend = "ESTAVEL"
)

// Level is a three-step intensity used by the regime analyzers.
type Level string

const (
	LevelHigh     Level = "HIGH"
	LevelModerate Level = "MODERATE"
	LevelLow      Level = "LOW"
)

// Directional bias of the delta book.
const (
	BiasBullish = "BULLISH"
	BiasBearish = "BEARISH"
	BiasNeutral = "NEUTRAL"
)

// Time-decay market bias.
const (
	SellerFavorable           = "SELLER_FAVORABLE"
	ModeratelySellerFavorable = "MODERATELY_SELLER_FAVORABLE"
	DecayNeutral              = "NEUTRAL"
)

const (
	trendThresholdPP  = 2.0
	highRiskPP        = 10.0
	moderateRiskPP    = 5.0
	urgentDays        = 15.0
	moderateDays      = 30.0
	strongDecayTEX    = -30000.0
	moderateDecayTEX  = -10000.0
	directionalCutoff = 1000.0
)

// IVHistory holds daily mean IV per strike (in cents), oldest day first.
type IVHistory map[int64][]float64

// BuildIVHistory averages IV per strike and day over the last days distinct days of rows.
func BuildIVHistory(rows []models.OptionRow, days int) IVHistory {
	perDay := make(map[time.Time]map[int64][]float64)
	for _, r := range rows {
		if !(r.IV > 0) {
			continue
		}
		d := xutil.Day(r.Time)
		m, ok := perDay[d]
		if !ok {
			m = make(map[int64][]float64)
			perDay[d] = m
		}
		k := models.NewStrikeKey(r.Strike, r.Type).Cents
		m[k] = append(m[k], r.IV)
	}
	order := make([]time.Time, 0, len(perDay))
	for d := range perDay {
		order = append(order, d)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	if days > 0 && len(order) > days {
		order = order[len(order)-days:]
	}
	h := make(IVHistory)
	for _, d := range order {
		for k, ivs := range perDay[d] {
			h[k] = append(h[k], mean(ivs))
		}
	}
	return h
}

// StrikeIV is the IV picture of one strike.
type StrikeIV struct {
	Strike float64  `json:"strike"`
	IV     float64  `json:"iv"`
	Mean   float64  `json:"iv_mean"`
	Min    float64  `json:"iv_min"`
	Max    float64  `json:"iv_max"`
	Status IVStatus `json:"status"`
}

// VolatilityRegime summarizes IV and vega exposure.
type VolatilityRegime struct {
	ATMStrike       *float64   `json:"atm_strike"`
	ATMIV           *float64   `json:"atm_iv"`
	ATMIVMean       *float64   `json:"atm_iv_mean"`
	IVDiffPP        float64    `json:"iv_diff_pp"`
	WeightedIV      *float64   `json:"weighted_iv"`
	Trend           Trend      `json:"iv_trend"`
	Risk            Level      `json:"risk_level"`
	NetVEX          float64    `json:"net_vex"`
	NetVEXUncovered float64    `json:"net_vex_uncovered"`
	MaxVegaStrike   *float64   `json:"max_vega_strike"`
	Strikes         []StrikeIV `json:"strikes"`
}

// AnalyzeVolatility reads the vega table and IV history.
func AnalyzeVolatility(t models.ExposureTable, spot float64, hist IVHistory) VolatilityRegime {
	v := VolatilityRegime{
		Trend:           TrendStable,
		Risk:            LevelLow,
		NetVEX:          t.NetTotal(),
		NetVEXUncovered: t.NetUncovered(),
	}
	var wSum, wivSum, ivSum float64
	var ivN int
	var maxAbs float64
	for _, r := range t.Rows {
		if a := math.Abs(r.Total); a > maxAbs {
			maxAbs = a
			s := r.Strike
			v.MaxVegaStrike = &s
		}
		if !(r.IV > 0) {
			continue
		}
		w := float64(r.TotalOI())
		wSum += w
		wivSum += r.IV * w
		ivSum += r.IV
		ivN++

		siv := StrikeIV{Strike: r.Strike, IV: r.IV, Mean: r.IV, Min: r.IV, Max: r.IV}
		if past := hist.forStrike(r.Strike); len(past) > 0 {
			siv.Mean = mean(past)
			siv.Min, siv.Max = minMax(past)
		}
		siv.Status = ivStatus(r.IV, siv.Mean)
		v.Strikes = append(v.Strikes, siv)
	}
	switch {
	case wSum > 0:
		v.WeightedIV = xutil.Nullable(wivSum / wSum)
	case ivN > 0:
		v.WeightedIV = xutil.Nullable(ivSum / float64(ivN))
	}

	var atm *StrikeIV
	best := math.Inf(1)
	for i := range v.Strikes {
		if d := math.Abs(v.Strikes[i].Strike - spot); d < best {
			best, atm = d, &v.Strikes[i]
		}
	}
	if atm == nil {
		return v
	}
	strike, iv, m := atm.Strike, atm.IV, atm.Mean
	v.ATMStrike, v.ATMIV, v.ATMIVMean = &strike, &iv, &m
	v.IVDiffPP = iv - m
	switch {
	case v.IVDiffPP > trendThresholdPP:
		v.Trend = TrendUp
	case v.IVDiffPP < -trendThresholdPP:
		v.Trend = TrendDown
	}
	switch d := math.Abs(v.IVDiffPP); {
	case d > highRiskPP:
		v.Risk = LevelHigh
	case d > moderateRiskPP:
		v.Risk = LevelModerate
	}
	return v
}

func (h IVHistory) forStrike(strike float64) []float64 {
	var out []float64
	for _, t := range []models.OptionType{models.Call, models.Put} {
		out = append(out, h[models.NewStrikeKey(strike, t).Cents]...)
	}
	return out
}

func ivStatus(current, avg float64) IVStatus {
	if !(avg > 0) {
		return IVNormal
	}
	switch r := current / avg; {
	case r >= 1.3:
		return IVVeryHigh
	case r >= 1.1:
		return IVHigh
	case r >= 0.9:
		return IVNormal
	case r >= 0.7:
		return IVLow
	default:
		return IVVeryLow
	}
}

// StrikeBleed is the theta bleed per remaining day at one strike.
type StrikeBleed struct {
	Strike float64 `json:"strike"`
	Bleed  float64 `json:"bleed"`
}

// TimeDecayRegime summarizes theta exposure.
type TimeDecayRegime struct {
	WeightedDays      float64       `json:"weighted_days"`
	Pressure          Level         `json:"time_pressure"`
	TotalTEX          float64       `json:"total_tex"`
	TotalTEXUncovered float64       `json:"total_tex_uncovered"`
	MarketBias        string        `json:"market_bias"`
	DailyBleed        float64       `json:"daily_bleed"`
	MaxBleedStrike    *float64      `json:"max_bleed_strike"`
	Strikes           []StrikeBleed `json:"strikes"`
}

// AnalyzeTimeDecay reads the theta table.
func AnalyzeTimeDecay(t models.ExposureTable) TimeDecayRegime {
	d := TimeDecayRegime{
		TotalTEX:          t.NetTotal(),
		TotalTEXUncovered: t.NetUncovered(),
		DailyBleed:        t.NetUncovered(),
		MarketBias:        DecayNeutral,
	}
	var wSum, dSum, daySum float64
	var maxBleed float64
	for _, r := range t.Rows {
		w := float64(r.TotalOI())
		wSum += w
		dSum += r.Days * w
		daySum += r.Days

		b := math.Abs(r.TotalUncovered) / math.Max(r.Days, 1)
		d.Strikes = append(d.Strikes, StrikeBleed{Strike: r.Strike, Bleed: b})
		if b > maxBleed {
			maxBleed = b
			s := r.Strike
			d.MaxBleedStrike = &s
		}
	}
	switch {
	case wSum > 0:
		d.WeightedDays = dSum / wSum
	case len(t.Rows) > 0:
		d.WeightedDays = daySum / float64(len(t.Rows))
	}
	switch {
	case d.WeightedDays < urgentDays:
		d.Pressure = LevelHigh
	case d.WeightedDays < moderateDays:
		d.Pressure = LevelModerate
	default:
		d.Pressure = LevelLow
	}
	switch {
	case d.TotalTEX < strongDecayTEX:
		d.MarketBias = SellerFavorable
	case d.TotalTEX < moderateDecayTEX:
		d.MarketBias = ModeratelySellerFavorable
	}
	return d
}

// DirectionalPressure summarizes delta exposure.
type DirectionalPressure struct {
	NetDEX            float64  `json:"net_dex"`
	NetDEXUncovered   float64  `json:"net_dex_uncovered"`
	BullishTarget     *float64 `json:"bullish_target"`
	BearishTarget     *float64 `json:"bearish_target"`
	Concentration     float64  `json:"concentration"`
	Bias              string   `json:"bias"`
	RemainingPressure float64  `json:"remaining_pressure"`
}

// AnalyzeDirectional reads the delta table.
func AnalyzeDirectional(t models.ExposureTable, spot float64) DirectionalPressure {
	p := DirectionalPressure{
		NetDEX:          t.NetTotal(),
		NetDEXUncovered: t.NetUncovered(),
		Bias:            BiasNeutral,
	}
	if len(t.Rows) == 0 {
		return p
	}
	var absSum float64
	maxI, minI := 0, 0
	cum := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		absSum += math.Abs(r.Total)
		if r.Total > t.Rows[maxI].Total {
			maxI = i
		}
		if r.Total < t.Rows[minI].Total {
			minI = i
		}
		cum[i] = r.Total
		if i > 0 {
			cum[i] += cum[i-1]
		}
	}
	bull, bear := t.Rows[maxI].Strike, t.Rows[minI].Strike
	p.BullishTarget, p.BearishTarget = &bull, &bear
	p.Concentration = xutil.SafeDiv(math.Abs(p.NetDEX), absSum, 0)
	switch {
	case p.NetDEX > directionalCutoff:
		p.Bias = BiasBullish
	case p.NetDEX < -directionalCutoff:
		p.Bias = BiasBearish
	}
	peak := cum[0]
	for _, c := range cum {
		peak = math.Max(peak, c)
	}
	if i := t.Nearest(spot); i >= 0 {
		p.RemainingPressure = peak - cum[i]
	}
	return p
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
