package models

import (
	"math"
	"time"
)

// StrikeExposure is one strike of an exposure table. The greek is carried by
// the owning ExposureTable; Call/Put/Total hold gex, dex, vex or tex.
type StrikeExposure struct {
	Strike          float64 `json:"strike"`
	Call            float64 `json:"call"`
	Put             float64 `json:"put"`
	Total           float64 `json:"total"`
	CallUncovered   float64 `json:"call_uncovered"`
	PutUncovered    float64 `json:"put_uncovered"`
	TotalUncovered  float64 `json:"total_uncovered"`
	CallOITotal     int64   `json:"call_oi_total"`
	PutOITotal      int64   `json:"put_oi_total"`
	CallOIUncovered int64   `json:"call_oi_uncovered"`
	PutOIUncovered  int64   `json:"put_oi_uncovered"`
	CallAvgGreek    float64 `json:"call_avg_greek"`
	PutAvgGreek     float64 `json:"put_avg_greek"`
	IV              float64 `json:"iv"`
	Days            float64 `json:"days"`
	HasRealData     bool    `json:"has_real_data"`
}

// TotalOI is call plus put total open interest.
func (s StrikeExposure) TotalOI() int64 { return s.CallOITotal + s.PutOITotal }

// ExposureTable is a strike-sorted exposure table for one greek.
type ExposureTable struct {
	Greek Greek            `json:"greek"`
	Spot  float64          `json:"spot"`
	Band  float64          `json:"band"`
	Rows  []StrikeExposure `json:"rows"`
}

// NetTotal sums Total across strikes.
func (t ExposureTable) NetTotal() float64 {
	var s float64
	for _, r := range t.Rows {
		s += r.Total
	}
	return s
}

// NetUncovered sums TotalUncovered across strikes.
func (t ExposureTable) NetUncovered() float64 {
	var s float64
	for _, r := range t.Rows {
		s += r.TotalUncovered
	}
	return s
}

// Nearest returns the index of the strike closest to price, or -1 for an empty table.
// Ties resolve to the lower strike.
func (t ExposureTable) Nearest(price float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, r := range t.Rows {
		d := math.Abs(r.Strike - price)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// RealStrikes counts strikes backed by positions data.
func (t ExposureTable) RealStrikes() int {
	n := 0
	for _, r := range t.Rows {
		if r.HasRealData {
			n++
		}
	}
	return n
}

// GammaRegime classifies dealer gamma positioning.
type GammaRegime string

const (
	LongGamma  GammaRegime = "LONG_GAMMA"
	ShortGamma GammaRegime = "SHORT_GAMMA"
	Neutral    GammaRegime = "NEUTRAL"
)

// WallKind labels a wall.
type WallKind string

const (
	Support    WallKind = "SUPPORT"
	Resistance WallKind = "RESISTANCE"
)

// Wall is a strike of concentrated uncovered open interest.
type Wall struct {
	Kind        WallKind `json:"kind"`
	Strike      float64  `json:"strike"`
	OI          int64    `json:"oi"`
	DistancePct float64  `json:"distance_pct"`
	Primary     bool     `json:"primary"`
}

// Walls groups the primary support/resistance and secondary walls.
type Walls struct {
	Support    *Wall  `json:"support"`
	Resistance *Wall  `json:"resistance"`
	Secondary  []Wall `json:"secondary"`
}

// All returns primary walls followed by secondary ones.
func (w Walls) All() []Wall {
	out := make([]Wall, 0, 2+len(w.Secondary))
	if w.Support != nil {
		out = append(out, *w.Support)
	}
	if w.Resistance != nil {
		out = append(out, *w.Resistance)
	}
	return append(out, w.Secondary...)
}

// RegimeSnapshot is the gamma picture of one (symbol, expiration, day).
type RegimeSnapshot struct {
	Date            time.Time        `json:"date"`
	Spot            float64          `json:"spot"`
	Expiration      string           `json:"expiration"`
	Rows            []StrikeExposure `json:"strike_exposures"`
	FlipStrike      *float64         `json:"flip_strike"`
	FlipDistancePct *float64         `json:"flip_distance_pct"`
	FlipConsistent  bool             `json:"flip_consistent"`
	Walls           Walls            `json:"walls"`
	NetGEX          float64          `json:"net_gex"`
	NetGEXUncovered float64          `json:"net_gex_uncovered"`
	Regime          GammaRegime      `json:"regime"`
	Liquidity       string           `json:"liquidity_category"`
	WindowPct       float64          `json:"window_pct"`
}
