package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OptionType is the option side.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// ParseOptionType maps the labels used by the feeds onto CALL/PUT.
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C", "COMPRA":
		return Call, true
	case "PUT", "P", "V", "VENDA":
		return Put, true
	default:
		return "", false
	}
}

// Greek selects the exposure dimension.
type Greek string

const (
	Gamma Greek = "gamma"
	Delta Greek = "delta"
	Vega  Greek = "vega"
	Theta Greek = "theta"
)

// AllGreeks lists the dimensions in macro order.
var AllGreeks = []Greek{Gamma, Delta, Vega, Theta}

// ParseGreek accepts the greek name or its exposure prefix (gex, dex, vex, tex).
func ParseGreek(s string) (Greek, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gamma", "gex":
		return Gamma, true
	case "delta", "dex":
		return Delta, true
	case "vega", "vex":
		return Vega, true
	case "theta", "tex":
		return Theta, true
	default:
		return "", false
	}
}

// Exposure returns the exposure short name ("gex", "dex", "vex", "tex").
func (g Greek) Exposure() string {
	switch g {
	case Gamma:
		return "gex"
	case Delta:
		return "dex"
	case Vega:
		return "vex"
	case Theta:
		return "tex"
	default:
		return string(g)
	}
}

// OptionRow is one option line of the greeks feed.
// IV is expressed in percentage points (35.0 means 35%).
type OptionRow struct {
	Symbol         string
	Time           time.Time
	Strike         float64
	Type           OptionType
	Gamma          float64
	Delta          float64
	Vega           float64
	Theta          float64
	IV             float64
	DaysToMaturity int
	Premium        float64
	Volume         float64
	DueDate        time.Time
}

// Greek returns the row's value for g.
func (r OptionRow) Greek(g Greek) float64 {
	switch g {
	case Gamma:
		return r.Gamma
	case Delta:
		return r.Delta
	case Vega:
		return r.Vega
	case Theta:
		return r.Theta
	default:
		return 0
	}
}

// OIEntry is the open-interest breakdown of one (strike, type).
// Total = Uncovered + Locked + Covered is assumed by the source, not enforced.
type OIEntry struct {
	Total     int64 `json:"total"`
	Uncovered int64 `json:"uncovered"`
	Locked    int64 `json:"locked"`
	Covered   int64 `json:"covered"`
}

// StrikeKey is the canonical OI lookup key: strike quantized to the BRL tick (cents) plus side.
type StrikeKey struct {
	Cents int64
	Type  OptionType
}

// QuantizeStrike rounds a strike to two decimals, half away from zero.
func QuantizeStrike(strike float64) float64 {
	f, _ := decimal.NewFromFloat(strike).Round(2).Float64()
	return f
}

// NewStrikeKey builds the key for a strike and side.
func NewStrikeKey(strike float64, t OptionType) StrikeKey {
	return StrikeKey{Cents: decimal.NewFromFloat(strike).Round(2).Shift(2).IntPart(), Type: t}
}

// Strike returns the quantized strike of the key.
func (k StrikeKey) Strike() float64 {
	f, _ := decimal.New(k.Cents, -2).Float64()
	return f
}

// OIBreakdown maps (strike, type) to open interest.
type OIBreakdown map[StrikeKey]OIEntry

// Add merges an entry, summing duplicates of the same key.
func (b OIBreakdown) Add(strike float64, t OptionType, e OIEntry) {
	k := NewStrikeKey(strike, t)
	cur := b[k]
	cur.Total += e.Total
	cur.Uncovered += e.Uncovered
	cur.Locked += e.Locked
	cur.Covered += e.Covered
	b[k] = cur
}

// Lookup returns the entry for a strike and side.
func (b OIBreakdown) Lookup(strike float64, t OptionType) (OIEntry, bool) {
	e, ok := b[NewStrikeKey(strike, t)]
	return e, ok
}

// TotalOI sums total open interest across all keys.
func (b OIBreakdown) TotalOI() int64 {
	var n int64
	for _, e := range b {
		n += e.Total
	}
	return n
}

// Bar is a daily OHLCV record.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Expiration is a catalog entry.
type Expiration struct {
	Code        string    `json:"code"`
	Date        time.Time `json:"date"`
	Description string    `json:"desc"`
	DaysUntil   int       `json:"days"`
}

// ExpirationAvailability is an expiration probed against the positions archive.
type ExpirationAvailability struct {
	Expiration
	DataCount int  `json:"data_count"`
	Available bool `json:"available"`
}

// OptionChain is a greeks fetch result. Dropped counts rows skipped for missing or invalid fields.
type OptionChain struct {
	Rows    []OptionRow `json:"rows"`
	Dropped int         `json:"dropped"`
}

type oiRecord struct {
	Strike float64    `json:"strike"`
	Type   OptionType `json:"type"`
	OIEntry
}

// MarshalJSON encodes the breakdown as a list; struct keys are not valid JSON object keys.
func (b OIBreakdown) MarshalJSON() ([]byte, error) {
	recs := make([]oiRecord, 0, len(b))
	for k, e := range b {
		recs = append(recs, oiRecord{Strike: k.Strike(), Type: k.Type, OIEntry: e})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Strike != recs[j].Strike {
			return recs[i].Strike < recs[j].Strike
		}
		return recs[i].Type < recs[j].Type
	})
	return json.Marshal(recs)
}

// UnmarshalJSON decodes the list form written by MarshalJSON.
func (b *OIBreakdown) UnmarshalJSON(data []byte) error {
	var recs []oiRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return err
	}
	out := make(OIBreakdown, len(recs))
	for _, r := range recs {
		out.Add(r.Strike, r.Type, r.OIEntry)
	}
	*b = out
	return nil
}
