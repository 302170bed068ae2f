package usecase

import (
	"time"

	"GammaDesk/internal/domain/models"
	xutil "GammaDesk/pkg/util"
)

const dateLayout = "2006-01-02"

// ExpirationDTO is the wire form of an expiration.
type ExpirationDTO struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Date string `json:"date"`
	Days int    `json:"days"`
}

func expirationDTO(e models.Expiration) ExpirationDTO {
	return ExpirationDTO{Code: e.Code, Desc: e.Description, Date: e.Date.Format(dateLayout), Days: e.DaysUntil}
}

// AvailabilityDTO is an expiration with the positions row count behind it.
type AvailabilityDTO struct {
	ExpirationDTO
	DataCount int  `json:"data_count"`
	Available bool `json:"available"`
}

func Availability(list []models.ExpirationAvailability) []AvailabilityDTO {
	out := make([]AvailabilityDTO, 0, len(list))
	for _, e := range list {
		out = append(out, AvailabilityDTO{ExpirationDTO: expirationDTO(e.Expiration), DataCount: e.DataCount, Available: e.Available})
	}
	return out
}

// Levels renders an exposure table with greek-prefixed keys (call_gex, total_vex_uncovered, ...).
func Levels(t models.ExposureTable) []map[string]any {
	x, g := t.Greek.Exposure(), string(t.Greek)
	out := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := map[string]any{
			"strike":            r.Strike,
			"call_oi_total":     r.CallOITotal,
			"put_oi_total":      r.PutOITotal,
			"call_oi_uncovered": r.CallOIUncovered,
			"put_oi_uncovered":  r.PutOIUncovered,
			"iv":                positive(r.IV),
			"days":              xutil.Finite(r.Days),
			"has_real_data":     r.HasRealData,
		}
		row["call_"+x] = xutil.Finite(r.Call)
		row["put_"+x] = xutil.Finite(r.Put)
		row["total_"+x] = xutil.Finite(r.Total)
		row["call_"+x+"_uncovered"] = xutil.Finite(r.CallUncovered)
		row["put_"+x+"_uncovered"] = xutil.Finite(r.PutUncovered)
		row["total_"+x+"_uncovered"] = xutil.Finite(r.TotalUncovered)
		row["avg_"+g+"_calls"] = xutil.Finite(r.CallAvgGreek)
		row["avg_"+g+"_puts"] = xutil.Finite(r.PutAvgGreek)
		out = append(out, row)
	}
	return out
}

// Plot is chart-ready series for an exposure table.
type Plot struct {
	Strikes        []float64 `json:"strikes"`
	Call           []float64 `json:"call"`
	Put            []float64 `json:"put"`
	Total          []float64 `json:"total"`
	TotalUncovered []float64 `json:"total_uncovered"`
	Cumulative     []float64 `json:"cumulative"`
	Spot           float64   `json:"spot"`
	Flip           *float64  `json:"flip,omitempty"`
	Title          string    `json:"title"`
}

func plotFor(ticker string, t models.ExposureTable, flip *float64) Plot {
	p := Plot{Spot: t.Spot, Flip: flip, Title: ticker + " " + t.Greek.Exposure()}
	var cum float64
	for _, r := range t.Rows {
		cum += xutil.Finite(r.Total)
		p.Strikes = append(p.Strikes, r.Strike)
		p.Call = append(p.Call, xutil.Finite(r.Call))
		p.Put = append(p.Put, xutil.Finite(r.Put))
		p.Total = append(p.Total, xutil.Finite(r.Total))
		p.TotalUncovered = append(p.TotalUncovered, xutil.Finite(r.TotalUncovered))
		p.Cumulative = append(p.Cumulative, cum)
	}
	return p
}

// Response renders a per-greek result for the HTTP layer.
func (r *GreekResult) Response() map[string]any {
	var flip *float64
	if r.Flip != nil {
		flip = r.Flip.Strike
	}
	x := r.Greek.Exposure()
	resp := map[string]any{
		"ticker":        r.Ticker,
		"spot_price":    r.Spot,
		"expiration":    expirationDTO(r.Expiration),
		"as_of":         dateOrNil(r.AsOf),
		"plot_json":     plotFor(r.Ticker, r.Table, flip),
		"options_count": r.Quality.OptionsCount,
		"data_quality":  r.Quality,
		"liquidity":     r.Liquidity,
		"success":       true,
	}
	resp[string(r.Greek)+"_levels"] = Levels(r.Table)
	resp["net_"+x] = xutil.Finite(r.Table.NetTotal())
	resp["net_"+x+"_uncovered"] = xutil.Finite(r.Table.NetUncovered())
	if r.Flip != nil {
		resp["flip"] = r.Flip
		resp["gamma_flip"] = r.Flip.Strike
		resp["regime"] = r.Regime
	}
	if r.Walls != nil {
		resp["walls"] = r.Walls
	}
	if r.Volatility != nil {
		resp["volatility_regime"] = r.Volatility
	}
	if r.TimeDecay != nil {
		resp["time_decay_regime"] = r.TimeDecay
	}
	if r.Directional != nil {
		resp["directional_pressure"] = r.Directional
	}
	return resp
}

func positive(x float64) *float64 {
	if !(x > 0) {
		return nil
	}
	return xutil.Nullable(x)
}

func dateOrNil(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
