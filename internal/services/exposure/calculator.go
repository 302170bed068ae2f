package exposure

import (
	"math"
	"sort"

	"GammaDesk/internal/domain/models"
)

const (
	// ContractSize is the B3 equity option multiplier.
	ContractSize = 100

	syntheticExpansion      = 1.5
	syntheticUncoveredShare = 0.3
)

// Band returns the half-width, as a fraction of spot, of the strikes kept for g.
func Band(g models.Greek) float64 {
	if g == models.Delta {
		return 0.25
	}
	return 0.20
}

type strikeGroup struct {
	strike  float64
	calls   []models.OptionRow
	puts    []models.OptionRow
	ivSum   float64
	ivN     int
	daysSum float64
	daysN   int
}

// Calculate builds the per-strike exposure table of greek g.
//
// Gamma exposure is scaled by spot and the put side is negated, so positive
// values mean dealers are long gamma. Strikes without any positions data are
// dropped for gamma; for the other greeks the missing side is estimated from
// traded volume and the strike is flagged as not backed by real data.
func Calculate(rows []models.OptionRow, oi models.OIBreakdown, spot float64, g models.Greek) models.ExposureTable {
	band := Band(g)
	table := models.ExposureTable{Greek: g, Spot: spot, Band: band}
	if !(spot > 0) {
		return table
	}
	lo, hi := spot*(1-band), spot*(1+band)

	groups := make(map[int64]*strikeGroup)
	for _, r := range rows {
		if r.Strike < lo || r.Strike > hi {
			continue
		}
		k := models.NewStrikeKey(r.Strike, r.Type).Cents
		grp, ok := groups[k]
		if !ok {
			grp = &strikeGroup{strike: models.QuantizeStrike(r.Strike)}
			groups[k] = grp
		}
		if r.Type == models.Call {
			grp.calls = append(grp.calls, r)
		} else {
			grp.puts = append(grp.puts, r)
		}
		if r.IV > 0 {
			grp.ivSum += r.IV
			grp.ivN++
		}
		grp.daysSum += float64(r.DaysToMaturity)
		grp.daysN++
	}

	scale := float64(ContractSize)
	if g == models.Gamma {
		scale *= spot
	}

	for _, grp := range groups {
		callOI, callReal := oi.Lookup(grp.strike, models.Call)
		putOI, putReal := oi.Lookup(grp.strike, models.Put)
		hasReal := callReal || putReal
		if g == models.Gamma && !hasReal {
			continue
		}
		if g != models.Gamma {
			if !callReal && len(grp.calls) > 0 {
				callOI = synthesize(grp.calls)
			}
			if !putReal && len(grp.puts) > 0 {
				putOI = synthesize(grp.puts)
			}
		}

		callAvg := meanGreek(grp.calls, g)
		putAvg := meanGreek(grp.puts, g)

		se := models.StrikeExposure{
			Strike:          grp.strike,
			CallOITotal:     callOI.Total,
			PutOITotal:      putOI.Total,
			CallOIUncovered: callOI.Uncovered,
			PutOIUncovered:  putOI.Uncovered,
			CallAvgGreek:    callAvg,
			PutAvgGreek:     putAvg,
			HasRealData:     hasReal,
		}
		se.Call = callAvg * float64(callOI.Total) * scale
		se.Put = putAvg * float64(putOI.Total) * scale
		se.CallUncovered = callAvg * float64(callOI.Uncovered) * scale
		se.PutUncovered = putAvg * float64(putOI.Uncovered) * scale
		if g == models.Gamma {
			se.Put = -se.Put
			se.PutUncovered = -se.PutUncovered
		}
		se.Total = se.Call + se.Put
		se.TotalUncovered = se.CallUncovered + se.PutUncovered
		if grp.ivN > 0 {
			se.IV = grp.ivSum / float64(grp.ivN)
		}
		if grp.daysN > 0 {
			se.Days = grp.daysSum / float64(grp.daysN)
		}
		table.Rows = append(table.Rows, se)
	}

	sort.Slice(table.Rows, func(i, j int) bool { return table.Rows[i].Strike < table.Rows[j].Strike })
	return table
}

// synthesize estimates open interest from traded volume.
func synthesize(rows []models.OptionRow) models.OIEntry {
	var vol float64
	for _, r := range rows {
		if r.Volume > 0 {
			vol += r.Volume
		}
	}
	total := int64(math.Round(vol * ContractSize * syntheticExpansion))
	return models.OIEntry{
		Total:     total,
		Uncovered: int64(math.Round(float64(total) * syntheticUncoveredShare)),
	}
}

func meanGreek(rows []models.OptionRow, g models.Greek) float64 {
	if len(rows) == 0 {
		return 0
	}
	var s float64
	for _, r := range rows {
		s += r.Greek(g)
	}
	return s / float64(len(rows))
}
