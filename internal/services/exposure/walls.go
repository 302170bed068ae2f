package exposure

import (
	"math"
	"sort"

	"GammaDesk/internal/domain/models"
)

const secondaryWalls = 2

// DetectWalls picks the strike with the most uncovered call OI as support and the
// strike with the most uncovered put OI as resistance. The next two strikes of each
// side become secondary walls. Ties go to the lower strike.
func DetectWalls(t models.ExposureTable, spot float64) models.Walls {
	var w models.Walls
	calls := rank(t.Rows, func(r models.StrikeExposure) int64 { return r.CallOIUncovered })
	puts := rank(t.Rows, func(r models.StrikeExposure) int64 { return r.PutOIUncovered })

	build := func(kind models.WallKind, r models.StrikeExposure, oi int64, primary bool) models.Wall {
		d := 0.0
		if spot > 0 {
			d = math.Abs(r.Strike-spot) / spot * 100
		}
		return models.Wall{Kind: kind, Strike: r.Strike, OI: oi, DistancePct: d, Primary: primary}
	}

	for i, r := range calls {
		if i > secondaryWalls {
			break
		}
		wall := build(models.Support, r, r.CallOIUncovered, i == 0)
		if i == 0 {
			w.Support = &wall
		} else {
			w.Secondary = append(w.Secondary, wall)
		}
	}
	for i, r := range puts {
		if i > secondaryWalls {
			break
		}
		wall := build(models.Resistance, r, r.PutOIUncovered, i == 0)
		if i == 0 {
			w.Resistance = &wall
		} else {
			w.Secondary = append(w.Secondary, wall)
		}
	}
	return w
}

// rank returns rows with positive oi ordered by descending oi, ascending strike on ties.
func rank(rows []models.StrikeExposure, oi func(models.StrikeExposure) int64) []models.StrikeExposure {
	out := make([]models.StrikeExposure, 0, len(rows))
	for _, r := range rows {
		if oi(r) > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if oi(out[i]) != oi(out[j]) {
			return oi(out[i]) > oi(out[j])
		}
		return out[i].Strike < out[j].Strike
	})
	return out
}
