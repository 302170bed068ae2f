package exposure

import (
	"math"
	"time"

	"GammaDesk/internal/domain/models"
)

// Snapshot runs the gamma pipeline (calculator, flip, walls) for one day.
func Snapshot(day time.Time, expiration string, rows []models.OptionRow, oi models.OIBreakdown, spot float64, liq Liquidity) (models.RegimeSnapshot, FlipResult) {
	table := Calculate(rows, oi, spot, models.Gamma)
	flip := DetectFlip(table, spot, liq.Fraction())

	snap := models.RegimeSnapshot{
		Date:            day,
		Spot:            spot,
		Expiration:      expiration,
		Rows:            table.Rows,
		FlipStrike:      flip.Strike,
		FlipConsistent:  flip.Consistent,
		Walls:           DetectWalls(table, spot),
		NetGEX:          table.NetTotal(),
		NetGEXUncovered: table.NetUncovered(),
		Liquidity:       string(liq.Tier),
		WindowPct:       liq.WindowPct,
	}
	if flip.Strike != nil {
		d := math.Abs(*flip.Strike-spot) / spot * 100
		snap.FlipDistancePct = &d
	}
	snap.Regime = SnapshotRegime(spot, flip.Strike, snap.NetGEXUncovered)
	return snap, flip
}

// SnapshotRegime derives the regime from the flip, or from the sign of net uncovered GEX without one.
func SnapshotRegime(spot float64, flip *float64, netUncovered float64) models.GammaRegime {
	if flip != nil {
		return RegimeFromFlip(spot, *flip)
	}
	switch {
	case netUncovered > 0:
		return models.LongGamma
	case netUncovered < 0:
		return models.ShortGamma
	default:
		return models.Neutral
	}
}
