package exposure

import (
	"time"

	"GammaDesk/internal/domain/models"
	xutil "GammaDesk/pkg/util"
)

// MaxDaysToMaturity bounds the rows used for exposure.
const MaxDaysToMaturity = 60

// SanitizeRows keeps rows with positive strike, gamma and premium, finite greeks
// and 0 < days-to-maturity <= 60.
func SanitizeRows(rows []models.OptionRow) []models.OptionRow {
	out := make([]models.OptionRow, 0, len(rows))
	for _, r := range rows {
		if !(r.Strike > 0) || !(r.Gamma > 0) || !(r.Premium > 0) {
			continue
		}
		if r.DaysToMaturity <= 0 || r.DaysToMaturity > MaxDaysToMaturity {
			continue
		}
		if !xutil.IsFinite(r.Delta) || !xutil.IsFinite(r.Vega) || !xutil.IsFinite(r.Theta) || !xutil.IsFinite(r.IV) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ForExpiry keeps rows whose due date matches exp. Rows without a due date are kept.
func ForExpiry(rows []models.OptionRow, exp time.Time) []models.OptionRow {
	out := make([]models.OptionRow, 0, len(rows))
	for _, r := range rows {
		if r.DueDate.IsZero() || xutil.SameDay(r.DueDate, exp) {
			out = append(out, r)
		}
	}
	return out
}

// LatestDay returns the most recent as-of day present in rows.
func LatestDay(rows []models.OptionRow) time.Time {
	var latest time.Time
	for _, r := range rows {
		if d := xutil.Day(r.Time); d.After(latest) {
			latest = d
		}
	}
	return latest
}

// OnDay keeps rows dated on day.
func OnDay(rows []models.OptionRow, day time.Time) []models.OptionRow {
	out := make([]models.OptionRow, 0, len(rows))
	for _, r := range rows {
		if xutil.SameDay(r.Time, day) {
			out = append(out, r)
		}
	}
	return out
}

// Latest keeps only the rows of the most recent day.
func Latest(rows []models.OptionRow) []models.OptionRow {
	if len(rows) == 0 {
		return nil
	}
	return OnDay(rows, LatestDay(rows))
}
