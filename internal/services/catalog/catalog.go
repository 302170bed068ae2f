package catalog

import (
	"fmt"
	"time"

	"GammaDesk/internal/domain/models"
	xutil "GammaDesk/pkg/util"
)

var monthNames = [...]string{"", "Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"}

// DefaultHorizonMonths is how many monthly expirations Upcoming lists, counting the current month.
const DefaultHorizonMonths = 24

// Catalog derives monthly expirations (third Friday of each month) from the calendar,
// so it covers any year without a fixed table.
type Catalog struct {
	horizon int
}

var defaultCatalog = New(DefaultHorizonMonths)

// Default returns the process-wide catalog.
func Default() *Catalog { return defaultCatalog }

// New builds a catalog listing horizonMonths months ahead.
func New(horizonMonths int) *Catalog {
	if horizonMonths <= 0 {
		horizonMonths = DefaultHorizonMonths
	}
	return &Catalog{horizon: horizonMonths}
}

func entry(y int, m time.Month) models.Expiration {
	d := xutil.ThirdFriday(y, m)
	return models.Expiration{
		Code:        d.Format(xutil.CodeLayout),
		Date:        d,
		Description: fmt.Sprintf("%s %d (%s)", monthNames[m], y, d.Format("02/01")),
	}
}

// Lookup returns the expiration for an 8-digit code. Only third Fridays are expirations.
func (c *Catalog) Lookup(code string) (models.Expiration, bool) {
	if len(code) != 8 {
		return models.Expiration{}, false
	}
	d, err := time.Parse(xutil.CodeLayout, code)
	if err != nil {
		return models.Expiration{}, false
	}
	e := entry(d.Year(), d.Month())
	if e.Code != code {
		return models.Expiration{}, false
	}
	return e, true
}

// Upcoming returns the expirations of the next horizon months that fall on or after
// now's day, nearest first, with DaysUntil filled.
func (c *Catalog) Upcoming(now time.Time) []models.Expiration {
	today := xutil.Day(now)
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Expiration, 0, c.horizon)
	for k := 0; k < c.horizon; k++ {
		m := first.AddDate(0, k, 0)
		e := entry(m.Year(), m.Month())
		days := xutil.DaysBetween(today, e.Date)
		if days < 0 {
			continue
		}
		e.DaysUntil = days
		out = append(out, e)
	}
	return out
}

// With returns e with DaysUntil computed against now.
func With(e models.Expiration, now time.Time) models.Expiration {
	e.DaysUntil = xutil.DaysBetween(xutil.Day(now), e.Date)
	return e
}
