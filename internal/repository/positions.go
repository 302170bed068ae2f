package repository

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"GammaDesk/internal/domain/models"
	applogger "GammaDesk/pkg/logger"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func validTable(table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid positions table name %q", table)
	}
	return nil
}

// positionRow is one line of the positions archive.
type positionRow struct {
	Strike    float64 `db:"preco_exercicio"`
	Type      string  `db:"tipo_opcao"`
	Total     float64 `db:"qtd_total"`
	Uncovered float64 `db:"qtd_descoberto"`
	Locked    float64 `db:"qtd_trava"`
	Covered   float64 `db:"qtd_coberto"`
}

// buildBreakdown folds archive rows into an OIBreakdown keyed by quantized strike.
// Rows with an unknown side, a non-positive strike or negative quantities are skipped.
func buildBreakdown(rows []positionRow) (models.OIBreakdown, int) {
	out := make(models.OIBreakdown, len(rows))
	dropped := 0
	for _, r := range rows {
		t, ok := models.ParseOptionType(r.Type)
		if !ok || !(r.Strike > 0) || r.Total < 0 || r.Uncovered < 0 || r.Locked < 0 || r.Covered < 0 {
			dropped++
			continue
		}
		out.Add(r.Strike, t, models.OIEntry{
			Total:     roundQty(r.Total),
			Uncovered: roundQty(r.Uncovered),
			Locked:    roundQty(r.Locked),
			Covered:   roundQty(r.Covered),
		})
	}
	return out, dropped
}

func roundQty(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v))
}

func reverseDates(ds []time.Time) {
	for i, j := 0, len(ds)-1; i < j; i, j = i+1, j-1 {
		ds[i], ds[j] = ds[j], ds[i]
	}
}

// queryLog logs the outcome of one positions query.
type queryLog struct {
	l       *applogger.Logger
	backend string
}

func (q queryLog) done(op, symbol, code string, start time.Time, n int, err error) {
	if q.l == nil {
		return
	}
	if err != nil {
		q.l.Error(q.backend+" "+op+" query error",
			applogger.String("symbol", symbol),
			applogger.String("expiration", code),
			applogger.Error(err),
		)
		return
	}
	q.l.Debug(q.backend+" "+op+" ok",
		applogger.String("symbol", symbol),
		applogger.String("expiration", code),
		applogger.Int("rows", n),
		applogger.Duration("duration_ms", time.Since(start)),
	)
}
