package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	"GammaDesk/internal/repository"
	"GammaDesk/internal/services/catalog"
	"GammaDesk/internal/services/exposure"
	applogger "GammaDesk/pkg/logger"
	xutil "GammaDesk/pkg/util"
)

const (
	minHistoricalDays  = 2
	impactedStrikes    = 5
	impactThreshold    = 5000.0
	flipStablePct      = 0.5
	spotHistoryPadDays = 10
)

// FlipPoint is one day of the flip trajectory.
type FlipPoint struct {
	Date   string             `json:"date"`
	Flip   *float64           `json:"flip"`
	Spot   float64            `json:"spot"`
	Regime models.GammaRegime `json:"regime"`
}

// RegimeChange marks consecutive days with different regimes.
type RegimeChange struct {
	From       string             `json:"from_date"`
	To         string             `json:"to_date"`
	FromRegime models.GammaRegime `json:"from_regime"`
	ToRegime   models.GammaRegime `json:"to_regime"`
}

// GEXTrend compares net uncovered GEX on the first and last day.
type GEXTrend struct {
	First  float64 `json:"first"`
	Last   float64 `json:"last"`
	Change float64 `json:"change"`
	Trend  string  `json:"trend"`
}

// ImpactedStrike is a strike whose uncovered GEX moved the most.
type ImpactedStrike struct {
	Strike float64 `json:"strike"`
	First  float64 `json:"first"`
	Last   float64 `json:"last"`
	Change float64 `json:"change"`
}

// HistoricalInsights are the cross-day analytics.
type HistoricalInsights struct {
	FlipTrajectory []FlipPoint      `json:"flip_trajectory"`
	FlipChangePct  *float64         `json:"flip_change_pct"`
	FlipDirection  string           `json:"flip_direction"`
	RegimeChanges  []RegimeChange   `json:"regime_changes"`
	GEXTrend       GEXTrend         `json:"gex_trend"`
	MostImpacted   []ImpactedStrike `json:"most_impacted_strikes"`
}

// HistoricalResult holds one snapshot per usable day, oldest first.
type HistoricalResult struct {
	Ticker     string
	Expiration models.Expiration
	Snapshots  []models.RegimeSnapshot
	Insights   HistoricalInsights
}

// HistoricalUseCase assembles gamma snapshots over the last N days the positions archive holds.
type HistoricalUseCase struct {
	src     Sources
	catalog *catalog.Catalog
	metrics domrepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

func NewHistoricalUseCase(src Sources, cat *catalog.Catalog, m domrepo.Metrics, l *applogger.Logger) *HistoricalUseCase {
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &HistoricalUseCase{src: src, catalog: cat, metrics: m, log: l, now: time.Now}
}

func (uc *HistoricalUseCase) Analyze(ctx context.Context, req models.HistoricalAnalysisRequest) (res *HistoricalResult, err error) {
	start := time.Now()
	defer func() { uc.metrics.RecordAnalysis("historical", time.Since(start), err) }()

	symbol, err := models.NormalizeSymbol(req.Ticker)
	if err != nil {
		return nil, err
	}
	exp, ok := uc.catalog.Lookup(req.Vencimento)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownExpiration, req.Vencimento)
	}
	exp = catalog.With(exp, uc.now())

	dates, err := uc.src.OI.RecentDates(ctx, symbol, exp.Code, req.DaysBack)
	if err != nil {
		return nil, err
	}
	if len(dates) < minHistoricalDays {
		return nil, &models.InsufficientHistoryError{Available: len(dates), Required: minHistoricalDays}
	}

	first, last := dates[0], dates[len(dates)-1]
	bars, err := uc.src.Spot.History(ctx, symbol, first.AddDate(0, 0, -spotHistoryPadDays), last.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	chain, err := uc.src.Greeks.Options(ctx, symbol, first, last.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	rows := exposure.ForExpiry(exposure.SanitizeRows(chain.Rows), exp.Date)
	liq := exposure.Classify(symbol)

	snaps := make([]*models.RegimeSnapshot, len(dates))
	var wg sync.WaitGroup
	for i, day := range dates {
		wg.Add(1)
		go func(i int, day time.Time) {
			defer wg.Done()
			snap, err := uc.day(ctx, symbol, exp, day, bars, rows, liq)
			if err != nil {
				uc.log.Warn("historical day skipped",
					applogger.String("symbol", symbol),
					applogger.String("date", day.Format(dateLayout)),
					applogger.Error(err),
				)
				return
			}
			snaps[i] = snap
		}(i, day)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res = &HistoricalResult{Ticker: symbol, Expiration: exp}
	for _, s := range snaps {
		if s != nil {
			res.Snapshots = append(res.Snapshots, *s)
		}
	}
	if len(res.Snapshots) < minHistoricalDays {
		return nil, &models.InsufficientHistoryError{Available: len(res.Snapshots), Required: minHistoricalDays}
	}
	res.Insights = Insights(res.Snapshots)
	return res, nil
}

// day builds the snapshot of one as-of date with that date's own spot.
func (uc *HistoricalUseCase) day(ctx context.Context, symbol string, exp models.Expiration, day time.Time, bars []models.Bar, rows []models.OptionRow, liq exposure.Liquidity) (*models.RegimeSnapshot, error) {
	spot, ok := repository.CloseOn(bars, day)
	if !ok {
		return nil, fmt.Errorf("%w: no close on %s", models.ErrNoSpotPrice, day.Format(dateLayout))
	}
	dayRows := exposure.OnDay(rows, day)
	if len(dayRows) == 0 {
		return nil, fmt.Errorf("%w: no greeks on %s", models.ErrNoGreeksData, day.Format(dateLayout))
	}
	oi, err := uc.src.OI.Breakdown(ctx, symbol, exp.Code, day)
	if err != nil {
		return nil, err
	}
	snap, flip := exposure.Snapshot(xutil.Day(day), exp.Code, dayRows, oi, spot, liq)
	if !flip.Consistent {
		uc.log.Warn("flip contradicts gex lean at spot",
			applogger.String("symbol", symbol),
			applogger.String("day", day.Format(dateLayout)),
			applogger.Float64("flip", *flip.Strike),
			applogger.Float64("spot", spot),
		)
	}
	return &snap, nil
}

// Insights computes flip trajectory, regime changes, GEX trend and the most impacted strikes.
// snaps must be in chronological order.
func Insights(snaps []models.RegimeSnapshot) HistoricalInsights {
	in := HistoricalInsights{RegimeChanges: []RegimeChange{}, MostImpacted: []ImpactedStrike{}, FlipDirection: "UNDEFINED"}
	if len(snaps) == 0 {
		return in
	}
	for i, s := range snaps {
		in.FlipTrajectory = append(in.FlipTrajectory, FlipPoint{
			Date:   s.Date.Format(dateLayout),
			Flip:   s.FlipStrike,
			Spot:   s.Spot,
			Regime: s.Regime,
		})
		if i > 0 && snaps[i-1].Regime != s.Regime {
			in.RegimeChanges = append(in.RegimeChanges, RegimeChange{
				From:       snaps[i-1].Date.Format(dateLayout),
				To:         s.Date.Format(dateLayout),
				FromRegime: snaps[i-1].Regime,
				ToRegime:   s.Regime,
			})
		}
	}

	first, last := snaps[0], snaps[len(snaps)-1]
	if first.FlipStrike != nil && last.FlipStrike != nil && *first.FlipStrike != 0 {
		pct := (*last.FlipStrike - *first.FlipStrike) / *first.FlipStrike * 100
		in.FlipChangePct = xutil.Nullable(pct)
		switch {
		case pct > flipStablePct:
			in.FlipDirection = "RISING"
		case pct < -flipStablePct:
			in.FlipDirection = "FALLING"
		default:
			in.FlipDirection = "STABLE"
		}
	}

	in.GEXTrend = gexTrend(first.NetGEXUncovered, last.NetGEXUncovered)
	in.MostImpacted = mostImpacted(snaps)
	return in
}

func gexTrend(first, last float64) GEXTrend {
	t := GEXTrend{First: xutil.Finite(first), Last: xutil.Finite(last)}
	t.Change = t.Last - t.First
	switch {
	case t.Change > 0 && t.Last > 0:
		t.Trend = "INCREASING_LONG"
	case t.Change < 0 && t.Last < 0:
		t.Trend = "INCREASING_SHORT"
	case t.Change == 0:
		t.Trend = "STABLE"
	default:
		t.Trend = "DECREASING"
	}
	return t
}

// mostImpacted ranks strikes present on every day by |ΔGEX uncovered| first to last.
func mostImpacted(snaps []models.RegimeSnapshot) []ImpactedStrike {
	seen := make(map[int64]int)
	firstVal := make(map[int64]float64)
	lastVal := make(map[int64]float64)
	for i, s := range snaps {
		for _, r := range s.Rows {
			k := models.NewStrikeKey(r.Strike, models.Call).Cents
			seen[k]++
			if i == 0 {
				firstVal[k] = r.TotalUncovered
			}
			if i == len(snaps)-1 {
				lastVal[k] = r.TotalUncovered
			}
		}
	}
	out := []ImpactedStrike{}
	for k, n := range seen {
		if n != len(snaps) {
			continue
		}
		change := lastVal[k] - firstVal[k]
		if math.Abs(change) <= impactThreshold {
			continue
		}
		out = append(out, ImpactedStrike{
			Strike: models.StrikeKey{Cents: k}.Strike(),
			First:  firstVal[k],
			Last:   lastVal[k],
			Change: change,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if math.Abs(out[i].Change) != math.Abs(out[j].Change) {
			return math.Abs(out[i].Change) > math.Abs(out[j].Change)
		}
		return out[i].Strike < out[j].Strike
	})
	if len(out) > impactedStrikes {
		out = out[:impactedStrikes]
	}
	return out
}

// Response renders the historical result for the HTTP layer.
func (r *HistoricalResult) Response() map[string]any {
	dates := make([]string, 0, len(r.Snapshots))
	byDate := make(map[string]any, len(r.Snapshots))
	spots := make(map[string]float64, len(r.Snapshots))
	for _, s := range r.Snapshots {
		d := s.Date.Format(dateLayout)
		dates = append(dates, d)
		byDate[d] = map[string]any{
			"spot_price":         s.Spot,
			"flip_strike":        s.FlipStrike,
			"flip_distance_pct":  s.FlipDistancePct,
			"regime":             s.Regime,
			"net_gex":            xutil.Finite(s.NetGEX),
			"net_gex_uncovered":  xutil.Finite(s.NetGEXUncovered),
			"walls":              s.Walls,
			"liquidity_category": s.Liquidity,
			"window_pct":         s.WindowPct,
			"gamma_levels":       Levels(models.ExposureTable{Greek: models.Gamma, Spot: s.Spot, Rows: s.Rows}),
		}
		spots[d] = s.Spot
	}
	return map[string]any{
		"ticker":              r.Ticker,
		"expiration_desc":     r.Expiration.Description,
		"expiration":          expirationDTO(r.Expiration),
		"available_dates":     dates,
		"data_by_date":        byDate,
		"spot_prices_by_date": spots,
		"insights":            r.Insights,
		"success":             true,
	}
}
