package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	"GammaDesk/internal/services/exposure"
	applogger "GammaDesk/pkg/logger"
)

// Sources bundles the outbound ports of an exposure analysis.
type Sources struct {
	Spot   domrepo.SpotPriceSource
	Greeks domrepo.OptionGreeksSource
	OI     domrepo.OpenInterestSource
}

// DataQuality reports how much of the input survived into the table.
type DataQuality struct {
	OptionsCount     int  `json:"options_count"`
	DroppedRows      int  `json:"dropped_rows"`
	Strikes          int  `json:"strikes"`
	RealStrikes      int  `json:"real_strikes"`
	SyntheticStrikes int  `json:"synthetic_strikes"`
	PositionsCount   int  `json:"positions_count"`
	HasPositions     bool `json:"has_positions"`
}

// GreekResult is one exposure dimension for (symbol, expiration).
type GreekResult struct {
	Ticker      string
	Greek       models.Greek
	Expiration  models.Expiration
	Spot        float64
	AsOf        time.Time
	Table       models.ExposureTable
	Liquidity   exposure.Liquidity
	Flip        *exposure.FlipResult
	Walls       *models.Walls
	Regime      models.GammaRegime
	Volatility  *exposure.VolatilityRegime
	TimeDecay   *exposure.TimeDecayRegime
	Directional *exposure.DirectionalPressure
	Quality     DataQuality
}

// marketData is the fetched input of one dimension.
type marketData struct {
	rows    []models.OptionRow
	history []models.OptionRow
	asOf    time.Time
	oi      models.OIBreakdown
	dropped int
}

// AnalysisUseCase runs the per-greek exposure pipeline.
type AnalysisUseCase struct {
	src          Sources
	expirations  *ExpirationsUseCase
	metrics      domrepo.Metrics
	log          *applogger.Logger
	lookbackDays int
	now          func() time.Time
}

func NewAnalysisUseCase(src Sources, exp *ExpirationsUseCase, lookbackDays int, m domrepo.Metrics, l *applogger.Logger) *AnalysisUseCase {
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	if lookbackDays <= 0 {
		lookbackDays = 5
	}
	return &AnalysisUseCase{src: src, expirations: exp, metrics: m, log: l, lookbackDays: lookbackDays, now: time.Now}
}

// Analyze runs one greek for a symbol. An empty code picks the nearest expiration with positions.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, req models.GreekAnalysisRequest) (res *GreekResult, err error) {
	start := time.Now()
	defer func() { uc.metrics.RecordAnalysis(req.Greek, time.Since(start), err) }()

	g, ok := models.ParseGreek(req.Greek)
	if !ok {
		return nil, fmt.Errorf("unknown greek %q", req.Greek)
	}
	symbol, err := models.NormalizeSymbol(req.Ticker)
	if err != nil {
		return nil, err
	}
	exp, err := uc.expirations.Resolve(ctx, symbol, req.ExpirationCode)
	if err != nil {
		return nil, err
	}
	spot, err := uc.spot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return uc.analyzeAt(ctx, symbol, exp, spot, g, req.DaysBack)
}

func (uc *AnalysisUseCase) spot(ctx context.Context, symbol string) (float64, error) {
	spot, err := uc.src.Spot.Current(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if !(spot > 0) {
		return 0, fmt.Errorf("%w: %s", models.ErrNoSpotPrice, symbol)
	}
	uc.metrics.RecordSpot(symbol, spot)
	return spot, nil
}

// analyzeAt runs the pipeline with an already resolved expiration and spot.
func (uc *AnalysisUseCase) analyzeAt(ctx context.Context, symbol string, exp models.Expiration, spot float64, g models.Greek, daysBack int) (*GreekResult, error) {
	md, err := uc.load(ctx, symbol, exp, daysBack)
	if err != nil {
		return nil, err
	}
	liq := exposure.Classify(symbol)
	uc.log.Debug("liquidity window",
		applogger.String("symbol", symbol),
		applogger.String("tier", string(liq.Tier)),
		applogger.Float64("window_pct", liq.WindowPct),
	)

	table := exposure.Calculate(md.rows, md.oi, spot, g)
	res := &GreekResult{
		Ticker:     symbol,
		Greek:      g,
		Expiration: exp,
		Spot:       spot,
		AsOf:       md.asOf,
		Table:      table,
		Liquidity:  liq,
		Quality: DataQuality{
			OptionsCount:     len(md.rows),
			DroppedRows:      md.dropped,
			Strikes:          len(table.Rows),
			RealStrikes:      table.RealStrikes(),
			SyntheticStrikes: len(table.Rows) - table.RealStrikes(),
			PositionsCount:   len(md.oi),
			HasPositions:     len(md.oi) > 0,
		},
	}

	switch g {
	case models.Gamma:
		flip := exposure.DetectFlip(table, spot, liq.Fraction())
		walls := exposure.DetectWalls(table, spot)
		res.Flip, res.Walls = &flip, &walls
		res.Regime = exposure.SnapshotRegime(spot, flip.Strike, table.NetUncovered())
		if !flip.Consistent {
			uc.log.Warn("flip contradicts regime at spot",
				applogger.String("symbol", symbol),
				applogger.String("regime_at_spot", string(flip.RegimeAtSpot)),
				applogger.Float64("flip", *flip.Strike),
				applogger.Float64("spot", spot),
			)
		}
	case models.Vega:
		v := exposure.AnalyzeVolatility(table, spot, exposure.BuildIVHistory(md.history, daysBack))
		res.Volatility = &v
	case models.Theta:
		d := exposure.AnalyzeTimeDecay(table)
		res.TimeDecay = &d
	case models.Delta:
		p := exposure.AnalyzeDirectional(table, spot)
		res.Directional = &p
	}
	return res, nil
}

// load fetches greeks over the lookback window and the latest open interest.
// Missing positions yield an empty breakdown rather than an error.
func (uc *AnalysisUseCase) load(ctx context.Context, symbol string, exp models.Expiration, daysBack int) (*marketData, error) {
	to := uc.now()
	span := max(uc.lookbackDays, daysBack)
	from := to.AddDate(0, 0, -(span*7/5 + 3))

	chain, err := uc.src.Greeks.Options(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	all := exposure.ForExpiry(exposure.SanitizeRows(chain.Rows), exp.Date)
	dropped := chain.Dropped + len(chain.Rows) - len(all)
	rows := exposure.Latest(all)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %s", models.ErrNoGreeksData, symbol, exp.Code)
	}
	uc.metrics.RecordDroppedRows("greeks_filter", len(chain.Rows)-len(all))

	oi, err := uc.src.OI.Breakdown(ctx, symbol, exp.Code, time.Time{})
	switch {
	case errors.Is(err, models.ErrNoPositionsData):
		uc.log.Info("no positions for expiration",
			applogger.String("symbol", symbol),
			applogger.String("code", exp.Code),
		)
		oi = models.OIBreakdown{}
	case err != nil:
		return nil, err
	}
	return &marketData{
		rows:    rows,
		history: all,
		asOf:    exposure.LatestDay(rows),
		oi:      oi,
		dropped: dropped,
	}, nil
}
