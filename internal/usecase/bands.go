package usecase

import (
	"context"
	"strconv"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	"GammaDesk/internal/services/volatility"
	applogger "GammaDesk/pkg/logger"
	xutil "GammaDesk/pkg/util"
)

// BandsResult is the hybrid volatility band analysis of one symbol.
type BandsResult struct {
	Ticker string
	Period domrepo.Period
	volatility.Result
}

// BandsUseCase runs the hybrid volatility band engine over daily price history.
type BandsUseCase struct {
	spot    domrepo.SpotPriceSource
	params  volatility.GBTParams
	metrics domrepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

func NewBandsUseCase(spot domrepo.SpotPriceSource, m domrepo.Metrics, l *applogger.Logger) *BandsUseCase {
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &BandsUseCase{spot: spot, params: volatility.DefaultGBTParams(), metrics: m, log: l, now: time.Now}
}

func (uc *BandsUseCase) Analyze(ctx context.Context, req models.BandsRequest) (res *BandsResult, err error) {
	start := time.Now()
	defer func() { uc.metrics.RecordAnalysis("bands", time.Since(start), err) }()

	symbol, err := models.NormalizeSymbol(req.Ticker)
	if err != nil {
		return nil, err
	}
	period := domrepo.NormalizePeriod(req.Period)
	end := uc.now()
	bars, err := uc.spot.History(ctx, symbol, period.Start(end), end)
	if err != nil {
		return nil, err
	}

	// engine state is per request; nothing fitted is shared between calls
	engine := volatility.NewEngine(uc.params, uc.log.With(applogger.String("symbol", symbol)))
	out, err := engine.Compute(ctx, bars)
	if err != nil {
		return nil, err
	}
	if out.Model.GarchFailed {
		uc.metrics.RecordFallback("garch")
	}
	if !out.Model.Trained {
		uc.metrics.RecordFallback("regressor")
	}
	return &BandsResult{Ticker: symbol, Period: period, Result: out}, nil
}

// BandPoint is one chart row with unknown values as null.
type BandPoint struct {
	Date      string   `json:"date"`
	Close     float64  `json:"close"`
	Upper2    float64  `json:"upper_2sigma"`
	Lower2    float64  `json:"lower_2sigma"`
	Upper4    float64  `json:"upper_4sigma"`
	Lower4    float64  `json:"lower_4sigma"`
	Center    float64  `json:"center"`
	GarchVol  *float64 `json:"garch_vol"`
	XGBVol    *float64 `json:"xgb_vol"`
	HybridVol *float64 `json:"hybrid_vol"`
	WGarch    float64  `json:"w_garch"`
}

// Response renders the band result for the HTTP layer.
func (r *BandsResult) Response() map[string]any {
	chart := make([]BandPoint, 0, len(r.Rows))
	for _, b := range r.Rows {
		chart = append(chart, BandPoint{
			Date:      b.Date.Format(dateLayout),
			Close:     b.Close,
			Upper2:    xutil.Finite(b.Upper2),
			Lower2:    xutil.Finite(b.Lower2),
			Upper4:    xutil.Finite(b.Upper4),
			Lower4:    xutil.Finite(b.Lower4),
			Center:    xutil.Finite(b.Center),
			GarchVol:  xutil.Nullable(b.GarchVol),
			XGBVol:    xutil.Nullable(b.XGBVol),
			HybridVol: xutil.Nullable(b.HybridVol),
			WGarch:    b.WGarch,
		})
	}
	l := r.Latest
	realized := make(map[string]*float64, len(r.Realized))
	for w, v := range r.Realized {
		realized[strconv.Itoa(w)+"d"] = xutil.Nullable(v)
	}
	return map[string]any{
		"ticker":        r.Ticker,
		"period":        r.Period,
		"current_price": l.Close,
		"metrics": map[string]any{
			"volatility": map[string]any{
				"garch":    xutil.Nullable(l.GarchVol),
				"xgb":      xutil.Nullable(l.XGBVol),
				"hybrid":   xutil.Nullable(l.HybridVol),
				"w_garch":  l.WGarch,
				"realized": realized,
			},
			"bands": map[string]any{
				"reference_price": l.RefPrice,
				"reference_vol":   xutil.Nullable(l.RefVol),
				"upper_2sigma":    xutil.Finite(l.Upper2),
				"lower_2sigma":    xutil.Finite(l.Lower2),
				"upper_4sigma":    xutil.Finite(l.Upper4),
				"lower_4sigma":    xutil.Finite(l.Lower4),
				"center":          xutil.Finite(l.Center),
			},
			"position": r.Position,
		},
		"trading_signal": r.Position.Description,
		"chart_data":     chart,
		"model":          r.Model,
		"degraded":       r.Degraded,
		"warnings":       r.Warnings,
		"success":        true,
	}
}
