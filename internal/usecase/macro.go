package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	domsvc "GammaDesk/internal/domain/service"
	applogger "GammaDesk/pkg/logger"
	xutil "GammaDesk/pkg/util"
)

const (
	flipCloseRatio   = 0.03
	highDEXUncovered = 100000.0
	highIVPct        = 40.0
	sellPremiumIVPct = 30.0
	sellPremiumBleed = -10000.0
	defaultDaysBack  = 10
)

// IntegratedAnalysis combines the four dimensions into alerts, opportunities and risk zones.
type IntegratedAnalysis struct {
	Regime          models.GammaRegime   `json:"gamma_regime"`
	FlipStrike      *float64             `json:"flip_strike"`
	FlipDistancePct *float64             `json:"flip_distance_pct"`
	WeightedIV      *float64             `json:"weighted_iv"`
	NetDEXUncovered *float64             `json:"net_dex_uncovered"`
	DailyBleed      *float64             `json:"daily_bleed"`
	Alerts          []models.Alert       `json:"alerts"`
	Opportunities   []models.Opportunity `json:"opportunities"`
	RiskZones       []models.RiskZone    `json:"risk_zones"`
}

// MacroResult is the four-dimension analysis of one (symbol, expiration).
type MacroResult struct {
	Ticker     string
	Spot       float64
	Expiration models.Expiration
	Dimensions map[models.Greek]*GreekResult
	Integrated IntegratedAnalysis
	Errors     map[string]string
}

// MacroUseCase fans the per-greek pipeline out over all four greeks.
type MacroUseCase struct {
	analysis  *AnalysisUseCase
	publisher domsvc.AlertPublisher
	timeout   time.Duration
	daysBack  int
	metrics   domrepo.Metrics
	log       *applogger.Logger
}

// NewMacroUseCase creates the aggregator. publisher may be nil. ivDaysBack is the
// implied-volatility lookback of the vega dimension.
func NewMacroUseCase(analysis *AnalysisUseCase, publisher domsvc.AlertPublisher, dimensionTimeout time.Duration, ivDaysBack int, l *applogger.Logger) *MacroUseCase {
	if dimensionTimeout <= 0 {
		dimensionTimeout = 30 * time.Second
	}
	if ivDaysBack <= 0 {
		ivDaysBack = defaultDaysBack
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &MacroUseCase{analysis: analysis, publisher: publisher, timeout: dimensionTimeout, daysBack: ivDaysBack, metrics: analysis.metrics, log: l}
}

func (uc *MacroUseCase) Analyze(ctx context.Context, req models.MacroAnalysisRequest) (res *MacroResult, err error) {
	start := time.Now()
	defer func() { uc.metrics.RecordAnalysis("macro", time.Since(start), err) }()

	symbol, err := models.NormalizeSymbol(req.Ticker)
	if err != nil {
		return nil, err
	}
	exp, err := uc.analysis.expirations.Resolve(ctx, symbol, req.ExpirationCode)
	if err != nil {
		return nil, err
	}
	spot, err := uc.analysis.spot(ctx, symbol)
	if err != nil {
		return nil, err
	}

	res = &MacroResult{
		Ticker:     symbol,
		Spot:       spot,
		Expiration: exp,
		Dimensions: make(map[models.Greek]*GreekResult, len(models.AllGreeks)),
		Errors:     map[string]string{},
	}

	type item struct {
		greek models.Greek
		val   *GreekResult
		err   error
	}
	ch := make(chan item, len(models.AllGreeks))
	var wg sync.WaitGroup
	for _, g := range models.AllGreeks {
		wg.Add(1)
		go func(g models.Greek) {
			defer wg.Done()
			dctx, cancel := context.WithTimeout(ctx, uc.timeout)
			defer cancel()
			v, err := uc.analysis.analyzeAt(dctx, symbol, exp, spot, g, uc.daysBack)
			ch <- item{g, v, err}
		}(g)
	}
	go func() { wg.Wait(); close(ch) }()

	var errs []error
	for it := range ch {
		if it.err != nil {
			res.Errors[string(it.greek)] = it.err.Error()
			errs = append(errs, it.err)
			uc.log.Warn("macro dimension failed",
				applogger.String("symbol", symbol),
				applogger.String("greek", string(it.greek)),
				applogger.Error(it.err),
			)
			continue
		}
		res.Dimensions[it.greek] = it.val
	}
	if len(res.Dimensions) == 0 {
		return nil, fmt.Errorf("all dimensions failed for %s: %w", symbol, errors.Join(errs...))
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}

	res.Integrated = Integrate(spot, res.Dimensions)
	uc.publish(ctx, res)
	return res, nil
}

// Integrate derives alerts, opportunities and risk zones from whichever dimensions are present.
func Integrate(spot float64, dims map[models.Greek]*GreekResult) IntegratedAnalysis {
	out := IntegratedAnalysis{
		Regime:        models.Neutral,
		Alerts:        []models.Alert{},
		Opportunities: []models.Opportunity{},
		RiskZones:     []models.RiskZone{},
	}

	if g := dims[models.Gamma]; g != nil && g.Flip != nil {
		out.Regime = g.Regime
		out.FlipStrike = g.Flip.Strike
		if f := g.Flip.Strike; f != nil && spot > 0 {
			ratio := math.Abs(*f-spot) / spot
			out.FlipDistancePct = xutil.Nullable(ratio * 100)
			if ratio < flipCloseRatio {
				out.Alerts = append(out.Alerts, models.Alert{
					Type:     "GAMMA_FLIP_CLOSE",
					Severity: models.SeverityHigh,
					Message:  fmt.Sprintf("gamma flip %.2f within %.1f%% of spot %.2f", *f, ratio*100, spot),
					Value:    out.FlipDistancePct,
				})
			}
		}
	}

	if d := dims[models.Delta]; d != nil && d.Directional != nil {
		net := d.Directional.NetDEXUncovered
		out.NetDEXUncovered = xutil.Nullable(net)
		if math.Abs(net) > highDEXUncovered {
			out.Alerts = append(out.Alerts, models.Alert{
				Type:     "HIGH_DEX_EXPOSURE",
				Severity: models.SeverityMedium,
				Message:  fmt.Sprintf("uncovered delta exposure %.0f (%s)", net, d.Directional.Bias),
				Value:    xutil.Nullable(net),
			})
		}
	}

	var iv *float64
	if v := dims[models.Vega]; v != nil && v.Volatility != nil {
		iv = v.Volatility.WeightedIV
		out.WeightedIV = iv
		if iv != nil && *iv > highIVPct {
			out.Alerts = append(out.Alerts, models.Alert{
				Type:     "HIGH_IV",
				Severity: models.SeverityMedium,
				Message:  fmt.Sprintf("weighted implied volatility %.1f%%", *iv),
				Value:    iv,
			})
		}
		if out.Regime == models.ShortGamma && v.Volatility.MaxVegaStrike != nil {
			out.RiskZones = append(out.RiskZones, models.RiskZone{
				Strike: *v.Volatility.MaxVegaStrike,
				Impact: models.SeverityHigh,
				Reason: "max vega concentration under short gamma",
			})
		}
	}

	if t := dims[models.Theta]; t != nil && t.TimeDecay != nil {
		bleed := t.TimeDecay.DailyBleed
		out.DailyBleed = xutil.Nullable(bleed)
		if bleed < sellPremiumBleed && iv != nil && *iv > sellPremiumIVPct {
			out.Opportunities = append(out.Opportunities, models.Opportunity{
				Type:    "SELL_PREMIUM",
				Message: fmt.Sprintf("daily theta bleed %.0f with IV %.1f%%", bleed, *iv),
			})
		}
	}
	return out
}

func (uc *MacroUseCase) publish(ctx context.Context, res *MacroResult) {
	if uc.publisher == nil || len(res.Integrated.Alerts) == 0 {
		return
	}
	ev := models.AlertEvent{
		Symbol:     res.Ticker,
		Expiration: res.Expiration.Code,
		Spot:       res.Spot,
		Alerts:     res.Integrated.Alerts,
		At:         time.Now().UTC(),
	}
	if err := uc.publisher.PublishAlerts(ctx, ev); err != nil {
		uc.log.Warn("publish alerts failed", applogger.String("symbol", res.Ticker), applogger.Error(err))
	}
}

// Response renders the macro result for the HTTP layer.
func (r *MacroResult) Response() map[string]any {
	plots := map[string]Plot{}
	resp := map[string]any{
		"ticker":              r.Ticker,
		"spot_price":          r.Spot,
		"expiration":          expirationDTO(r.Expiration),
		"integrated_analysis": r.Integrated,
		"errors":              r.Errors,
		"success":             true,
	}
	for _, g := range models.AllGreeks {
		d := r.Dimensions[g]
		if d == nil {
			resp[string(g)+"_data"] = nil
			continue
		}
		resp[string(g)+"_data"] = d.Response()
		var flip *float64
		if d.Flip != nil {
			flip = d.Flip.Strike
		}
		plots[string(g)] = plotFor(r.Ticker, d.Table, flip)
	}
	resp["plot_json"] = plots
	return resp
}
