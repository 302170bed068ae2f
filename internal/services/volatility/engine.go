package volatility

import (
	"context"
	"errors"
	"fmt"
	"math"

	"GammaDesk/internal/domain/models"
	"GammaDesk/internal/services/features"
	"GammaDesk/pkg/logger"
)

const (
	// MinBars is the shortest price history the engine accepts.
	MinBars = 60
	// MinTrainRows is the number of complete feature rows required to fit the regressor.
	MinTrainRows = 100
	trainShare   = 0.8
)

var errTooFewRows = errors.New("too few rows to train the regressor")

// ModelInfo describes how the hybrid series was produced.
type ModelInfo struct {
	Garch        *GarchParams `json:"garch"`
	GarchFailed  bool         `json:"garch_fallback"`
	Trained      bool         `json:"regressor_trained"`
	TrainRows    int          `json:"train_rows"`
	TestRows     int          `json:"test_rows"`
	TestRMSE     *float64     `json:"test_rmse"`
	Trees        int          `json:"trees"`
	FeatureCount int          `json:"feature_count"`
}

// Result is the output of one band computation.
type Result struct {
	Rows     []BandRow       `json:"rows"`
	Latest   BandRow         `json:"latest"`
	Position Position        `json:"position"`
	Realized map[int]float64 `json:"realized_vol"`
	Model    ModelInfo       `json:"model"`
	Degraded bool            `json:"degraded"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Engine computes hybrid GARCH/regressor volatility bands. It holds no fitted state.
type Engine struct {
	params GBTParams
	log    *logger.Logger
	garch  func(returns []float64) GarchFit
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(params GBTParams, l *logger.Logger) *Engine {
	if l == nil {
		l = logger.NewNop()
	}
	return &Engine{params: params, log: l, garch: Garch}
}

// Compute runs GARCH, feature engineering, the regressor, the hybrid blend and the bands.
func (e *Engine) Compute(ctx context.Context, bars []models.Bar) (Result, error) {
	var res Result
	bars = features.CleanBars(bars)
	if len(bars) < MinBars {
		return res, &models.InsufficientHistoryError{Available: len(bars), Required: MinBars}
	}
	returns := features.ComputeLogReturns(bars)

	fit := e.garch(returns)
	if fit.Fallback {
		res.Degraded = true
		res.Model.GarchFailed = true
		res.Warnings = append(res.Warnings, "garch fit failed, using rolling std")
		e.log.Warn("garch fit failed, falling back to rolling std", logger.Error(fit.Err))
	}
	res.Model.Garch = fit.Params
	if err := ctx.Err(); err != nil {
		return res, err
	}

	frame := features.Build(bars, returns, fit.Vol)
	res.Model.FeatureCount = len(features.Columns)
	var (
		xgb []float64
		err error
	)
	if fit.Fallback {
		// no regressor on the fallback series; xgb mirrors garch row for row
		xgb = append([]float64(nil), fit.Vol...)
	} else {
		xgb, err = e.regress(frame, &res.Model)
	}
	switch {
	case errors.Is(err, errTooFewRows):
		e.log.Info("too few rows for the regressor, using garch volatility", logger.Int("rows", len(frame.CompleteRows())))
	case err != nil:
		res.Degraded = true
		res.Warnings = append(res.Warnings, err.Error())
		e.log.Warn("regressor skipped, using garch volatility", logger.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	blend := HybridWeights(fit.Vol, xgb)
	rows := make([]BandRow, frame.Len())
	for i := range rows {
		rows[i] = BandRow{
			Date:      frame.Dates[i],
			Close:     frame.Close[i],
			GarchVol:  fit.Vol[i],
			XGBVol:    xgb[i],
			HybridVol: blend.Hybrid[i],
			WGarch:    blend.WGarch[i],
		}
	}
	res.Rows = BuildBands(rows)
	if len(res.Rows) == 0 {
		return res, fmt.Errorf("%w: no complete reference month", models.ErrInsufficientHistory)
	}
	res.Latest = res.Rows[len(res.Rows)-1]
	res.Position = Classify(res.Latest)

	res.Realized = make(map[int]float64, len(features.RealizedWindows))
	for _, w := range features.RealizedWindows {
		if s := frame.Realized[w]; len(s) > 0 && !math.IsNaN(s[len(s)-1]) {
			res.Realized[w] = s[len(s)-1]
		}
	}
	return res, nil
}

// regress fits the regressor on the first 80% of complete rows and predicts the rest.
// Rows outside the test slice carry the GARCH volatility. Non-positive predictions fall
// back to GARCH as well.
func (e *Engine) regress(f features.Frame, info *ModelInfo) ([]float64, error) {
	out := make([]float64, f.Len())
	copy(out, f.GarchVol)

	idx := f.CompleteRows()
	if len(idx) < MinTrainRows {
		return out, errTooFewRows
	}
	split := int(float64(len(idx)) * trainShare)
	train, test := idx[:split], idx[split:]

	X := make([][]float64, len(train))
	y := make([]float64, len(train))
	for k, i := range train {
		X[k], y[k] = f.Rows[i], f.GarchVol[i]
	}
	scaler := FitRobustScaler(X)
	model, err := FitGBT(scaler.Transform(X), y, e.params)
	if err != nil {
		return out, fmt.Errorf("%w: %v", models.ErrModelFit, err)
	}

	var se float64
	for _, i := range test {
		p := model.Predict(scaler.TransformRow(f.Rows[i]))
		if !(p > 0) || math.IsInf(p, 0) {
			continue
		}
		out[i] = p
		se += (p - f.GarchVol[i]) * (p - f.GarchVol[i])
	}
	info.Trained = true
	info.TrainRows, info.TestRows = len(train), len(test)
	info.Trees = model.Trees()
	if len(test) > 0 {
		rmse := math.Sqrt(se / float64(len(test)))
		info.TestRMSE = &rmse
	}
	return out, nil
}
