package volatility

import (
	"fmt"
	"math"

	"GammaDesk/internal/domain/models"
	"GammaDesk/internal/services/features"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	// garchScale rescales returns to percent before fitting.
	garchScale     = 100.0
	minGarchObs    = 30
	fallbackWindow = 20
	maxPersistence = 0.999
	garchMaxIters  = 4000
)

// GarchParams are the fitted GARCH(1,1) coefficients on percent returns.
type GarchParams struct {
	Mu            float64 `json:"mu"`
	Omega         float64 `json:"omega"`
	Alpha         float64 `json:"alpha"`
	Beta          float64 `json:"beta"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// Persistence is alpha + beta.
func (p GarchParams) Persistence() float64 { return p.Alpha + p.Beta }

// GarchFit is the conditional volatility attached to a return series.
type GarchFit struct {
	Params   *GarchParams
	Vol      []float64
	Fallback bool
	Err      error
}

// FitGARCH fits a Gaussian GARCH(1,1) by maximum likelihood on returns*100 and returns
// the conditional volatility aligned with returns (NaN where the return is NaN).
func FitGARCH(returns []float64) (GarchParams, []float64, error) {
	idx := make([]int, 0, len(returns))
	eps := make([]float64, 0, len(returns))
	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		idx = append(idx, i)
		eps = append(eps, r*garchScale)
	}
	if len(eps) < minGarchObs {
		return GarchParams{}, nil, fmt.Errorf("%w: garch needs %d returns, have %d", models.ErrModelFit, minGarchObs, len(eps))
	}
	mean, variance := stat.MeanVariance(eps, nil)
	if !(variance > 0) {
		return GarchParams{}, nil, fmt.Errorf("%w: zero return variance", models.ErrModelFit)
	}

	nll := func(x []float64) float64 {
		p := unpack(x)
		v := negLogLikelihood(eps, p, variance)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.MaxFloat64
		}
		return v
	}
	x0 := pack(GarchParams{Mu: mean, Omega: variance * 0.05, Alpha: 0.05, Beta: 0.90})
	res, err := optimize.Minimize(
		optimize.Problem{Func: nll},
		x0,
		&optimize.Settings{MajorIterations: garchMaxIters},
		&optimize.NelderMead{},
	)
	if res == nil || (err != nil && !limitReached(res.Status)) {
		return GarchParams{}, nil, fmt.Errorf("%w: %v", models.ErrModelFit, err)
	}
	p := unpack(res.X)
	p.LogLikelihood = -res.F
	if !validParams(p) {
		return GarchParams{}, nil, fmt.Errorf("%w: degenerate garch parameters %+v", models.ErrModelFit, p)
	}

	sigma2 := conditionalVariance(eps, p, variance)
	vol := make([]float64, len(returns))
	for i := range vol {
		vol[i] = math.NaN()
	}
	for k, i := range idx {
		vol[i] = math.Sqrt(sigma2[k]) / garchScale
	}
	return p, vol, nil
}

// Garch fits GARCH(1,1) and falls back to the rolling 20-day standard deviation of returns.
func Garch(returns []float64) GarchFit {
	p, vol, err := FitGARCH(returns)
	if err != nil {
		return GarchFit{Vol: features.RollingStd(returns, fallbackWindow, fallbackWindow), Fallback: true, Err: err}
	}
	return GarchFit{Params: &p, Vol: vol}
}

func conditionalVariance(eps []float64, p GarchParams, init float64) []float64 {
	s := make([]float64, len(eps))
	s[0] = init
	for t := 1; t < len(eps); t++ {
		e := eps[t-1] - p.Mu
		s[t] = p.Omega + p.Alpha*e*e + p.Beta*s[t-1]
	}
	return s
}

func negLogLikelihood(eps []float64, p GarchParams, init float64) float64 {
	s := conditionalVariance(eps, p, init)
	var ll float64
	for t, x := range eps {
		if s[t] <= 0 {
			return math.Inf(1)
		}
		e := x - p.Mu
		ll += math.Log(2*math.Pi) + math.Log(s[t]) + e*e/s[t]
	}
	return 0.5 * ll
}

// pack maps constrained parameters to the unconstrained search space:
// omega > 0 and alpha, beta >= 0 with alpha + beta < maxPersistence.
func pack(p GarchParams) []float64 {
	pers := (p.Alpha + p.Beta) / maxPersistence
	share := p.Alpha / (p.Alpha + p.Beta)
	return []float64{p.Mu, math.Log(p.Omega), logit(pers), logit(share)}
}

func unpack(x []float64) GarchParams {
	pers := maxPersistence * sigmoid(x[2])
	alpha := pers * sigmoid(x[3])
	return GarchParams{Mu: x[0], Omega: math.Exp(x[1]), Alpha: alpha, Beta: pers - alpha}
}

func validParams(p GarchParams) bool {
	for _, v := range []float64{p.Mu, p.Omega, p.Alpha, p.Beta} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return p.Omega > 0 && p.Persistence() < 1
}

func limitReached(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return true
	}
	return false
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
func logit(p float64) float64   { return math.Log(p / (1 - p)) }
