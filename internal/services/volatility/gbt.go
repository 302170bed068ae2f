package volatility

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// GBTParams configures the gradient-boosted tree regressor.
type GBTParams struct {
	Trees          int
	MaxDepth       int
	LearningRate   float64
	Subsample      float64
	ColSample      float64
	Alpha          float64
	Lambda         float64
	MinChildWeight float64
	Seed           int64
}

// DefaultGBTParams mirrors the production regressor settings.
func DefaultGBTParams() GBTParams {
	return GBTParams{
		Trees:          200,
		MaxDepth:       8,
		LearningRate:   0.05,
		Subsample:      0.8,
		ColSample:      0.8,
		Alpha:          0.1,
		Lambda:         0.1,
		MinChildWeight: 1,
		Seed:           42,
	}
}

type treeNode struct {
	feature     int
	threshold   float64
	left, right *treeNode
	leaf        bool
	value       float64
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// GBT is a squared-error gradient-boosted tree ensemble with L1/L2 leaf regularization.
// A fitted model is not shared across requests.
type GBT struct {
	params GBTParams
	base   float64
	trees  []*treeNode
}

// FitGBT trains on X (rows x features) against y. Training is deterministic for a given seed.
func FitGBT(X [][]float64, y []float64, p GBTParams) (*GBT, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.New("gbt: empty or misaligned training set")
	}
	nFeat := len(X[0])
	if nFeat == 0 {
		return nil, errors.New("gbt: no features")
	}
	rng := rand.New(rand.NewSource(p.Seed))

	var base float64
	for _, v := range y {
		base += v
	}
	base /= float64(len(y))

	m := &GBT{params: p, base: base}
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = base
	}
	grad := make([]float64, len(y))

	nRows := max(1, int(math.Round(p.Subsample*float64(len(y)))))
	nCols := max(1, int(math.Round(p.ColSample*float64(nFeat))))
	b := &builder{X: X, grad: grad, p: p}
	for t := 0; t < p.Trees; t++ {
		for i := range grad {
			grad[i] = pred[i] - y[i]
		}
		rows := rng.Perm(len(y))[:nRows]
		b.cols = rng.Perm(nFeat)[:nCols]
		sort.Ints(b.cols)
		tree := b.build(rows, 0)
		m.trees = append(m.trees, tree)
		for i := range pred {
			pred[i] += p.LearningRate * tree.predict(X[i])
		}
	}
	return m, nil
}

// Predict evaluates one feature row.
func (m *GBT) Predict(x []float64) float64 {
	out := m.base
	for _, t := range m.trees {
		out += m.params.LearningRate * t.predict(x)
	}
	return out
}

// Trees is the number of fitted trees.
func (m *GBT) Trees() int { return len(m.trees) }

type builder struct {
	X    [][]float64
	grad []float64
	cols []int
	p    GBTParams
}

// With squared error every hessian is 1, so H is the row count.
func (b *builder) build(rows []int, depth int) *treeNode {
	var G float64
	for _, i := range rows {
		G += b.grad[i]
	}
	H := float64(len(rows))
	leaf := &treeNode{leaf: true, value: b.weight(G, H)}
	if depth >= b.p.MaxDepth || H < 2*b.p.MinChildWeight {
		return leaf
	}

	parent := b.score(G, H)
	bestGain := 0.0
	bestFeat, bestThr := -1, 0.0
	sorted := make([]int, len(rows))
	for _, f := range b.cols {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })
		var gl float64
		for k := 0; k < len(sorted)-1; k++ {
			gl += b.grad[sorted[k]]
			hl := float64(k + 1)
			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			hr := H - hl
			if hl < b.p.MinChildWeight || hr < b.p.MinChildWeight {
				continue
			}
			gain := 0.5 * (b.score(gl, hl) + b.score(G-gl, hr) - parent)
			if gain > bestGain {
				bestGain, bestFeat, bestThr = gain, f, (cur+next)/2
			}
		}
	}
	if bestFeat < 0 {
		return leaf
	}

	var left, right []int
	for _, i := range rows {
		if b.X[i][bestFeat] < bestThr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   bestFeat,
		threshold: bestThr,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
	}
}

func (b *builder) threshold(G float64) float64 {
	switch {
	case G > b.p.Alpha:
		return G - b.p.Alpha
	case G < -b.p.Alpha:
		return G + b.p.Alpha
	default:
		return 0
	}
}

func (b *builder) score(G, H float64) float64 {
	t := b.threshold(G)
	return t * t / (H + b.p.Lambda)
}

func (b *builder) weight(G, H float64) float64 {
	return -b.threshold(G) / (H + b.p.Lambda)
}
