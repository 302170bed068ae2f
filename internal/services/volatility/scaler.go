package volatility

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RobustScaler centers features on the median and scales by the interquartile range.
type RobustScaler struct {
	Center []float64
	Scale  []float64
}

// FitRobustScaler learns per-column median and IQR. Columns with zero IQR keep scale 1.
func FitRobustScaler(X [][]float64) *RobustScaler {
	if len(X) == 0 {
		return &RobustScaler{}
	}
	cols := len(X[0])
	s := &RobustScaler{Center: make([]float64, cols), Scale: make([]float64, cols)}
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		sort.Float64s(col)
		q1 := stat.Quantile(0.25, stat.Empirical, col, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, col, nil)
		s.Center[j] = stat.Quantile(0.5, stat.Empirical, col, nil)
		s.Scale[j] = q3 - q1
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return s
}

// Transform returns scaled copies of the rows.
func (s *RobustScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}
	return out
}

// TransformRow scales one row.
func (s *RobustScaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, x := range row {
		out[j] = (x - s.Center[j]) / s.Scale[j]
	}
	return out
}
