package util

import "math"

// IsFinite reports whether x is neither NaN nor ±Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Finite returns x, or 0 when x is NaN or infinite. Use only for summable totals.
func Finite(x float64) float64 {
	if IsFinite(x) {
		return x
	}
	return 0
}

// Nullable returns a pointer to x, or nil when x is NaN or infinite.
func Nullable(x float64) *float64 {
	if !IsFinite(x) {
		return nil
	}
	return &x
}

// SafeDiv returns a/b, or def when b is zero or the result is not finite.
func SafeDiv(a, b, def float64) float64 {
	if b == 0 {
		return def
	}
	r := a / b
	if !IsFinite(r) {
		return def
	}
	return r
}
