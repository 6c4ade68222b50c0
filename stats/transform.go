package stats

import "math"

// Clamp limits v to the closed range [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// ClampMin replaces every value below lo with lo in place
func ClampMin(x []float64, lo float64) []float64 {
	for i, v := range x {
		if v < lo {
			x[i] = lo
		}
	}
	return x
}

// Log1p returns log(1+x) for every value
func Log1p(x []float64) []float64 {
	res := make([]float64, len(x))
	for i, v := range x {
		res[i] = math.Log1p(v)
	}
	return res
}

// Expm1 returns exp(x)-1 for every value, the inverse of Log1p
func Expm1(x []float64) []float64 {
	res := make([]float64, len(x))
	for i, v := range x {
		res[i] = math.Expm1(v)
	}
	return res
}

// AllFinite reports whether no value is NaN or infinite
func AllFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
