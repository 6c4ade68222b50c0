package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateDates returns n calendar dates starting at start spaced stepDays apart
func GenerateDates(start time.Time, n, stepDays int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.AddDate(0, 0, i*stepDays))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func (s Series) Mul(src Series) Series {
	floats.Mul(s, src)
	return s
}

// Records pairs the series with the time points as case counts rounded to the nearest
// whole number. Negative values are floored at zero.
func (s Series) Records(t []time.Time) Records {
	n := min(len(s), len(t))
	r := make(Records, n)
	for i := 0; i < n; i++ {
		r[i] = Record{Date: t[i], Cases: int64(math.Max(0, math.Round(s[i])))}
	}
	return r
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateGrowthY compounds start by rate at every point, start*(1+rate)^i
func GenerateGrowthY(n int, start, rate float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, start*math.Pow(1+rate, float64(i)))
	}
	return Series(y)
}

// GenerateLinearY returns start+slope*i
func GenerateLinearY(n int, start, slope float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, start+slope*float64(i))
	}
	return Series(y)
}

// GenerateNoise returns n uniform draws in [lo, hi) from rng
func GenerateNoise(n int, lo, hi float64, rng *rand.Rand) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, lo+rng.Float64()*(hi-lo))
	}
	return Series(y)
}
