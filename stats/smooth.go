// Package stats contains the numeric helpers shared by the forecaster: smoothing,
// range clamping, log transforms, and fit scores.
package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultTruncate is the number of standard deviations the Gaussian kernel extends on
// either side of its center
const DefaultTruncate = 4.0

var ErrInvalidSigma = errors.New("gaussian sigma must be positive")

// GaussianKernel returns the normalized Gaussian weights for offsets -r..r where
// r = int(truncate*sigma + 0.5)
func GaussianKernel(sigma, truncate float64) ([]float64, error) {
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, ErrInvalidSigma
	}
	if truncate <= 0 {
		truncate = DefaultTruncate
	}
	radius := int(truncate*sigma + 0.5)

	kernel := make([]float64, 2*radius+1)
	for i := -radius; i <= radius; i++ {
		x := float64(i)
		kernel[i+radius] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1.0/floats.Sum(kernel), kernel)
	return kernel, nil
}

// reflectIndex mirrors an out of range index back into [0, n) repeating the edge
// sample, e.g. (d c b a | a b c d | d c b a)
func reflectIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// GaussianSmooth applies a 1-D Gaussian filter to x with reflected boundaries and
// returns a new slice. Sequences of length 0 or 1 are returned as copies.
func GaussianSmooth(x []float64, sigma, truncate float64) ([]float64, error) {
	kernel, err := GaussianKernel(sigma, truncate)
	if err != nil {
		return nil, err
	}

	n := len(x)
	res := make([]float64, n)
	if n <= 1 {
		copy(res, x)
		return res, nil
	}

	radius := len(kernel) / 2
	for i := 0; i < n; i++ {
		var sum float64
		for k := -radius; k <= radius; k++ {
			sum += kernel[k+radius] * x[reflectIndex(i+k, n)]
		}
		res[i] = sum
	}
	return res, nil
}
