package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Scores are the in-sample fit quality of a forecast
type Scores struct {
	MSE  float64 `json:"mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores scores the predicted values against the actual ones. Positions where either
// side is NaN are ignored by every score.
func NewScores(predicted, actual []float64) (*Scores, error) {
	p, a, err := observed(predicted, actual)
	if err != nil {
		return nil, err
	}
	return &Scores{
		MSE:  mse(p, a),
		MAPE: mape(p, a),
		R2:   rSquared(p, a),
	}, nil
}

// observed returns copies of the pairs where both values are numbers
func observed(predicted, actual []float64) ([]float64, []float64, error) {
	if len(predicted) != len(actual) {
		return nil, nil, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	p := make([]float64, 0, len(actual))
	a := make([]float64, 0, len(actual))
	for i, y := range actual {
		if math.IsNaN(y) || math.IsNaN(predicted[i]) {
			continue
		}
		p = append(p, predicted[i])
		a = append(a, y)
	}
	return p, a, nil
}

// MSE is the mean of (y-yhat)^2. 0 is a perfect match.
func MSE(predicted, actual []float64) (float64, error) {
	p, a, err := observed(predicted, actual)
	if err != nil {
		return 0, err
	}
	return mse(p, a), nil
}

func mse(p, a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	d := floats.SubTo(make([]float64, len(a)), a, p)
	return floats.Dot(d, d) / float64(len(a))
}

// MAPE is the mean of |(y-yhat)/y| over the observations with a non-zero y. 0 is a
// perfect match.
func MAPE(predicted, actual []float64) (float64, error) {
	p, a, err := observed(predicted, actual)
	if err != nil {
		return 0, err
	}
	return mape(p, a), nil
}

func mape(p, a []float64) float64 {
	var sum float64
	var n int
	for i, y := range a {
		if y == 0 {
			continue
		}
		sum += math.Abs((y - p[i]) / y)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// RSquared is the coefficient of determination where 1.0 is a perfect fit. A constant
// actual series has no variance to explain and scores 1.0.
func RSquared(predicted, actual []float64) (float64, error) {
	p, a, err := observed(predicted, actual)
	if err != nil {
		return 0, err
	}
	return rSquared(p, a), nil
}

func rSquared(p, a []float64) float64 {
	if len(a) == 0 {
		return 1.0
	}
	r2 := stat.RSquaredFrom(p, a, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 1.0
	}
	return r2
}
