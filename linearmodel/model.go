// Package linearmodel is a collection of linear regression fitting implementations used
// by the forecaster
package linearmodel

import (
	"gonum.org/v1/gonum/mat"
)

// Model is the common interface of the matrix based regressions
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}
