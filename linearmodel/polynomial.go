package linearmodel

import (
	"fmt"
	"slices"

	"github.com/aouyang1/go-disease-tracker/feature"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PolynomialOptions configures a single regressor polynomial fit
type PolynomialOptions struct {
	Degree int
	OLS    *OLSOptions
}

// NewDefaultPolynomialOptions returns a cubic fit with an intercept
func NewDefaultPolynomialOptions() *PolynomialOptions {
	return &PolynomialOptions{
		Degree: 3,
		OLS:    NewDefaultOLSOptions(),
	}
}

// Validate runs basic validation on the polynomial options
func (o *PolynomialOptions) Validate() (*PolynomialOptions, error) {
	if o == nil {
		o = NewDefaultPolynomialOptions()
	}
	if o.Degree < 1 {
		return nil, fmt.Errorf("got degree %d, %w", o.Degree, ErrInvalidDegree)
	}
	ols, err := o.OLS.Validate()
	if err != nil {
		return nil, err
	}
	// the intercept is always fit so the growth terms stay centered
	ols.FitIntercept = true
	o.OLS = ols
	return o, nil
}

// PolynomialRegression fits y = b + c1*z + c2*z^2 + ... + cd*z^d where z is the input
// regressor centered on its midpoint and scaled to the unit interval. Scaling keeps the
// normal equations well conditioned when x spans thousands of days.
type PolynomialRegression struct {
	opt    *PolynomialOptions
	ols    *OLSRegression
	labels feature.Labels
	center float64
	scale  float64
}

// NewPolynomialRegression initializes a polynomial regression ready for fitting
func NewPolynomialRegression(opt *PolynomialOptions) (*PolynomialRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	ols, err := NewOLSRegression(opt.OLS)
	if err != nil {
		return nil, err
	}
	return &PolynomialRegression{
		opt:   opt,
		ols:   ols,
		scale: 1.0,
	}, nil
}

// NewPolynomialFromWeights restores a fitted polynomial from its serialized weights
func NewPolynomialFromWeights(degree int, center, scale, intercept float64, coef []float64) (*PolynomialRegression, error) {
	if len(coef) != degree {
		return nil, fmt.Errorf("got %d coefficients for degree %d, %w", len(coef), degree, ErrFeatureLenMismatch)
	}
	if scale == 0 {
		return nil, fmt.Errorf("zero scale, %w", ErrSingularMatrix)
	}
	p, err := NewPolynomialRegression(&PolynomialOptions{Degree: degree})
	if err != nil {
		return nil, err
	}
	p.center = center
	p.scale = scale
	p.labels = feature.Polynomial(nil, degree).Labels()
	p.ols.SetWeights(intercept, coef)
	return p, nil
}

func (p *PolynomialRegression) normalize(x []float64) []float64 {
	z := make([]float64, len(x))
	copy(z, x)
	floats.AddConst(-p.center, z)
	floats.Scale(1.0/p.scale, z)
	return z
}

func (p *PolynomialRegression) design(x []float64) *mat.Dense {
	return feature.Polynomial(p.normalize(x), p.opt.Degree).Matrix(false)
}

// Fit the polynomial to the observations y taken at x
func (p *PolynomialRegression) Fit(x, y []float64) error {
	if p == nil || p.opt == nil {
		return ErrNoOptions
	}
	if len(x) == 0 {
		return ErrNoTrainingMatrix
	}
	if len(x) != len(y) {
		return fmt.Errorf("regressor has %d values and target has %d, %w", len(x), len(y), ErrTargetLenMismatch)
	}

	minX, maxX := floats.Min(x), floats.Max(x)
	p.center = (maxX + minX) / 2.0
	p.scale = (maxX - minX) / 2.0
	if p.scale == 0 {
		return fmt.Errorf("regressor has no spread, %w", ErrSingularMatrix)
	}

	set := feature.Polynomial(p.normalize(x), p.opt.Degree)
	p.labels = set.Labels()

	target := mat.NewDense(len(y), 1, append([]float64(nil), y...))
	if err := p.ols.Fit(set.Matrix(false), target); err != nil {
		return fmt.Errorf("unable to fit degree %d polynomial, %w", p.opt.Degree, err)
	}
	return nil
}

// Predict evaluates the fitted polynomial at every x
func (p *PolynomialRegression) Predict(x []float64) ([]float64, error) {
	if p == nil || p.opt == nil {
		return nil, ErrNoOptions
	}
	if len(x) == 0 {
		return []float64{}, nil
	}
	return p.ols.Predict(p.design(x))
}

// Score computes the coefficient of determination of the fit against y
func (p *PolynomialRegression) Score(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0.0, fmt.Errorf("regressor has %d values and target has %d, %w", len(x), len(y), ErrTargetLenMismatch)
	}
	res, err := p.Predict(x)
	if err != nil {
		return 0.0, err
	}
	return stat.RSquaredFrom(res, y, nil), nil
}

// Degree returns the polynomial degree
func (p *PolynomialRegression) Degree() int {
	return p.opt.Degree
}

// Center returns the value subtracted from the regressor before scaling
func (p *PolynomialRegression) Center() float64 {
	return p.center
}

// Scale returns the divisor applied to the centered regressor
func (p *PolynomialRegression) Scale() float64 {
	return p.scale
}

// Intercept returns the constant term of the polynomial in the normalized regressor
func (p *PolynomialRegression) Intercept() float64 {
	return p.ols.Intercept()
}

// Coef returns the coefficients of z^1 through z^d
func (p *PolynomialRegression) Coef() []float64 {
	return p.ols.Coef()
}

// Labels returns the growth features in coefficient order
func (p *PolynomialRegression) Labels() feature.Labels {
	return slices.Clone(p.labels)
}
