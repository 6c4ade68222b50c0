package linearmodel

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultRankTolerance is the smallest ratio of an R diagonal entry to the largest one
// before the design matrix is treated as rank deficient.
const DefaultRankTolerance = 1e-10

// OLSOptions represents input options to run the OLS Regression
type OLSOptions struct {
	// FitIntercept adds a constant 1.0 feature as the first column if set to true
	FitIntercept bool

	// RankTolerance is the relative threshold on the diagonal of R below which the
	// fit is rejected as singular
	RankTolerance float64
}

// Validate runs basic validation on OLS options
func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		o = NewDefaultOLSOptions()
	}
	if o.RankTolerance <= 0 {
		o.RankTolerance = DefaultRankTolerance
	}

	return o, nil
}

// NewDefaultOLSOptions returns a default set of OLS Regression options
func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept:  true,
		RankTolerance: DefaultRankTolerance,
	}
}

// OLSRegression solves ordinary least squares through a QR factorization of the design
// matrix. The normal equations are never formed.
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
	fit       bool
}

// NewOLSRegression initializes an ordinary least squares model ready for fitting
func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{opt: opt}, nil
}

// prependOnes returns x with a leading column of ones for the intercept
func prependOnes(x mat.Matrix) *mat.Dense {
	m, n := x.Dims()
	d := mat.NewDense(m, n+1, nil)
	for i := 0; i < m; i++ {
		d.Set(i, 0, 1)
	}
	if n > 0 {
		d.Slice(0, m, 1, n+1).(*mat.Dense).Copy(x)
	}
	return d
}

// checkRank rejects designs whose R factor has a diagonal entry that is negligible
// against the largest one
func (o *OLSRegression) checkRank(qr *mat.QR, n int) error {
	var r mat.Dense
	qr.RTo(&r)

	diag := make([]float64, n)
	for i := range diag {
		diag[i] = math.Abs(r.At(i, i))
	}
	limit := floats.Max(diag) * o.opt.RankTolerance
	for i, d := range diag {
		if d == 0 || d <= limit {
			return fmt.Errorf("column %d of %d, %w", i, n, ErrSingularMatrix)
		}
	}
	return nil
}

// Fit the model to the design x and the single column target y
func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	xm, _ := x.Dims()
	if ym, _ := y.Dims(); ym != xm {
		return fmt.Errorf("training data has %d rows and target has %d rows, %w", xm, ym, ErrTargetLenMismatch)
	}

	design := x
	if o.opt.FitIntercept {
		design = prependOnes(x)
	}
	m, n := design.Dims()
	if m < n {
		return fmt.Errorf("got %d observations for %d coefficients, %w", m, n, ErrUnderdetermined)
	}

	var qr mat.QR
	qr.Factorize(design)
	if err := o.checkRank(&qr, n); err != nil {
		return err
	}

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return fmt.Errorf("unable to solve least squares, %v, %w", err, ErrSingularMatrix)
	}
	c := mat.Col(nil, 0, &beta)
	for i, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("coefficient %d is %f, %w", i, v, ErrNonFiniteCoef)
		}
	}

	o.intercept = 0
	if o.opt.FitIntercept {
		o.intercept, c = c[0], c[1:]
	}
	o.coef = c
	o.fit = true
	return nil
}

// Predict evaluates the fitted model on each row of x
func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if !o.fit {
		return nil, ErrNotFit
	}

	m, n := x.Dims()
	if n != len(o.coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(o.coef), ErrFeatureLenMismatch)
	}

	res := make([]float64, m)
	if n > 0 {
		yhat := mat.NewVecDense(m, res)
		yhat.MulVec(x, mat.NewVecDense(n, o.Coef()))
	}
	floats.AddConst(o.intercept, res)
	return res, nil
}

// Score computes the coefficient of determination of the prediction
func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	if o.opt == nil {
		return 0.0, ErrNoOptions
	}
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}
	xm, _ := x.Dims()
	if ym, _ := y.Dims(); xm != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", xm, ym, ErrTargetLenMismatch)
	}

	res, err := o.Predict(x)
	if err != nil {
		return 0.0, err
	}
	return stat.RSquaredFrom(res, mat.Col(nil, 0, y), nil), nil
}

// Intercept returns the fit constant term, 0 unless FitIntercept is set
func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

// Coef returns a copy of the coefficients in design matrix column order
func (o *OLSRegression) Coef() []float64 {
	return slices.Clone(o.coef)
}

// SetWeights loads a previously fit intercept and coefficients so the model can be
// used for inference without training.
func (o *OLSRegression) SetWeights(intercept float64, coef []float64) {
	o.intercept = intercept
	o.coef = slices.Clone(coef)
	o.fit = true
}
