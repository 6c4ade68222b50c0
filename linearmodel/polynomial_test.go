package linearmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolynomialOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *PolynomialOptions
		err      error
		expected *PolynomialOptions
	}{
		"nil": {nil, nil, NewDefaultPolynomialOptions()},
		"invalid degree": {
			opt: &PolynomialOptions{Degree: 0},
			err: ErrInvalidDegree,
		},
		"forces intercept": {
			opt: &PolynomialOptions{
				Degree: 2,
				OLS:    &OLSOptions{FitIntercept: false},
			},
			expected: &PolynomialOptions{
				Degree: 2,
				OLS:    &OLSOptions{FitIntercept: true, RankTolerance: DefaultRankTolerance},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestPolynomialRegressionFit(t *testing.T) {
	// y = 1 - 2x + 0.5x^2 + 0.01x^3 over a wide regressor range
	x := make([]float64, 0, 50)
	y := make([]float64, 0, 50)
	for i := 0; i < 50; i++ {
		v := float64(i * 30)
		x = append(x, v)
		y = append(y, 1-2*v+0.5*v*v+0.01*v*v*v)
	}

	model, err := NewPolynomialRegression(nil)
	require.Nil(t, err)
	require.Nil(t, model.Fit(x, y))

	assert.Equal(t, 3, model.Degree())
	assert.InDelta(t, 735.0, model.Center(), 1e-9)
	assert.InDelta(t, 735.0, model.Scale(), 1e-9)

	r2, err := model.Score(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, r2, 1e-9)

	future := []float64{1500, 1530}
	res, err := model.Predict(future)
	require.Nil(t, err)
	for i, v := range future {
		expected := 1 - 2*v + 0.5*v*v + 0.01*v*v*v
		assert.InDelta(t, expected, res[i], math.Abs(expected)*1e-8)
	}

	labels := model.Labels()
	require.Len(t, labels, 3)
	assert.Equal(t, "growth_cubic", labels[2].String())
}

func TestPolynomialRegressionConstant(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	y := []float64{4, 4, 4, 4, 4, 4, 4, 4}

	model, err := NewPolynomialRegression(nil)
	require.Nil(t, err)
	require.Nil(t, model.Fit(x, y))

	assert.InDelta(t, 4.0, model.Intercept(), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, model.Coef(), 1e-9)

	res, err := model.Predict([]float64{8, 30})
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{4, 4}, res, 1e-6)
}

func TestPolynomialRegressionErrors(t *testing.T) {
	testData := map[string]struct {
		degree int
		x      []float64
		y      []float64
		err    error
	}{
		"empty": {
			degree: 3,
			err:    ErrNoTrainingMatrix,
		},
		"length mismatch": {
			degree: 3,
			x:      []float64{1, 2},
			y:      []float64{1},
			err:    ErrTargetLenMismatch,
		},
		"no spread": {
			degree: 1,
			x:      []float64{3, 3, 3},
			y:      []float64{1, 2, 3},
			err:    ErrSingularMatrix,
		},
		"too few points for degree": {
			degree: 3,
			x:      []float64{0, 1, 2},
			y:      []float64{1, 2, 3},
			err:    ErrUnderdetermined,
		},
		"repeated points for degree": {
			degree: 3,
			x:      []float64{0, 0, 1, 1, 2, 2},
			y:      []float64{1, 1, 2, 2, 3, 3},
			err:    ErrSingularMatrix,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			model, err := NewPolynomialRegression(&PolynomialOptions{Degree: td.degree})
			require.Nil(t, err)
			assert.ErrorIs(t, model.Fit(td.x, td.y), td.err)
		})
	}
}

func TestNewPolynomialFromWeights(t *testing.T) {
	model, err := NewPolynomialFromWeights(2, 10, 5, 1, []float64{2, 3})
	require.Nil(t, err)

	// z = (x-10)/5, y = 1 + 2z + 3z^2
	res, err := model.Predict([]float64{10, 15, 5})
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{1, 6, 2}, res, 1e-12)

	_, err = NewPolynomialFromWeights(3, 0, 1, 0, []float64{1})
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	_, err = NewPolynomialFromWeights(1, 0, 0, 0, []float64{1})
	assert.ErrorIs(t, err, ErrSingularMatrix)
}
