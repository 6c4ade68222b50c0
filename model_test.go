package forecaster

import (
	"bytes"
	"testing"
	"time"

	"github.com/aouyang1/go-disease-tracker/feature"
	"github.com/aouyang1/go-disease-tracker/stats"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRoundTrip(t *testing.T) {
	tSeries, y := monthlyGrowthSeries()

	f, err := New(nil)
	require.Nil(t, err)
	expected, err := f.Forecast(tSeries, y, 60)
	require.Nil(t, err)

	m, err := f.Model()
	require.Nil(t, err)
	assert.Equal(t, tSeries[0], m.TrainStartTime)
	assert.Equal(t, tSeries[len(tSeries)-1], m.TrainEndTime)
	require.Len(t, m.Weights.Coef, 3)

	out, err := json.Marshal(m)
	require.Nil(t, err)

	var loaded Model
	require.Nil(t, json.Unmarshal(out, &loaded))

	restored, err := NewFromModel(loaded)
	require.Nil(t, err)

	res, err := restored.Predict(60)
	require.Nil(t, err)
	assert.Equal(t, expected.T, res.T)
	assert.Equal(t, expected.Cases, res.Cases)
	assert.InDeltaSlice(t, expected.Forecast, res.Forecast, 1e-6)
	assert.Equal(t, expected.Confidence, res.Confidence)
}

func TestNewFromModelErrors(t *testing.T) {
	testData := map[string]struct {
		m   Model
		err error
	}{
		"no options": {
			err: ErrNoOptionsInModel,
		},
		"invalid options": {
			m:   Model{Options: &Options{}},
			err: ErrInvalidOptions,
		},
		"unknown feature type": {
			m: Model{
				Options: NewDefaultOptions(),
				Scale:   1,
				Weights: Weights{Coef: []FeatureWeight{{Type: "seasonality", Value: 1}}},
			},
			err: ErrUnknownFeatureType,
		},
		"missing power": {
			m: Model{
				Options: NewDefaultOptions(),
				Scale:   1,
				Weights: Weights{Coef: []FeatureWeight{
					NewFeatureWeight(feature.Linear(), 1),
					NewFeatureWeight(feature.Cubic(), 1),
				}},
			},
			err: ErrMissingGrowthPower,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := NewFromModel(td.m)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestWeightsCoefficients(t *testing.T) {
	w := Weights{
		Intercept: 4,
		Coef: []FeatureWeight{
			NewFeatureWeight(feature.Quadratic(), 2),
			NewFeatureWeight(feature.Linear(), 1),
		},
	}
	coef, err := w.Coefficients()
	require.Nil(t, err)
	assert.Equal(t, []float64{1, 2}, coef)
}

func TestModelTablePrint(t *testing.T) {
	m := Model{
		Options:        NewDefaultOptions(),
		TrainStartTime: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		TrainEndTime:   time.Date(1970, 6, 30, 0, 0, 0, 0, time.UTC),
		Center:         90,
		Scale:          90,
		Scores: &stats.Scores{
			MAPE: 0.1234,
			MSE:  1.2345,
			R2:   0.0123,
		},
		Weights: Weights{
			Intercept: 4.5,
			Coef: []FeatureWeight{
				NewFeatureWeight(feature.Linear(), 0.25),
				NewFeatureWeight(feature.Quadratic(), 0),
			},
		},
	}

	var buf bytes.Buffer
	require.Nil(t, m.TablePrint(&buf, "", "  "))
	out := buf.String()

	assert.Contains(t, out, "Forecaster:\n")
	assert.Contains(t, out, "  Training Start Time: 1970-01-01 00:00:00 +0000 UTC\n")
	assert.Contains(t, out, "  Training End Time: 1970-06-30 00:00:00 +0000 UTC\n")
	assert.Contains(t, out, "  Window Size: 180    Degree: 3\n")
	assert.Contains(t, out, "  MAPE: 0.123    MSE: 1.234    R2: 0.012\n")
	assert.Contains(t, out, "Weights:\n")
	assert.Regexp(t, `Intercept\s+4\.500`, out)
	assert.Regexp(t, `growth\s+\{"name":"linear","power":"1"\}\s+0\.250`, out)
	assert.Regexp(t, `growth\s+\{"name":"quadratic","power":"2"\}\s+\.\.\.`, out)
}

func TestModelEq(t *testing.T) {
	f, err := New(nil)
	require.Nil(t, err)

	_, err = f.ModelEq()
	assert.ErrorIs(t, err, ErrUntrained)

	tSeries, y := monthlyGrowthSeries()
	require.Nil(t, f.Fit(tSeries, y))

	eq, err := f.ModelEq()
	require.Nil(t, err)
	assert.Regexp(t, `^log1p\(y\) ~ -?\d+\.\d{2}`, eq)
	assert.Contains(t, eq, "*growth_linear")
	assert.Contains(t, eq, "z = (day - ")
}
