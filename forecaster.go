// Package forecaster projects disease case counts forward by fitting a polynomial to the
// log of the most recent observations.
package forecaster

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-disease-tracker/linearmodel"
	"github.com/aouyang1/go-disease-tracker/stats"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/go-echarts/go-echarts/v2/components"
)

var (
	ErrInsufficientData = errors.New("at least 2 records are required to forecast")
	ErrModelFit         = errors.New("unable to fit forecast model")
	ErrInvalidHorizon   = errors.New("forecast horizon must be a positive number of days")
	ErrUntrained        = errors.New("forecaster has not been fit")
	ErrNoOptionsInModel = errors.New("no options set in model")
	ErrUninitialized    = errors.New("uninitialized forecaster")
)

const MinRecords = 2

// Forecaster fits a forecast model and can be used to generate forecasts. A Forecaster
// holds the state of its last fit and should not be shared across goroutines.
type Forecaster struct {
	opt *Options

	model *linearmodel.PolynomialRegression

	trainStart time.Time
	trainEnd   time.Time
	lastOffset float64

	fitTrainingData *timedataset.TimeDataset
	fitResults      *Results
	scores          *stats.Scores
}

// New creates a new instance of a Forecaster using the provided options. If no options are provided
// a default is used.
func New(opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Forecaster{opt: opt}, nil
}

// NewFromModel creates a new instance of Forecaster from a pre-existing model. This should be generated
// from a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	opt, err := model.Options.Validate()
	if err != nil {
		return nil, err
	}

	coef, err := model.Weights.Coefficients()
	if err != nil {
		return nil, fmt.Errorf("unable to load model weights, %w", err)
	}
	poly, err := linearmodel.NewPolynomialFromWeights(
		len(coef), model.Center, model.Scale, model.Weights.Intercept, coef,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to restore polynomial, %w", err)
	}

	f := &Forecaster{
		opt:        opt,
		model:      poly,
		trainStart: model.TrainStartTime,
		trainEnd:   model.TrainEndTime,
		lastOffset: timedataset.DayOffsetsFrom([]time.Time{model.TrainEndTime}, model.TrainStartTime)[0],
		scores:     model.Scores,
	}
	return f, nil
}

// Fit sorts the observations by date and fits the growth polynomial in log space to the
// trailing window of the series. Duplicate dates are kept as repeated observations.
func (f *Forecaster) Fit(t []time.Time, cases []float64) error {
	if f == nil || f.opt == nil {
		return ErrUninitialized
	}
	if len(cases) < MinRecords || len(t) < MinRecords {
		return fmt.Errorf("got %d records, %w", min(len(t), len(cases)), ErrInsufficientData)
	}

	td, err := timedataset.NewSortedDataset(t, cases)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}

	window := td.Tail(f.opt.WindowSize)
	offsets := timedataset.DayOffsetsFrom(window.T, td.Start())

	degree := min(f.opt.Degree, countDistinct(offsets)-1)
	if degree < 1 {
		return fmt.Errorf("all %d records fall on a single date, %w", window.Len(), ErrModelFit)
	}

	y := stats.Log1p(window.Y)
	if !stats.AllFinite(y) {
		return fmt.Errorf("case counts must be non-negative and finite, %w", ErrModelFit)
	}

	model, err := linearmodel.NewPolynomialRegression(&linearmodel.PolynomialOptions{Degree: degree})
	if err != nil {
		return fmt.Errorf("%w, %w", ErrModelFit, err)
	}
	if err := model.Fit(offsets, y); err != nil {
		return fmt.Errorf("%w, %w", ErrModelFit, err)
	}

	fitted, err := model.Predict(offsets)
	if err != nil {
		return fmt.Errorf("%w, unable to evaluate in-sample fit, %w", ErrModelFit, err)
	}
	fitted = stats.Expm1(fitted)
	if !stats.AllFinite(fitted) {
		return fmt.Errorf("non-finite in-sample fit, %w", ErrModelFit)
	}

	scores, err := stats.NewScores(fitted, window.Y)
	if err != nil {
		return fmt.Errorf("unable to score fit, %w", err)
	}

	f.model = model
	f.trainStart = td.Start()
	f.trainEnd = td.End()
	f.lastOffset = offsets[len(offsets)-1]
	f.fitTrainingData = td
	f.scores = scores
	f.fitResults = &Results{
		T:          window.T,
		Forecast:   fitted,
		Cases:      roundCases(fitted),
		Confidence: f.confidence(),
		Scores:     *scores,
	}
	return nil
}

func countDistinct(x []float64) int {
	seen := make(map[float64]struct{}, len(x))
	for _, v := range x {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Predict forecasts the horizonDays days following the last training date
func (f *Forecaster) Predict(horizonDays int) (*Results, error) {
	if f == nil || f.model == nil {
		return nil, ErrUntrained
	}
	if horizonDays <= 0 {
		return nil, fmt.Errorf("got horizon of %d, %w", horizonDays, ErrInvalidHorizon)
	}

	t := make([]time.Time, horizonDays)
	offsets := make([]float64, horizonDays)
	for i := 0; i < horizonDays; i++ {
		t[i] = f.trainEnd.AddDate(0, 0, i+1)
		offsets[i] = f.lastOffset + float64(i+1)
	}

	logPred, err := f.model.Predict(offsets)
	if err != nil {
		return nil, fmt.Errorf("%w, unable to evaluate polynomial, %w", ErrModelFit, err)
	}

	// regression extrapolation can cross zero on the raw scale
	pred := stats.ClampMin(stats.Expm1(logPred), 0)

	if f.opt.SmoothingSigma > 0 {
		pred, err = stats.GaussianSmooth(pred, f.opt.SmoothingSigma, f.opt.SmoothingTruncate)
		if err != nil {
			return nil, fmt.Errorf("unable to smooth predictions, %w", err)
		}
	}
	if !stats.AllFinite(pred) || floatsMax(pred) >= math.MaxInt64 {
		return nil, fmt.Errorf("predictions overflow the case count range, %w", ErrModelFit)
	}

	res := &Results{
		T:          t,
		Forecast:   pred,
		Cases:      roundCases(pred),
		Confidence: f.confidence(),
	}
	if f.scores != nil {
		res.Scores = *f.scores
	}
	return res, nil
}

func floatsMax(x []float64) float64 {
	m := math.Inf(-1)
	for _, v := range x {
		m = math.Max(m, v)
	}
	return m
}

func roundCases(x []float64) []int64 {
	cases := make([]int64, len(x))
	for i, v := range x {
		cases[i] = int64(math.Round(v))
	}
	return cases
}

func (f *Forecaster) confidence() float64 {
	r2 := 0.0
	if f.scores != nil {
		r2 = f.scores.R2
	}
	return stats.Clamp(r2*f.opt.ConfidenceScale, f.opt.MinConfidence, f.opt.MaxConfidence)
}

// Forecast fits the series and predicts the following horizonDays days
func (f *Forecaster) Forecast(t []time.Time, cases []float64, horizonDays int) (*Results, error) {
	if horizonDays <= 0 {
		return nil, fmt.Errorf("got horizon of %d, %w", horizonDays, ErrInvalidHorizon)
	}
	if err := f.Fit(t, cases); err != nil {
		return nil, err
	}
	return f.Predict(horizonDays)
}

// ForecastRecords forecasts the case counts of the records
func (f *Forecaster) ForecastRecords(records timedataset.Records, horizonDays int) (*Results, error) {
	return f.Forecast(records.Dates(), records.Cases(), horizonDays)
}

// Confidence returns the reported confidence of the current fit
func (f *Forecaster) Confidence() float64 {
	if f == nil || f.opt == nil {
		return 0
	}
	return f.confidence()
}

// Scores returns the in-sample fit scores on the raw case scale
func (f *Forecaster) Scores() stats.Scores {
	if f == nil || f.scores == nil {
		return stats.Scores{}
	}
	return *f.scores
}

// Model generates a serializeable representation of the fit options and polynomial weights. This
// can be used to initialize a new Forecaster for immediate predictions skipping the training step.
func (f *Forecaster) Model() (Model, error) {
	if f == nil || f.model == nil {
		return Model{}, ErrUntrained
	}

	labels := f.model.Labels()
	coef := f.model.Coef()
	fw := make([]FeatureWeight, 0, len(coef))
	for i, c := range coef {
		fw = append(fw, NewFeatureWeight(labels[i], c))
	}

	opt := *f.opt
	m := Model{
		Options:        &opt,
		TrainStartTime: f.trainStart,
		TrainEndTime:   f.trainEnd,
		Center:         f.model.Center(),
		Scale:          f.model.Scale(),
		Scores:         f.scores,
		Weights: Weights{
			Intercept: f.model.Intercept(),
			Coef:      fw,
		},
	}
	return m, nil
}

// ModelEq returns a string representation of the fit model represented as
// log1p(y) ~ b + m1*z + m2*z^2 ... where z = (day - center) / scale
func (f *Forecaster) ModelEq() (string, error) {
	if f == nil || f.model == nil {
		return "", ErrUntrained
	}

	eq := "log1p(y) ~ "
	eq += fmt.Sprintf("%.2f", f.model.Intercept())

	labels := f.model.Labels()
	for i, w := range f.model.Coef() {
		if w == 0 {
			continue
		}
		eq += fmt.Sprintf("%+.2f*%s", w, labels[i])
	}
	eq += fmt.Sprintf(", z = (day - %.1f) / %.1f", f.model.Center(), f.model.Scale())
	return eq, nil
}

// TrainingData returns the sorted training data used to fit the current forecaster model
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	return f.fitTrainingData
}

// FitResults returns the in-sample fitted values over the training window
func (f *Forecaster) FitResults() *Results {
	return f.fitResults
}

// PlotFit uses the Apache Echarts library to generate an html page showing the training data,
// the in-sample fit and a forecast horizonDays past the training data.
func (f *Forecaster) PlotFit(w io.Writer, horizonDays int) error {
	td := f.TrainingData()
	if td == nil || f.fitResults == nil {
		return ErrUntrained
	}

	forecastRes, err := f.Predict(horizonDays)
	if err != nil {
		return fmt.Errorf("unable to predict with horizon, %w", err)
	}

	page := components.NewPage()
	page.AddCharts(
		LineForecaster(td, f.fitResults, forecastRes),
	)
	return page.Render(w)
}
