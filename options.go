package forecaster

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-disease-tracker/stats"
)

var ErrInvalidOptions = errors.New("invalid forecaster options")

const (
	DefaultWindowSize        = 180
	DefaultDegree            = 3
	DefaultSmoothingSigma    = 2.0
	DefaultSmoothingTruncate = stats.DefaultTruncate
	DefaultConfidenceScale   = 1.5
	DefaultMinConfidence     = 0.70
	DefaultMaxConfidence     = 0.95
)

// Options configures the forecaster fit and the post processing of its predictions
type Options struct {
	// WindowSize is the number of most recent records used for the fit
	WindowSize int `json:"window_size"`

	// Degree of the polynomial fit in log space. Series with fewer distinct dates
	// fall back to the highest degree they can support.
	Degree int `json:"degree"`

	// SmoothingSigma is the standard deviation in days of the Gaussian filter run over
	// the predictions. Zero disables smoothing.
	SmoothingSigma    float64 `json:"smoothing_sigma"`
	SmoothingTruncate float64 `json:"smoothing_truncate"`

	// Confidence is reported as clamp(R2*ConfidenceScale, MinConfidence, MaxConfidence)
	ConfidenceScale float64 `json:"confidence_scale"`
	MinConfidence   float64 `json:"min_confidence"`
	MaxConfidence   float64 `json:"max_confidence"`
}

// NewDefaultOptions returns the options used by the disease dashboard
func NewDefaultOptions() *Options {
	return &Options{
		WindowSize:        DefaultWindowSize,
		Degree:            DefaultDegree,
		SmoothingSigma:    DefaultSmoothingSigma,
		SmoothingTruncate: DefaultSmoothingTruncate,
		ConfidenceScale:   DefaultConfidenceScale,
		MinConfidence:     DefaultMinConfidence,
		MaxConfidence:     DefaultMaxConfidence,
	}
}

// Validate returns a validated copy of the options. Nil options resolve to the defaults.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	opt := *o

	if opt.WindowSize < 2 {
		return nil, fmt.Errorf("window size must be at least 2, got %d, %w", opt.WindowSize, ErrInvalidOptions)
	}
	if opt.Degree < 1 {
		return nil, fmt.Errorf("degree must be at least 1, got %d, %w", opt.Degree, ErrInvalidOptions)
	}
	if opt.SmoothingSigma < 0 {
		return nil, fmt.Errorf("smoothing sigma must be non-negative, got %.3f, %w", opt.SmoothingSigma, ErrInvalidOptions)
	}
	if opt.SmoothingTruncate <= 0 {
		opt.SmoothingTruncate = DefaultSmoothingTruncate
	}
	if opt.ConfidenceScale <= 0 {
		return nil, fmt.Errorf("confidence scale must be positive, got %.3f, %w", opt.ConfidenceScale, ErrInvalidOptions)
	}
	if opt.MinConfidence < 0 || opt.MaxConfidence > 1 || opt.MinConfidence > opt.MaxConfidence {
		return nil, fmt.Errorf(
			"confidence bounds must satisfy 0 <= min <= max <= 1, got [%.3f, %.3f], %w",
			opt.MinConfidence, opt.MaxConfidence, ErrInvalidOptions,
		)
	}
	return &opt, nil
}
