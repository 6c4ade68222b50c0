package forecaster

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-disease-tracker/feature"
	"github.com/aouyang1/go-disease-tracker/stats"
	"github.com/goccy/go-json"
)

var (
	ErrUnknownFeatureType = errors.New("unknown feature type")
	ErrMissingGrowthPower = errors.New("missing growth power in model weights")
)

// Model represents a serializeable format of a forecaster storing the options, the training
// range, the regressor normalization, fit scores, and coefficients
type Model struct {
	Options        *Options      `json:"options"`
	TrainStartTime time.Time     `json:"train_start_time"`
	TrainEndTime   time.Time     `json:"train_end_time"`
	Center         float64       `json:"center"`
	Scale          float64       `json:"scale"`
	Scores         *stats.Scores `json:"scores"`
	Weights        Weights       `json:"weights"`
}

// TablePrint prints the model in a human readable format
func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%sForecaster:\n", prefix); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining Start Time: %s\n", prefix, indent, m.TrainStartTime); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining End Time: %s\n", prefix, indent, m.TrainEndTime); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sNormalization: center %.1f, scale %.1f\n", prefix, indent, m.Center, m.Scale); err != nil {
		return err
	}

	if m.Options != nil {
		if _, err := fmt.Fprintf(w, "%s%sWindow Size: %d    Degree: %d\n",
			prefix, indent, m.Options.WindowSize, m.Options.Degree); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sSmoothing: sigma %.3f, truncate %.3f\n",
			prefix, indent, m.Options.SmoothingSigma, m.Options.SmoothingTruncate); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sConfidence: R2 x %.2f in [%.2f, %.2f]\n",
			prefix, indent, m.Options.ConfidenceScale, m.Options.MinConfidence, m.Options.MaxConfidence); err != nil {
			return err
		}
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%sScores:\n", prefix); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    R2: %.3f\n",
			prefix, indent,
			m.Scores.MAPE,
			m.Scores.MSE,
			m.Scores.R2,
		); err != nil {
			return err
		}
	}

	return m.Weights.tablePrint(w, prefix, indent)
}

// Weights stores the intercept and growth coefficients of the log space polynomial
type Weights struct {
	Intercept float64         `json:"intercept"`
	Coef      []FeatureWeight `json:"coefficients"`
}

// FeatureLabels decodes the feature of every coefficient, position i labels Coef[i]
func (w *Weights) FeatureLabels() (feature.Labels, error) {
	labels := make(feature.Labels, len(w.Coef))
	for i := range w.Coef {
		f, err := w.Coef[i].ToFeature()
		if err != nil {
			return nil, fmt.Errorf("coefficient %d, %w", i, err)
		}
		labels[i] = f
	}
	return labels, nil
}

// Coefficients returns the coefficients ordered by growth power starting at 1. Every
// power up to the highest must be present.
func (w *Weights) Coefficients() ([]float64, error) {
	labels, err := w.FeatureLabels()
	if err != nil {
		return nil, err
	}

	coef := make([]float64, len(labels))
	seen := make([]bool, len(labels))
	for i, label := range labels {
		g, ok := label.(*feature.Growth)
		if !ok {
			return nil, fmt.Errorf("%s, %w", label, ErrUnknownFeatureType)
		}
		if g.Power < 1 || g.Power > len(labels) || seen[g.Power-1] {
			return nil, fmt.Errorf("unexpected power %d, %w", g.Power, ErrMissingGrowthPower)
		}
		coef[g.Power-1] = w.Coef[i].Value
		seen[g.Power-1] = true
	}
	return coef, nil
}

func (w Weights) tablePrint(wr io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(wr, "%sWeights:\n", prefix); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(wr, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sType\tLabels\tValue\t\n", prefix, strings.Repeat(indent, 2)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%sIntercept\t\t%.3f\t\n", prefix, indent, w.Intercept); err != nil {
		return err
	}
	for _, fw := range w.Coef {
		labelOut, err := json.Marshal(fw.Labels)
		if err != nil {
			return err
		}
		val := fmt.Sprintf("%.3f", fw.Value)
		if fw.Value == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, indent,
			fw.Type, string(labelOut), val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// FeatureWeight represents a feature described with a type e.g. growth, labels and the value
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Labels: f.Decode(),
		Type:   f.Type(),
		Value:  val,
	}
}

// ToFeature rebuilds the feature described by the Type and Labels
func (fw *FeatureWeight) ToFeature() (feature.Feature, error) {
	if fw == nil {
		return nil, ErrUnknownFeatureType
	}
	if fw.Type != feature.FeatureTypeGrowth {
		return nil, fmt.Errorf("%q, %w", fw.Type, ErrUnknownFeatureType)
	}

	encoded, err := json.Marshal(fw.Labels)
	if err != nil {
		return nil, err
	}
	g := new(feature.Growth)
	if err := json.Unmarshal(encoded, g); err != nil {
		return nil, fmt.Errorf("unable to decode growth labels, %w", err)
	}
	return g, nil
}
