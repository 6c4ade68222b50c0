// Package feature describes the regressors used by the forecast model. Every feature
// carries a string label that is stable across serialization so fitted coefficients can
// be matched back to the feature that produced them.
package feature

// FeatureType identifies the family a feature belongs to.
type FeatureType string

const (
	FeatureTypeGrowth FeatureType = "growth"
)

// Feature is a single named regressor
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}
