package feature

import (
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Set stores the data of each feature keyed by the feature label. Features keep the
// order they were added in so design matrix columns line up with coefficients.
type Set struct {
	m      int
	set    map[string][]float64
	labels Labels
}

func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Len returns the number of features in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Rows returns the number of observations per feature
func (s *Set) Rows() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set adds or replaces the data for a feature. Shorter feature data is zero padded to
// the longest feature seen so far.
func (s *Set) Set(f Feature, data []float64) {
	label := f.String()
	if _, exists := s.set[label]; !exists {
		s.labels = append(s.labels, f)
	}

	d := make([]float64, len(data))
	copy(d, data)
	s.set[label] = d

	if len(data) > s.m {
		s.m = len(data)
	}
	for lbl, vals := range s.set {
		if len(vals) < s.m {
			padded := make([]float64, s.m)
			copy(padded, vals)
			s.set[lbl] = padded
		}
	}
}

// Get returns the data for a feature and whether it exists
func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	data, exists := s.set[f.String()]
	return data, exists
}

// Labels returns a copy of the features in insertion order
func (s *Set) Labels() Labels {
	if s == nil {
		return nil
	}
	return slices.Clone(s.labels)
}

// Matrix returns a matrix representation of the Set to be used with matrix methods.
// The matrix has m rows representing the number of observations and n columns
// representing the number of features, optionally prefixed by a column of ones.
func (s *Set) Matrix(intercept bool) *mat.Dense {
	if s == nil || len(s.labels) == 0 || s.m == 0 {
		return nil
	}

	n := len(s.labels)
	if intercept {
		n += 1
	}
	obs := make([]float64, s.m*n)

	featNum := 0
	if intercept {
		for i := 0; i < s.m; i++ {
			obs[n*i] = 1.0
		}
		featNum += 1
	}

	for _, label := range s.labels {
		feature := s.set[label.String()]
		for i := 0; i < len(feature); i++ {
			obs[n*i+featNum] = feature[i]
		}
		featNum += 1
	}
	return mat.NewDense(s.m, n, obs)
}
