package timedataset

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
)

const day = 24 * time.Hour

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
// Time points must be strictly increasing.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if err := checkLengths(t, y); err != nil {
		return nil, err
	}

	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
	}

	return &TimeDataset{
		T: slices.Clone(t),
		Y: slices.Clone(y),
	}, nil
}

// NewSortedDataset returns a TimeDataset ordered by time. Unsorted input and duplicate
// time points are accepted and ties keep their input order.
func NewSortedDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if err := checkLengths(t, y); err != nil {
		return nil, err
	}

	idx := make([]int, len(t))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return t[idx[i]].Before(t[idx[j]])
	})

	td := &TimeDataset{
		T: make([]time.Time, len(t)),
		Y: make([]float64, len(t)),
	}
	for i, j := range idx {
		td.T[i] = t[j]
		td.Y[i] = y[j]
	}
	return td, nil
}

func checkLengths(t []time.Time, y []float64) error {
	if len(y) == 0 {
		return ErrNoTrainingData
	}
	if len(t) != len(y) {
		return fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}
	return nil
}

func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	return &TimeDataset{
		T: slices.Clone(td.T),
		Y: slices.Clone(td.Y),
	}
}

func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}

// Start returns the earliest time point
func (td *TimeDataset) Start() time.Time {
	if td.Len() == 0 {
		return time.Time{}
	}
	return td.T[0]
}

// End returns the latest time point
func (td *TimeDataset) End() time.Time {
	if td.Len() == 0 {
		return time.Time{}
	}
	return td.T[len(td.T)-1]
}

// DayOffsets returns the whole number of days between each time point and the first.
func (td *TimeDataset) DayOffsets() []float64 {
	if td.Len() == 0 {
		return nil
	}
	return DayOffsetsFrom(td.T, td.T[0])
}

// DayOffsetsFrom returns the whole number of calendar days from origin for each time point.
func DayOffsetsFrom(t []time.Time, origin time.Time) []float64 {
	o := truncateDay(origin)
	offsets := make([]float64, len(t))
	for i, ct := range t {
		offsets[i] = float64(truncateDay(ct).Sub(o).Round(day) / day)
	}
	return offsets
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Tail returns a copy of the last n points, or the whole dataset when it holds fewer.
func (td *TimeDataset) Tail(n int) *TimeDataset {
	if td == nil {
		return nil
	}
	if n < 0 {
		n = 0
	}
	start := max(len(td.T)-n, 0)
	return &TimeDataset{
		T: slices.Clone(td.T[start:]),
		Y: slices.Clone(td.Y[start:]),
	}
}
