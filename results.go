package forecaster

import (
	"time"

	"github.com/aouyang1/go-disease-tracker/stats"
)

// Results is a forecast over consecutive days following the last observed date.
type Results struct {
	T []time.Time `json:"time"`

	// Forecast holds the smoothed non-negative predictions before rounding
	Forecast []float64 `json:"forecast"`

	// Cases holds the predictions rounded to whole case counts
	Cases []int64 `json:"predicted_cases"`

	// Confidence is a heuristic rescaling of the in-sample R2 and is not a statistical interval
	Confidence float64      `json:"confidence"`
	Scores     stats.Scores `json:"scores"`
}

// Len returns the number of forecast days
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.T)
}

// Points pairs each forecast date with its rounded case count
func (r *Results) Points() []Point {
	if r == nil {
		return nil
	}
	points := make([]Point, len(r.T))
	for i := range r.T {
		points[i] = Point{Date: r.T[i], Cases: r.Cases[i]}
	}
	return points
}

// Point is a single forecast day
type Point struct {
	Date  time.Time `json:"date"`
	Cases int64     `json:"predicted_cases"`
}
