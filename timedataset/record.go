package timedataset

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidRecord = errors.New("invalid record")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Record is a single observation of a disease series on a calendar date.
type Record struct {
	Date   time.Time `json:"date" validate:"required"`
	Cases  int64     `json:"cases" validate:"gte=0"`
	Deaths int64     `json:"deaths" validate:"gte=0"`
}

// Validate checks that the record has a date and non-negative counts. Deaths
// exceeding cases is tolerated since source data is known to contain it.
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w, %w", ErrInvalidRecord, err)
	}
	return nil
}

// Records is an ordered collection of observations
type Records []Record

// Sort orders the records by date in place. Records sharing a date keep their relative order.
func (r Records) Sort() Records {
	slices.SortStableFunc(r, func(a, b Record) int {
		return a.Date.Compare(b.Date)
	})
	return r
}

// Sorted returns a date ordered copy leaving the receiver untouched
func (r Records) Sorted() Records {
	return slices.Clone(r).Sort()
}

func (r Records) Dates() []time.Time {
	t := make([]time.Time, len(r))
	for i, rec := range r {
		t[i] = rec.Date
	}
	return t
}

func (r Records) Cases() []float64 {
	y := make([]float64, len(r))
	for i, rec := range r {
		y[i] = float64(rec.Cases)
	}
	return y
}

func (r Records) Deaths() []float64 {
	y := make([]float64, len(r))
	for i, rec := range r {
		y[i] = float64(rec.Deaths)
	}
	return y
}

// Validate checks every record and reports the index of the first invalid one
func (r Records) Validate() error {
	for i, rec := range r {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("record %d, %w", i, err)
		}
	}
	return nil
}

// StartTime returns the date of the first record or the zero time when empty
func (r Records) StartTime() time.Time {
	var startTime time.Time
	if len(r) < 1 {
		return startTime
	}
	return r[0].Date
}

// EndTime returns the date of the last record or the zero time when empty
func (r Records) EndTime() time.Time {
	var lastTime time.Time
	if len(r) < 1 {
		return lastTime
	}
	return r[len(r)-1].Date
}

// Between returns the records whose date falls within [from, to]. A zero bound is open.
func (r Records) Between(from, to time.Time) Records {
	res := make(Records, 0, len(r))
	for _, rec := range r {
		if !from.IsZero() && rec.Date.Before(from) {
			continue
		}
		if !to.IsZero() && rec.Date.After(to) {
			continue
		}
		res = append(res, rec)
	}
	return res
}
