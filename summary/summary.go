// Package summary computes the headline statistics shown for a disease series.
package summary

import (
	"time"

	"github.com/aouyang1/go-disease-tracker/catalog"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Trend is the direction of recent case counts
type Trend string

const (
	Increasing Trend = "increasing"
	Decreasing Trend = "decreasing"
	Stable     Trend = "stable"
)

const (
	// RecentWindow is the number of most recent records averaged for an acute trend
	RecentWindow = 7

	// TrailingWindow is the number of most recent records skipped before taking the
	// comparison window of an acute trend
	TrailingWindow = 30
)

var hundred = decimal.NewFromInt(100)

// Summary holds the aggregate statistics of a series
type Summary struct {
	Records int           `json:"records"`
	Class   catalog.Class `json:"class"`

	TotalCases  int64 `json:"total_cases"`
	TotalDeaths int64 `json:"total_deaths"`

	PeakCases int64     `json:"peak_cases"`
	PeakDate  time.Time `json:"peak_date"`

	LatestCases  int64     `json:"latest_cases"`
	LatestDeaths int64     `json:"latest_deaths"`
	LatestDate   time.Time `json:"latest_date"`

	// MortalityRate is total deaths as a percent of total cases rounded to 2 decimals
	MortalityRate float64 `json:"mortality_rate"`

	Trend Trend `json:"trend"`

	// YearOverYearChange is the percent change between the last two records of a chronic
	// disease. Nil for acute diseases or when the previous record has no cases.
	YearOverYearChange *float64 `json:"year_over_year_change,omitempty"`
}

// Summarize computes the summary statistics of the records. The records do not need to be
// sorted and are not modified.
func Summarize(records timedataset.Records, class catalog.Class) Summary {
	s := Summary{
		Records: len(records),
		Class:   class,
		Trend:   Stable,
	}
	if len(records) == 0 {
		return s
	}

	sorted := records.Sorted()
	for i, r := range sorted {
		s.TotalCases += r.Cases
		s.TotalDeaths += r.Deaths
		if i == 0 || r.Cases > s.PeakCases {
			s.PeakCases = r.Cases
			s.PeakDate = r.Date
		}
	}

	latest := sorted[len(sorted)-1]
	s.LatestCases = latest.Cases
	s.LatestDeaths = latest.Deaths
	s.LatestDate = latest.Date
	s.MortalityRate = MortalityRate(s.TotalCases, s.TotalDeaths)

	switch class {
	case catalog.Chronic:
		s.Trend, s.YearOverYearChange = chronicTrend(sorted)
	default:
		s.Trend = AcuteTrend(sorted)
	}
	return s
}

// MortalityRate returns deaths as a percent of cases rounded to 2 decimals. Zero cases
// has a rate of 0.
func MortalityRate(cases, deaths int64) float64 {
	if cases == 0 {
		return 0
	}
	return decimal.NewFromInt(deaths).
		Mul(hundred).
		Div(decimal.NewFromInt(cases)).
		Round(2).
		InexactFloat64()
}

// PercentChange returns the change from prev to curr as a percent rounded to 2 decimals
func PercentChange(prev, curr int64) (float64, bool) {
	if prev == 0 {
		return 0, false
	}
	return decimal.NewFromInt(curr - prev).
		Mul(hundred).
		Div(decimal.NewFromInt(prev)).
		Round(2).
		InexactFloat64(), true
}

func compare(prev, curr float64) Trend {
	switch {
	case curr > prev:
		return Increasing
	case curr < prev:
		return Decreasing
	default:
		return Stable
	}
}

func chronicTrend(sorted timedataset.Records) (Trend, *float64) {
	n := len(sorted)
	if n < 2 {
		return Stable, nil
	}
	prev, curr := sorted[n-2].Cases, sorted[n-1].Cases
	trend := compare(float64(prev), float64(curr))
	change, ok := PercentChange(prev, curr)
	if !ok {
		return trend, nil
	}
	return trend, &change
}

// AcuteTrend compares the mean of the last RecentWindow records against the mean of the
// RecentWindow records preceding the last TrailingWindow records. Shorter series compare
// against whatever records precede the trailing window and are stable when none do.
func AcuteTrend(sorted timedataset.Records) Trend {
	n := len(sorted)
	recentStart := max(n-RecentWindow, 0)
	priorEnd := max(n-TrailingWindow, 0)
	priorStart := max(n-TrailingWindow-RecentWindow, 0)
	if priorEnd == priorStart || recentStart == n {
		return Stable
	}

	recent := stat.Mean(sorted[recentStart:].Cases(), nil)
	prior := stat.Mean(sorted[priorStart:priorEnd].Cases(), nil)
	return compare(prior, recent)
}
