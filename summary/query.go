package summary

import (
	"time"

	"github.com/aouyang1/go-disease-tracker/timedataset"
)

// CasesOn returns the record reported on the calendar day of date
func CasesOn(records timedataset.Records, date time.Time) (timedataset.Record, bool) {
	y, m, d := date.Date()
	for _, r := range records {
		ry, rm, rd := r.Date.Date()
		if ry == y && rm == m && rd == d {
			return r, true
		}
	}
	return timedataset.Record{}, false
}

// Between returns the records dated within [from, to] in date order. A zero bound is open.
func Between(records timedataset.Records, from, to time.Time) timedataset.Records {
	return records.Sorted().Between(from, to)
}

// YearlyTotals sums the cases and deaths of every calendar year in date order
func YearlyTotals(records timedataset.Records) []YearTotal {
	var totals []YearTotal
	for _, r := range records.Sorted() {
		year := r.Date.Year()
		if len(totals) == 0 || totals[len(totals)-1].Year != year {
			totals = append(totals, YearTotal{Year: year})
		}
		totals[len(totals)-1].Cases += r.Cases
		totals[len(totals)-1].Deaths += r.Deaths
	}
	return totals
}

// YearTotal is the sum of a single calendar year
type YearTotal struct {
	Year   int   `json:"year"`
	Cases  int64 `json:"cases"`
	Deaths int64 `json:"deaths"`
}
