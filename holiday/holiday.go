// Package holiday flags public holidays in the countries tracked by the dashboard. Reporting
// around holidays is often delayed so flagged dates help explain dips in the daily counts.
package holiday

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/us"
)

var ErrUnknownCalendar = errors.New("unknown holiday calendar")

var calendars = map[string][]*cal.Holiday{
	"us": us.Holidays,
	"ca": ca.Holidays,
	"de": de.Holidays,
	"fr": fr.Holidays,
}

// Codes returns the supported calendar codes in sorted order
func Codes() []string {
	codes := make([]string, 0, len(calendars))
	for code := range calendars {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Holiday is a public holiday on the date it is observed
type Holiday struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Calendar looks up the observed holidays of a single country
type Calendar struct {
	code     string
	holidays []*cal.Holiday
}

// New returns the calendar for the code. An empty code is a calendar without holidays.
func New(code string) (*Calendar, error) {
	if code == "" {
		return &Calendar{}, nil
	}
	holidays, exists := calendars[code]
	if !exists {
		return nil, fmt.Errorf("%q, %w", code, ErrUnknownCalendar)
	}
	return &Calendar{code: code, holidays: holidays}, nil
}

// Code returns the calendar code
func (c *Calendar) Code() string {
	if c == nil {
		return ""
	}
	return c.code
}

func toDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Between returns the holidays observed on calendar days from start through end inclusive,
// ordered by date. Observed dates can fall in the neighboring year, e.g. a Saturday new
// year observed on the Friday before.
func (c *Calendar) Between(start, end time.Time) []Holiday {
	if c == nil || len(c.holidays) == 0 {
		return nil
	}
	start, end = toDate(start), toDate(end)
	if start.After(end) {
		return nil
	}

	var res []Holiday
	for year := start.Year() - 1; year <= end.Year()+1; year++ {
		for _, hol := range c.holidays {
			_, observed := hol.Calc(year)
			if observed.IsZero() {
				continue
			}
			observed = toDate(observed)
			if observed.Before(start) || observed.After(end) {
				continue
			}
			res = append(res, Holiday{Name: hol.Name, Date: observed})
		}
	}
	slices.SortStableFunc(res, func(a, b Holiday) int {
		return a.Date.Compare(b.Date)
	})
	return res
}

// On returns the holiday observed on the calendar day of t
func (c *Calendar) On(t time.Time) (Holiday, bool) {
	hols := c.Between(t, t)
	if len(hols) == 0 {
		return Holiday{}, false
	}
	return hols[0], true
}

// Flag returns the holiday name observed on each date or an empty string
func (c *Calendar) Flag(dates []time.Time) []string {
	flags := make([]string, len(dates))
	if len(dates) == 0 {
		return flags
	}

	start, end := dates[0], dates[0]
	for _, t := range dates {
		if t.Before(start) {
			start = t
		}
		if t.After(end) {
			end = t
		}
	}

	byDate := make(map[time.Time]string)
	for _, hol := range c.Between(start, end) {
		if _, exists := byDate[hol.Date]; !exists {
			byDate[hol.Date] = hol.Name
		}
	}
	for i, t := range dates {
		flags[i] = byDate[toDate(t)]
	}
	return flags
}
