package summary

import (
	"testing"
	"time"

	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/stretchr/testify/assert"
)

func TestCasesOn(t *testing.T) {
	records := seriesOf(10, 20, 30)

	testData := map[string]struct {
		date     time.Time
		expected int64
		found    bool
	}{
		"first day":      {date: date(2020, 1, 1), expected: 10, found: true},
		"time of day":    {date: time.Date(2020, 1, 3, 17, 30, 0, 0, time.UTC), expected: 30, found: true},
		"before series":  {date: date(2019, 12, 31)},
		"after series":   {date: date(2020, 1, 4)},
		"different year": {date: date(2021, 1, 2)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rec, found := CasesOn(records, td.date)
			assert.Equal(t, td.found, found)
			assert.Equal(t, td.expected, rec.Cases)
		})
	}
}

func TestBetween(t *testing.T) {
	records := timedataset.Records{
		{Date: date(2020, 1, 3), Cases: 3},
		{Date: date(2020, 1, 1), Cases: 1},
		{Date: date(2020, 1, 2), Cases: 2},
	}
	assert.Equal(t, []float64{2, 3}, Between(records, date(2020, 1, 2), time.Time{}).Cases())
}

func TestYearlyTotals(t *testing.T) {
	records := timedataset.Records{
		{Date: date(2021, 6, 1), Cases: 5, Deaths: 1},
		{Date: date(2020, 1, 1), Cases: 1},
		{Date: date(2020, 7, 1), Cases: 2, Deaths: 1},
	}
	assert.Equal(t, []YearTotal{
		{Year: 2020, Cases: 3, Deaths: 1},
		{Year: 2021, Cases: 5, Deaths: 1},
	}, YearlyTotals(records))
	assert.Nil(t, YearlyTotals(nil))
}
