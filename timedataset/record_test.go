package timedataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecordValidate(t *testing.T) {
	testData := map[string]struct {
		rec Record
		err error
	}{
		"valid":                  {rec: Record{Date: date(2020, 1, 1), Cases: 10, Deaths: 1}},
		"deaths exceeding cases": {rec: Record{Date: date(2020, 1, 1), Cases: 1, Deaths: 5}},
		"missing date":           {rec: Record{Cases: 1}, err: ErrInvalidRecord},
		"negative cases":         {rec: Record{Date: date(2020, 1, 1), Cases: -1}, err: ErrInvalidRecord},
		"negative deaths":        {rec: Record{Date: date(2020, 1, 1), Deaths: -1}, err: ErrInvalidRecord},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.rec.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}
}

func TestRecordsSort(t *testing.T) {
	r := Records{
		{Date: date(2020, 3, 1), Cases: 3},
		{Date: date(2020, 1, 1), Cases: 1},
		{Date: date(2020, 2, 1), Cases: 2},
		{Date: date(2020, 1, 1), Cases: 4},
	}
	sorted := r.Sorted()
	assert.Equal(t, []float64{1, 4, 2, 3}, sorted.Cases())
	assert.Equal(t, int64(3), r[0].Cases, "Sorted should not modify receiver")

	r.Sort()
	assert.Equal(t, sorted, r)
	assert.Equal(t, date(2020, 1, 1), r.StartTime())
	assert.Equal(t, date(2020, 3, 1), r.EndTime())
}

func TestRecordsAccessors(t *testing.T) {
	r := Records{
		{Date: date(2020, 1, 1), Cases: 10, Deaths: 1},
		{Date: date(2020, 1, 2), Cases: 20, Deaths: 2},
	}
	assert.Equal(t, []time.Time{date(2020, 1, 1), date(2020, 1, 2)}, r.Dates())
	assert.Equal(t, []float64{10, 20}, r.Cases())
	assert.Equal(t, []float64{1, 2}, r.Deaths())

	var empty Records
	assert.True(t, empty.StartTime().IsZero())
	assert.True(t, empty.EndTime().IsZero())
}

func TestRecordsValidate(t *testing.T) {
	r := Records{
		{Date: date(2020, 1, 1), Cases: 10},
		{Date: date(2020, 1, 2), Cases: -2},
	}
	err := r.Validate()
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "record 1")
}

func TestRecordsBetween(t *testing.T) {
	r := Records{
		{Date: date(2020, 1, 1), Cases: 1},
		{Date: date(2020, 2, 1), Cases: 2},
		{Date: date(2020, 3, 1), Cases: 3},
	}

	testData := map[string]struct {
		from     time.Time
		to       time.Time
		expected []float64
	}{
		"open":        {expected: []float64{1, 2, 3}},
		"from only":   {from: date(2020, 2, 1), expected: []float64{2, 3}},
		"to only":     {to: date(2020, 1, 15), expected: []float64{1}},
		"both bounds": {from: date(2020, 1, 2), to: date(2020, 2, 28), expected: []float64{2}},
		"no overlap":  {from: date(2021, 1, 1), expected: []float64{}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, r.Between(td.from, td.to).Cases())
		})
	}
}
