package export

import (
	"bytes"
	"testing"
	"time"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/source"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testResults() *forecaster.Results {
	return &forecaster.Results{
		T:          []time.Time{date(2024, 12, 24), date(2024, 12, 25), date(2024, 12, 26)},
		Forecast:   []float64{10.2, 11.4, 12.6},
		Cases:      []int64{10, 11, 13},
		Confidence: 0.9,
	}
}

func TestParseFormat(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected Format
		err      error
	}{
		"empty":     {input: "", expected: CSV},
		"csv":       {input: "csv", expected: CSV},
		"upper":     {input: "XLSX", expected: XLSX},
		"extension": {input: ".json", expected: JSON},
		"unknown":   {input: "pdf", err: ErrUnknownFormat},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := ParseFormat(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, f)
		})
	}
}

func TestWriteForecastCSV(t *testing.T) {
	testData := map[string]struct {
		holidays []string
		expected string
		err      error
	}{
		"no holidays": {
			expected: "date,predicted_cases\n2024-12-24,10\n2024-12-25,11\n2024-12-26,13\n",
		},
		"no holiday in range": {
			holidays: []string{"", "", ""},
			expected: "date,predicted_cases\n2024-12-24,10\n2024-12-25,11\n2024-12-26,13\n",
		},
		"holiday column": {
			holidays: []string{"", "Christmas Day", ""},
			expected: "date,predicted_cases,holiday\n2024-12-24,10,\n2024-12-25,11,Christmas Day\n2024-12-26,13,\n",
		},
		"mismatched flags": {
			holidays: []string{""},
			err:      ErrLengthMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := WriteForecast(&buf, CSV, Forecast{Results: testResults(), Holidays: td.holidays})
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, buf.String())
		})
	}
}

func TestWriteForecastJSON(t *testing.T) {
	var buf bytes.Buffer
	err := WriteForecast(&buf, JSON, Forecast{
		Disease:  "COVID-19",
		Country:  "America",
		Results:  testResults(),
		Holidays: []string{"", "Christmas Day", ""},
	})
	require.NoError(t, err)

	var doc ForecastDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "COVID-19", doc.Disease)
	assert.Equal(t, 0.9, doc.Confidence)
	require.Len(t, doc.Forecast, 3)
	assert.Equal(t, ForecastRow{Date: "2024-12-25", PredictedCases: 11, Holiday: "Christmas Day"}, doc.Forecast[1])
	assert.NotContains(t, buf.String(), `"holiday": ""`)
}

func TestWriteForecastXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteForecast(&buf, XLSX, Forecast{Results: testResults()})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ForecastSheet}, f.GetSheetList())
	rows, err := f.GetRows(ForecastSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"date", "predicted_cases"},
		{"2024-12-24", "10"},
		{"2024-12-25", "11"},
		{"2024-12-26", "13"},
	}, rows)
}

func TestWriteRecordsReadable(t *testing.T) {
	records := timedataset.Records{
		{Date: date(2000, 1, 1), Cases: 500, Deaths: 10},
		{Date: date(2000, 1, 31), Cases: 520, Deaths: 12},
	}

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteRecords(&buf, CSV, records))
		res, err := source.ReadCSV("history.csv", &buf)
		require.NoError(t, err)
		assert.Equal(t, records, res)
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteRecords(&buf, XLSX, records))
		res, err := source.ReadXLSX("history.xlsx", &buf)
		require.NoError(t, err)
		assert.Equal(t, records, res)
	})

	t.Run("json empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteRecords(&buf, JSON, nil))
		assert.Equal(t, "[]\n", buf.String())
	})

	t.Run("unknown", func(t *testing.T) {
		assert.ErrorIs(t, WriteRecords(&bytes.Buffer{}, Format("pdf"), records), ErrUnknownFormat)
	})
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "covid19_india_forecast_2024-01-31.xlsx", FileName("covid19_india", "forecast", date(2024, 1, 31), XLSX))
	assert.Equal(t, "text/csv", CSV.ContentType())
}
