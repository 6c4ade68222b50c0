// Package export writes forecasts and case histories as csv, xlsx or json.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnknownFormat  = errors.New("unknown export format")
	ErrLengthMismatch = errors.New("holiday flags do not match forecast length")
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	JSON Format = "json"
)

const (
	ForecastSheet = "Forecast"
	HistorySheet  = "History"
)

// ParseFormat accepts a format name or file extension, case insensitive. Empty is csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case "":
		return CSV, nil
	case CSV, XLSX, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("%q, %w", s, ErrUnknownFormat)
	}
}

func (f Format) Ext() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case JSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// ForecastRow is one exported forecast day. Holiday is empty unless the date is a public holiday.
type ForecastRow struct {
	Date           string `json:"date"`
	PredictedCases int64  `json:"predicted_cases"`
	Holiday        string `json:"holiday,omitempty"`
}

// ForecastDocument is the json form of an exported forecast
type ForecastDocument struct {
	Disease    string        `json:"disease,omitempty"`
	Country    string        `json:"country,omitempty"`
	Confidence float64       `json:"confidence"`
	Forecast   []ForecastRow `json:"forecast"`
}

// Forecast describes what to export. Holidays is optional and parallel to the forecast dates.
type Forecast struct {
	Disease  string
	Country  string
	Results  *forecaster.Results
	Holidays []string
}

func (f Forecast) rows() ([]ForecastRow, bool, error) {
	points := f.Results.Points()
	if f.Holidays != nil && len(f.Holidays) != len(points) {
		return nil, false, fmt.Errorf("got %d flags for %d days, %w", len(f.Holidays), len(points), ErrLengthMismatch)
	}

	withHoliday := false
	rows := make([]ForecastRow, len(points))
	for i, p := range points {
		rows[i] = ForecastRow{Date: p.Date.Format(forecaster.DateLayout), PredictedCases: p.Cases}
		if f.Holidays != nil {
			rows[i].Holiday = f.Holidays[i]
			withHoliday = withHoliday || f.Holidays[i] != ""
		}
	}
	return rows, withHoliday, nil
}

func forecastHeader(withHoliday bool) []string {
	header := []string{"date", "predicted_cases"}
	if withHoliday {
		header = append(header, "holiday")
	}
	return header
}

func (r ForecastRow) values(withHoliday bool) []string {
	v := []string{r.Date, strconv.FormatInt(r.PredictedCases, 10)}
	if withHoliday {
		v = append(v, r.Holiday)
	}
	return v
}

// WriteForecast writes the forecast in the format. The holiday column is only added when at
// least one forecast date is a holiday.
func WriteForecast(w io.Writer, format Format, f Forecast) error {
	rows, withHoliday, err := f.rows()
	if err != nil {
		return err
	}

	switch format {
	case CSV:
		table := make([][]string, 0, len(rows)+1)
		table = append(table, forecastHeader(withHoliday))
		for _, r := range rows {
			table = append(table, r.values(withHoliday))
		}
		return writeCSV(w, table)
	case XLSX:
		table := make([][]interface{}, 0, len(rows)+1)
		table = append(table, toCells(forecastHeader(withHoliday)))
		for _, r := range rows {
			row := []interface{}{r.Date, r.PredictedCases}
			if withHoliday {
				row = append(row, r.Holiday)
			}
			table = append(table, row)
		}
		return writeXLSX(w, ForecastSheet, table)
	case JSON:
		doc := ForecastDocument{
			Disease:  f.Disease,
			Country:  f.Country,
			Forecast: rows,
		}
		if f.Results != nil {
			doc.Confidence = f.Results.Confidence
		}
		return writeJSON(w, doc)
	default:
		return fmt.Errorf("%q, %w", format, ErrUnknownFormat)
	}
}

// WriteRecords writes a case history as date, cases, deaths in the layout the file source reads
func WriteRecords(w io.Writer, format Format, records timedataset.Records) error {
	header := []string{"date", "cases", "deaths"}
	switch format {
	case CSV:
		table := make([][]string, 0, len(records)+1)
		table = append(table, header)
		for _, r := range records {
			table = append(table, []string{
				r.Date.Format(forecaster.DateLayout),
				strconv.FormatInt(r.Cases, 10),
				strconv.FormatInt(r.Deaths, 10),
			})
		}
		return writeCSV(w, table)
	case XLSX:
		table := make([][]interface{}, 0, len(records)+1)
		table = append(table, toCells(header))
		for _, r := range records {
			table = append(table, []interface{}{r.Date.Format(forecaster.DateLayout), r.Cases, r.Deaths})
		}
		return writeXLSX(w, HistorySheet, table)
	case JSON:
		if records == nil {
			records = timedataset.Records{}
		}
		return writeJSON(w, records)
	default:
		return fmt.Errorf("%q, %w", format, ErrUnknownFormat)
	}
}

func toCells(s []string) []interface{} {
	cells := make([]interface{}, len(s))
	for i, v := range s {
		cells[i] = v
	}
	return cells
}

func writeCSV(w io.Writer, table [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table); err != nil {
		return fmt.Errorf("unable to write csv, %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("unable to encode json, %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, sheet string, table [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("unable to name sheet, %w", err)
	}
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("unable to write row %d, %w", i+1, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return fmt.Errorf("unable to size date column, %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("unable to write workbook, %w", err)
	}
	return nil
}

// FileName returns the download name of an export, e.g. covid19_india_forecast_2024-01-31.csv
func FileName(seriesKey, kind string, asOf time.Time, format Format) string {
	return fmt.Sprintf("%s_%s_%s%s", seriesKey, kind, asOf.Format(forecaster.DateLayout), format.Ext())
}
