// Package source loads disease series from per selection data files.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-disease-tracker/catalog"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSeriesNotFound  = errors.New("series not found")
	ErrMissingColumn   = errors.New("missing required column")
	ErrUnsupportedFile = errors.New("unsupported file extension")
)

const (
	ColDate   = "date"
	ColCases  = "cases"
	ColDeaths = "deaths"
)

// Extensions lists the file types FileSource looks for, in order of preference
var Extensions = []string{".csv", ".xlsx"}

// DateLayouts are the accepted date formats of the date column
var DateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-06",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Source provides the records of a disease in a country
type Source interface {
	Load(ctx context.Context, disease, country string) (timedataset.Records, error)
}

// ValidationError reports a malformed row of a data file. Line is 1-based and counts the header.
type ValidationError struct {
	File string
	Line int
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s line %d, %v", e.File, e.Line, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FileSource reads series stored as <dir>/<disease>_<country>.csv or .xlsx
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Path returns the data file of the selection if one exists
func (s *FileSource) Path(disease, country string) (string, error) {
	key := catalog.SeriesKey(disease, country)
	for _, ext := range Extensions {
		p := filepath.Join(s.Dir, key+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s in %s, %w", key, s.Dir, ErrSeriesNotFound)
}

// Load reads, validates and date sorts the series of the selection
func (s *FileSource) Load(ctx context.Context, disease, country string) (timedataset.Records, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(disease, country)
	if err != nil {
		return nil, err
	}
	records, err := ReadFile(p)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded series", "disease", disease, "country", country, "file", p, "records", len(records))
	return records, nil
}

// ReadFile parses a csv or xlsx data file based on its extension
func ReadFile(path string) (timedataset.Records, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s, %w", path, ErrSeriesNotFound)
		}
		return nil, fmt.Errorf("unable to open %s, %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(name, f)
	case ".xlsx":
		return ReadXLSX(name, f)
	default:
		return nil, fmt.Errorf("%s, %w", path, ErrUnsupportedFile)
	}
}

// ReadCSV parses a csv stream with a header row naming the date, cases and deaths columns
func ReadCSV(name string, r io.Reader) (timedataset.Records, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, &ValidationError{File: name, Line: perr.Line, Err: err}
		}
		return nil, fmt.Errorf("unable to read %s, %w", name, err)
	}
	return parseRows(name, rows)
}

// ReadXLSX parses the first sheet of a workbook laid out like the csv format
func ReadXLSX(name string, r io.Reader) (timedataset.Records, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook %s, %w", name, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ValidationError{File: name, Line: 1, Err: fmt.Errorf("no sheets, %w", ErrMissingColumn)}
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s of %s, %w", sheets[0], name, err)
	}
	return parseRows(name, rows)
}

type columns struct {
	date, cases, deaths int
}

func headerColumns(header []string) (columns, error) {
	cols := columns{date: -1, cases: -1, deaths: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case ColDate:
			cols.date = i
		case ColCases:
			cols.cases = i
		case ColDeaths:
			cols.deaths = i
		}
	}
	var missing []string
	if cols.date < 0 {
		missing = append(missing, ColDate)
	}
	if cols.cases < 0 {
		missing = append(missing, ColCases)
	}
	if cols.deaths < 0 {
		missing = append(missing, ColDeaths)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%s, %w", strings.Join(missing, ","), ErrMissingColumn)
	}
	return cols, nil
}

func parseRows(name string, rows [][]string) (timedataset.Records, error) {
	if len(rows) == 0 {
		return nil, &ValidationError{File: name, Line: 1, Err: fmt.Errorf("empty file, %w", ErrMissingColumn)}
	}
	cols, err := headerColumns(rows[0])
	if err != nil {
		return nil, &ValidationError{File: name, Line: 1, Err: err}
	}

	records := make(timedataset.Records, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if blankRow(row) {
			continue
		}
		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, &ValidationError{File: name, Line: line, Err: err}
		}
		if err := rec.Validate(); err != nil {
			return nil, &ValidationError{File: name, Line: line, Err: err}
		}
		records = append(records, rec)
	}
	return records.Sort(), nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRow(row []string, cols columns) (timedataset.Record, error) {
	var rec timedataset.Record

	date, err := ParseDate(cell(row, cols.date))
	if err != nil {
		return rec, fmt.Errorf("%w, %w", timedataset.ErrInvalidRecord, err)
	}
	cases, err := parseCount(cell(row, cols.cases))
	if err != nil {
		return rec, fmt.Errorf("%w, cases %w", timedataset.ErrInvalidRecord, err)
	}
	deaths, err := parseCount(cell(row, cols.deaths))
	if err != nil {
		return rec, fmt.Errorf("%w, deaths %w", timedataset.ErrInvalidRecord, err)
	}
	rec.Date = date
	rec.Cases = cases
	rec.Deaths = deaths
	return rec, nil
}

// ParseDate parses a date in any of DateLayouts or an Excel serial day number. The result is
// truncated to the calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("unable to parse date %q, %w", s, err)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", s)
}

// parseCount accepts integral counts. Spreadsheets may render them as 12.0 or with
// thousands separators.
func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errors.New("is empty")
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int64(f), nil
}

// Pair holds the series of one disease in two countries
type Pair struct {
	Primary timedataset.Records
	Other   timedataset.Records
}

// LoadPair loads the series of the disease for both countries concurrently
func LoadPair(ctx context.Context, src Source, disease, country, other string) (*Pair, error) {
	var pair Pair
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := src.Load(ctx, disease, country)
		if err != nil {
			return fmt.Errorf("unable to load %s, %w", country, err)
		}
		pair.Primary = records
		return nil
	})
	g.Go(func() error {
		records, err := src.Load(ctx, disease, other)
		if err != nil {
			return fmt.Errorf("unable to load %s, %w", other, err)
		}
		pair.Other = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &pair, nil
}
