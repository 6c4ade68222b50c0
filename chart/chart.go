// Package chart renders disease series as echarts line charts.
package chart

import (
	"io"
	"slices"
	"time"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	CasesColor    = "#1f77b4"
	CasesFill     = "rgba(31, 119, 180, 0.3)"
	DeathsColor   = "red"
	CompareColor  = "red"
	ForecastColor = "#ff7f0e"

	missingPoint = "-"
)

func newLine(title, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1100px", Height: "500px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	return line
}

func dates(t []time.Time) []string {
	x := make([]string, len(t))
	for i, ct := range t {
		x[i] = ct.Format(forecaster.DateLayout)
	}
	return x
}

func lineData(v []float64) []opts.LineData {
	data := make([]opts.LineData, len(v))
	for i, y := range v {
		data[i] = opts.LineData{Value: y}
	}
	return data
}

// CasesChart plots the daily cases of a series as a filled area
func CasesChart(disease, country string, records timedataset.Records) *charts.Line {
	records = records.Sorted()
	line := newLine(disease+" Cases Over Time in "+country, "Daily Cases")
	line.SetXAxis(dates(records.Dates())).
		AddSeries(country, lineData(records.Cases()),
			charts.WithLineStyleOpts(opts.LineStyle{Color: CasesColor, Width: 2}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: CasesFill}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	return line
}

// DeathsChart plots the daily deaths of a series
func DeathsChart(disease, country string, records timedataset.Records) *charts.Line {
	records = records.Sorted()
	line := newLine(disease+" Deaths Over Time in "+country, "Daily Deaths")
	line.SetXAxis(dates(records.Dates())).
		AddSeries(country, lineData(records.Deaths()),
			charts.WithLineStyleOpts(opts.LineStyle{Color: DeathsColor, Width: 2}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	return line
}

// CompareChart plots the cases of two countries over the union of their dates. A country
// without a record on a date shows a gap.
func CompareChart(disease, country string, records timedataset.Records, other string, otherRecords timedataset.Records) *charts.Line {
	byDate := func(r timedataset.Records) map[time.Time]int64 {
		m := make(map[time.Time]int64, len(r))
		for _, rec := range r {
			m[rec.Date] += rec.Cases
		}
		return m
	}
	a, b := byDate(records), byDate(otherRecords)

	axis := make([]time.Time, 0, len(a)+len(b))
	for t := range a {
		axis = append(axis, t)
	}
	for t := range b {
		if _, exists := a[t]; !exists {
			axis = append(axis, t)
		}
	}
	slices.SortFunc(axis, func(x, y time.Time) int { return x.Compare(y) })

	seriesOf := func(m map[time.Time]int64) []opts.LineData {
		data := make([]opts.LineData, len(axis))
		for i, t := range axis {
			if v, ok := m[t]; ok {
				data[i] = opts.LineData{Value: v}
			} else {
				data[i] = opts.LineData{Value: missingPoint}
			}
		}
		return data
	}

	line := newLine(disease+" Cases Comparison", "Cases")
	line.SetXAxis(dates(axis)).
		AddSeries(country, seriesOf(a),
			charts.WithLineStyleOpts(opts.LineStyle{Color: CasesColor, Width: 3}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		).
		AddSeries(other, seriesOf(b),
			charts.WithLineStyleOpts(opts.LineStyle{Color: CompareColor, Width: 3}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	return line
}

// ForecastChart plots the observed cases followed by the forecast. The forecast series starts at
// the last observation so the two lines join.
func ForecastChart(disease, country string, records timedataset.Records, res *forecaster.Results) *charts.Line {
	records = records.Sorted()
	n := len(records) + res.Len()

	xAxis := make([]string, 0, n)
	actual := make([]opts.LineData, 0, n)
	predicted := make([]opts.LineData, 0, n)
	for i, rec := range records {
		xAxis = append(xAxis, rec.Date.Format(forecaster.DateLayout))
		actual = append(actual, opts.LineData{Value: rec.Cases})
		if i == len(records)-1 && res.Len() > 0 {
			predicted = append(predicted, opts.LineData{Value: rec.Cases})
		} else {
			predicted = append(predicted, opts.LineData{Value: missingPoint})
		}
	}
	for _, p := range res.Points() {
		xAxis = append(xAxis, p.Date.Format(forecaster.DateLayout))
		actual = append(actual, opts.LineData{Value: missingPoint})
		predicted = append(predicted, opts.LineData{Value: p.Cases})
	}

	line := newLine(disease+" Case Forecast for "+country, "Cases")
	line.SetXAxis(xAxis).
		AddSeries("Actual", actual,
			charts.WithLineStyleOpts(opts.LineStyle{Color: CasesColor, Width: 2}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		).
		AddSeries("Forecast", predicted,
			charts.WithLineStyleOpts(opts.LineStyle{Color: ForecastColor, Width: 2, Type: "dashed"}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	return line
}

// Page renders the charts into a single html page
func Page(w io.Writer, title string, charters ...components.Charter) error {
	page := components.NewPage()
	if title != "" {
		page.SetPageTitle(title)
	}
	page.AddCharts(charters...)
	return page.Render(w)
}
