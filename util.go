package forecaster

import (
	"math"
	"time"

	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DateLayout is the calendar date format used on chart axes and in exports
const DateLayout = "2006-01-02"

// missingPoint is rendered by echarts as a gap in the line
const missingPoint = "-"

// LineForecaster generates an echart line chart for the training data along with the in-sample
// fit over the training window and the forecast past the training data.
func LineForecaster(trainingData *timedataset.TimeDataset, fitRes, forecastRes *Results) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Forecast Fit",
			},
		),
	)

	n := trainingData.Len() + forecastRes.Len()
	xAxis := make([]string, 0, n)
	lineDataActual := make([]opts.LineData, 0, n)
	lineDataFit := make([]opts.LineData, 0, n)
	lineDataForecast := make([]opts.LineData, 0, n)

	fitByDate := make(map[time.Time]float64, fitRes.Len())
	for i, ct := range fitRes.T {
		fitByDate[ct] = fitRes.Forecast[i]
	}

	for i, ct := range trainingData.T {
		xAxis = append(xAxis, ct.Format(DateLayout))
		lineDataActual = append(lineDataActual, lineValue(trainingData.Y[i]))
		if v, ok := fitByDate[ct]; ok {
			lineDataFit = append(lineDataFit, lineValue(v))
		} else {
			lineDataFit = append(lineDataFit, opts.LineData{Value: missingPoint})
		}
		lineDataForecast = append(lineDataForecast, opts.LineData{Value: missingPoint})
	}
	for i, ct := range forecastRes.T {
		xAxis = append(xAxis, ct.Format(DateLayout))
		lineDataActual = append(lineDataActual, opts.LineData{Value: missingPoint})
		lineDataFit = append(lineDataFit, opts.LineData{Value: missingPoint})
		lineDataForecast = append(lineDataForecast, opts.LineData{Value: forecastRes.Cases[i]})
	}

	line.SetXAxis(xAxis).
		AddSeries("Actual", lineDataActual).
		AddSeries("Fit", lineDataFit).
		AddSeries("Forecast", lineDataForecast)
	return line
}

func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.LineData{Value: missingPoint}
	}
	return opts.LineData{Value: math.Round(v*100) / 100}
}
