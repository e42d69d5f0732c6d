package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"qs_forecast/internal/feature/forecast/domain/entity"
)

// HTMLRenderer draws a forecast as an interactive ECharts page.
type HTMLRenderer struct{}

// NewHTMLRenderer returns an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

// Render builds a line chart with Actual, Forecast, Lower and Upper series over the fitted dates.
func (r *HTMLRenderer) Render(f *entity.Forecast) ([]byte, error) {
	if f == nil || len(f.Fitted) == 0 {
		return nil, ErrEmptyForecast
	}

	title := fmt.Sprintf("%s Stock Price Forecast (Next %d Days)", f.Symbol, len(f.Future))

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1000px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "Generated " + f.GeneratedAt.Format(time.DateOnly),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Closing Price (USD)", Scale: opts.Bool(true)}),
	)

	closes := make(map[time.Time]float64, len(f.History))
	for _, h := range f.History {
		closes[h.Date] = h.Close
	}

	dates := make([]string, 0, len(f.Fitted))
	actual := make([]opts.LineData, 0, len(f.Fitted))
	forecast := make([]opts.LineData, 0, len(f.Fitted))
	lower := make([]opts.LineData, 0, len(f.Fitted))
	upper := make([]opts.LineData, 0, len(f.Fitted))
	for _, row := range f.Fitted {
		dates = append(dates, row.Date.Format(time.DateOnly))
		if c, ok := closes[row.Date]; ok {
			actual = append(actual, opts.LineData{Value: c})
		} else {
			// gaps render as breaks in the series
			actual = append(actual, opts.LineData{Value: "-"})
		}
		forecast = append(forecast, opts.LineData{Value: row.Predicted})
		lower = append(lower, opts.LineData{Value: row.Lower})
		upper = append(upper, opts.LineData{Value: row.Upper})
	}

	dashed := charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Width: 1})
	line.SetXAxis(dates).
		AddSeries("Actual", actual,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "circle", SymbolSize: 3}),
		).
		AddSeries("Forecast", forecast,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{
				Name:  "Today",
				XAxis: f.GeneratedAt.Format(time.DateOnly),
			}),
			charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
				Symbol:    []string{"none", "none"},
				Label:     &opts.Label{Show: opts.Bool(true), Formatter: "Today"},
				LineStyle: &opts.LineStyle{Type: "dashed", Color: "#d62728"},
			}),
		).
		AddSeries("Lower", lower, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}), dashed).
		AddSeries("Upper", upper, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}), dashed)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, fmt.Errorf("chart html: %w", err)
	}
	return buf.Bytes(), nil
}
