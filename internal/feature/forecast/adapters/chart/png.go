// Package chart renders forecasts as images and HTML pages.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"qs_forecast/internal/feature/forecast/domain/entity"
)

// ErrEmptyForecast is returned when there is nothing to draw.
var ErrEmptyForecast = errors.New("chart: forecast has no rows")

var (
	actualColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	forecastColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	bandColor     = color.RGBA{R: 255, G: 127, B: 14, A: 60}
	todayColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// PNGRenderer draws a forecast as a static PNG with gonum/plot.
type PNGRenderer struct {
	Width, Height vg.Length
}

// NewPNGRenderer returns a renderer for a 10x5 inch canvas.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{Width: 10 * vg.Inch, Height: 5 * vg.Inch}
}

// Render draws history points, the forecast line with its band and a "Today" marker.
// The plot and canvas are local to the call; only the encoded bytes are returned.
func (r *PNGRenderer) Render(f *entity.Forecast) ([]byte, error) {
	if f == nil || len(f.Fitted) == 0 {
		return nil, ErrEmptyForecast
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Stock Price Forecast (Next %d Days)", f.Symbol, len(f.Future))
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Closing Price (USD)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	band, err := plotter.NewPolygon(bandXYs(f.Fitted))
	if err != nil {
		return nil, fmt.Errorf("chart band: %w", err)
	}
	band.Color = bandColor
	band.LineStyle.Width = 0

	line, err := plotter.NewLine(forecastXYs(f.Fitted))
	if err != nil {
		return nil, fmt.Errorf("chart forecast: %w", err)
	}
	line.LineStyle.Color = forecastColor
	line.LineStyle.Width = vg.Points(1.5)

	p.Add(band, line)
	p.Legend.Add("Forecast", line)
	p.Legend.Add("Confidence Interval", band)

	if len(f.History) > 0 {
		actual, err := plotter.NewScatter(historyXYs(f.History))
		if err != nil {
			return nil, fmt.Errorf("chart history: %w", err)
		}
		actual.GlyphStyle.Color = actualColor
		actual.GlyphStyle.Radius = vg.Points(1.5)
		actual.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(actual)
		p.Legend.Add("Actual", actual)
	}

	lo, hi := yRange(f)
	today := unix(f.GeneratedAt)
	marker, err := plotter.NewLine(plotter.XYs{{X: today, Y: lo}, {X: today, Y: hi}})
	if err != nil {
		return nil, fmt.Errorf("chart today marker: %w", err)
	}
	marker.LineStyle.Color = todayColor
	marker.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	label, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: today, Y: hi}},
		Labels: []string{"Today"},
	})
	if err != nil {
		return nil, fmt.Errorf("chart today label: %w", err)
	}
	p.Add(marker, label)

	wt, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("chart canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("chart encode: %w", err)
	}
	return buf.Bytes(), nil
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}

func historyXYs(history []entity.PriceObservation) plotter.XYs {
	xys := make(plotter.XYs, len(history))
	for i, h := range history {
		xys[i] = plotter.XY{X: unix(h.Date), Y: h.Close}
	}
	return xys
}

func forecastXYs(rows []entity.ForecastPoint) plotter.XYs {
	xys := make(plotter.XYs, len(rows))
	for i, r := range rows {
		xys[i] = plotter.XY{X: unix(r.Date), Y: r.Predicted}
	}
	return xys
}

// bandXYs walks the upper bound forward and the lower bound back to close the ring.
func bandXYs(rows []entity.ForecastPoint) plotter.XYs {
	xys := make(plotter.XYs, 0, 2*len(rows))
	for _, r := range rows {
		xys = append(xys, plotter.XY{X: unix(r.Date), Y: r.Upper})
	}
	for i := len(rows) - 1; i >= 0; i-- {
		xys = append(xys, plotter.XY{X: unix(rows[i].Date), Y: rows[i].Lower})
	}
	return xys
}

func yRange(f *entity.Forecast) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, h := range f.History {
		lo, hi = math.Min(lo, h.Close), math.Max(hi, h.Close)
	}
	for _, r := range f.Fitted {
		lo, hi = math.Min(lo, r.Lower), math.Max(hi, r.Upper)
	}
	return lo, hi
}
