// Package handler provides the HTTP handlers of the forecast feature.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qs_forecast/internal/feature/forecast/domain"
	"qs_forecast/internal/feature/forecast/domain/entity"
	"qs_forecast/internal/feature/forecast/transport/http/dto"
)

// HeaderErrorKind carries the domain error kind of a failed request.
const HeaderErrorKind = "X-Error-Kind"

const homePage = "<h1>Welcome to the QS Forecast API</h1>" +
	"<p>Try <a href='/api/qs-chart'>/api/qs-chart</a> or <a href='/api/qs-trend'>/api/qs-trend</a></p>"

// ForecastUsecase runs the fetch-fit-predict pipeline.
// Following Go convention, the interface is defined by the consumer (handler).
type ForecastUsecase interface {
	Forecast(ctx context.Context) (*entity.Forecast, error)
}

// Renderer encodes a forecast as a chart.
type Renderer interface {
	Render(f *entity.Forecast) ([]byte, error)
}

// Metrics receives render timings and error counts. It may be nil.
type Metrics interface {
	ObserveStage(stage string, d time.Duration)
	RecordError(kind string)
}

// ForecastHandler serves the landing page, the JSON trend and the charts.
type ForecastHandler struct {
	uc      ForecastUsecase
	png     Renderer
	html    Renderer
	metrics Metrics
}

// NewForecastHandler creates a ForecastHandler. html and metrics may be nil.
func NewForecastHandler(uc ForecastUsecase, png, html Renderer, metrics Metrics) *ForecastHandler {
	return &ForecastHandler{uc: uc, png: png, html: html, metrics: metrics}
}

// Home serves the static landing page. It never runs the pipeline.
//
// GET /
func (h *ForecastHandler) Home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(homePage))
}

// Trend returns the next Horizon days of the forecast as JSON.
//
// GET /api/qs-trend
func (h *ForecastHandler) Trend(c *gin.Context) {
	f, err := h.uc.Forecast(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]dto.ForecastPointResponse, 0, len(f.Future))
	for _, p := range f.Future {
		out = append(out, dto.ForecastPointResponse{
			Date:      p.Date.UTC().Format(http.TimeFormat),
			Predicted: p.Predicted,
			Lower:     p.Lower,
			Upper:     p.Upper,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Chart returns the forecast as a PNG image.
//
// GET /api/qs-chart
func (h *ForecastHandler) Chart(c *gin.Context) {
	h.render(c, h.png, "image/png")
}

// ChartHTML returns the forecast as an interactive HTML chart.
//
// GET /api/qs-chart.html
func (h *ForecastHandler) ChartHTML(c *gin.Context) {
	h.render(c, h.html, "text/html; charset=utf-8")
}

func (h *ForecastHandler) render(c *gin.Context, r Renderer, contentType string) {
	if r == nil {
		h.fail(c, domain.Wrap(domain.KindRender, errors.New("renderer not configured")))
		return
	}

	f, err := h.uc.Forecast(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	began := time.Now()
	b, err := r.Render(f)
	if h.metrics != nil {
		h.metrics.ObserveStage("render", time.Since(began))
	}
	if err != nil {
		h.fail(c, domain.Wrap(domain.KindRender, err))
		return
	}

	c.Data(http.StatusOK, contentType, b)
}

// fail answers every pipeline error with 500 and the error message; the kind travels in a header.
func (h *ForecastHandler) fail(c *gin.Context, err error) {
	kind := domain.KindOf(err)

	if errors.Is(err, context.Canceled) {
		slog.Info("forecast request cancelled", "path", c.FullPath(), "kind", kind)
	} else {
		slog.Error("forecast request failed", "path", c.FullPath(), "kind", kind, "error", err)
	}
	if h.metrics != nil {
		h.metrics.RecordError(string(kind))
	}

	c.Header(HeaderErrorKind, string(kind))
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
}
