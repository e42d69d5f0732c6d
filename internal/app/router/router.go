// Package router wires HTTP routes to handlers.
package router

import (
	"github.com/gin-gonic/gin"

	"qs_forecast/internal/feature/forecast/transport/handler"
	"qs_forecast/internal/feature/forecast/usecase"
	platformhandler "qs_forecast/internal/platform/http/handler"
	"qs_forecast/internal/platform/metrics"
)

// NewRouter builds the gin engine. rec may be nil to disable metrics.
func NewRouter(forecast *handler.ForecastHandler, rec *metrics.Recorder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if rec != nil {
		r.Use(rec.Middleware())
		r.GET("/metrics", gin.WrapH(rec.Handler()))
	}

	// liveness check
	health := platformhandler.Health(usecase.Symbol)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	r.OPTIONS("/healthz", health)

	r.GET("/", forecast.Home)

	api := r.Group("/api")
	{
		api.GET("/qs-trend", forecast.Trend)
		api.GET("/qs-chart", forecast.Chart)
		api.GET("/qs-chart.html", forecast.ChartHTML)
	}

	return r
}
