package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"qs_forecast/internal/app/config"
	"qs_forecast/internal/app/di"
	"qs_forecast/internal/app/router"
	"qs_forecast/internal/app/server"
	"qs_forecast/internal/feature/forecast/adapters/chart"
	"qs_forecast/internal/feature/forecast/transport/handler"
	"qs_forecast/internal/feature/forecast/usecase"
	"qs_forecast/internal/platform/forecaster"
	"qs_forecast/internal/platform/logger"
	"qs_forecast/internal/platform/metrics"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if _, err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("logger: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// metrics
	var (
		rec      *metrics.Recorder
		observer usecase.StageObserver
		hm       handler.Metrics
	)
	if cfg.MetricsEnabled {
		rec = metrics.New(nil)
		observer, hm = rec, rec
	}

	// market data, optionally behind Redis
	market, closeCache := di.NewCachedMarket(ctx, cfg, di.NewMarket(cfg))
	defer closeCache()

	// usecase
	forecastUC := usecase.NewForecastUsecase(market, forecaster.New(nil), usecase.WithObserver(observer))

	// handler
	forecastH := handler.NewForecastHandler(forecastUC, chart.NewPNGRenderer(), chart.NewHTMLRenderer(), hm)

	r := router.NewRouter(forecastH, rec)

	slog.Info("starting qs forecast service",
		"addr", cfg.Addr(),
		"provider", cfg.MarketProvider,
		"cache", cfg.CacheEnabled(),
		"metrics", cfg.MetricsEnabled)

	if err := server.New(cfg.Addr(), r, cfg.ShutdownTimeout).Run(ctx); err != nil {
		slog.Error("server stopped with error", "error", err)
		closeCache()
		os.Exit(1)
	}
}
