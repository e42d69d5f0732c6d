// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"log/slog"
	"time"

	"qs_forecast/internal/app/config"
	"qs_forecast/internal/feature/forecast/usecase"
	"qs_forecast/internal/platform/cache"
	"qs_forecast/internal/platform/externalapi/twelvedata"
	"qs_forecast/internal/platform/externalapi/yahoo"
	infrahttp "qs_forecast/internal/platform/http"
	infraredis "qs_forecast/internal/platform/redis"
	"qs_forecast/internal/shared/ratelimiter"
)

// NewMarket creates the configured market data provider with its HTTP client.
func NewMarket(cfg *config.Config) usecase.MarketRepository {
	httpClient := infrahttp.NewHTTPClient(cfg.MarketTimeout)

	if cfg.MarketProvider == config.ProviderTwelveData {
		return twelvedata.NewTwelveDataMarket(twelvedata.Config{
			TwelveDataAPIKey: cfg.TwelveDataAPIKey,
			BaseURL:          cfg.TwelveDataBaseURL,
			Limiter:          ratelimiter.NewRateLimiter(cfg.TwelveDataRateLimit, time.Minute),
		}, httpClient)
	}
	return yahoo.NewYahooMarket(yahoo.Config{
		BaseURL: cfg.YahooBaseURL,
	}, httpClient)
}

// NewCachedMarket wraps inner with the Redis price cache when REDIS_HOST is set and reachable.
// Otherwise it returns inner unchanged. The returned func releases the Redis client.
func NewCachedMarket(ctx context.Context, cfg *config.Config, inner usecase.MarketRepository) (usecase.MarketRepository, func()) {
	noop := func() {}
	if !cfg.CacheEnabled() {
		return inner, noop
	}

	rdb, err := infraredis.NewRedisClient(ctx, infraredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		slog.Warn("Redis unavailable. Running without price cache.", "error", err)
		return inner, noop
	}

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close Redis client", "error", err)
		}
	}
	return cache.NewCachingPriceRepository(rdb, nil, inner, "prices"), closeFn
}
