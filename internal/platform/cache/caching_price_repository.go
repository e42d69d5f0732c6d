// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"qs_forecast/internal/feature/forecast/domain/entity"
	"qs_forecast/internal/feature/forecast/usecase"
)

// CachingPriceRepository decorates a MarketRepository with Redis caching.
// A nil client turns it into a pass-through.
type CachingPriceRepository struct {
	inner     usecase.MarketRepository
	rdb       *redis.Client
	ttl       func() time.Duration
	namespace string
}

var _ usecase.MarketRepository = (*CachingPriceRepository)(nil)

// NewCachingPriceRepository wraps inner. If ttl is nil, entries live until TimeUntilNextRefresh.
// If namespace is empty, it uses "prices".
func NewCachingPriceRepository(rdb *redis.Client, ttl func() time.Duration, inner usecase.MarketRepository, namespace string) *CachingPriceRepository {
	if ttl == nil {
		ttl = TimeUntilNextRefresh
	}
	if namespace == "" {
		namespace = "prices"
	}
	return &CachingPriceRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// GetClosingPrices checks the cache first and falls back to the wrapped provider.
func (c *CachingPriceRepository) GetClosingPrices(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error) {
	if c.rdb == nil {
		return c.inner.GetClosingPrices(ctx, symbol, start, end)
	}

	key := c.cacheKey(symbol, start, end)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.PriceObservation
		if err := json.Unmarshal(b, &out); err == nil {
			slog.Debug("price cache hit", "key", key, "rows", len(out))
			return out, nil
		}
		// corrupt entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.GetClosingPrices(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	// empty windows are never cached
	if len(out) == 0 {
		return out, nil
	}

	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl()).Err(); err != nil {
			slog.Warn("price cache write failed", "key", key, "error", err)
		}
	}
	return out, nil
}

// cacheKey generates a cache key for one symbol and date window.
func (c *CachingPriceRepository) cacheKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s",
		c.namespace,
		safe(symbol),
		start.Format(time.DateOnly),
		end.Format(time.DateOnly),
	)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
