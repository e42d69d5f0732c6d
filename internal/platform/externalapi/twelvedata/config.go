// Package twelvedata provides a client for the Twelve Data stock market API.
package twelvedata

import "qs_forecast/internal/shared/ratelimiter"

// DefaultBaseURL is the public Twelve Data API host.
const DefaultBaseURL = "https://api.twelvedata.com"

// Config holds configuration for the Twelve Data API client.
type Config struct {
	TwelveDataAPIKey string                           // API key for authentication
	BaseURL          string                           // Base URL for the API (e.g., "https://api.twelvedata.com")
	Limiter          ratelimiter.RateLimiterInterface // optional; the free plan allows 8 calls per minute
}
