// Package yahoo provides a client for the Yahoo Finance chart API.
package yahoo

// DefaultBaseURL is the public Yahoo Finance query host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Config holds configuration for the Yahoo Finance client.
type Config struct {
	BaseURL   string // Base URL for the API (e.g., "https://query1.finance.yahoo.com")
	UserAgent string // Yahoo rejects requests without a browser-like User-Agent
}
