package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var (
	testStart = time.Date(2024, 10, 19, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
)

func TestNewTwelveDataMarket(t *testing.T) {
	t.Parallel()

	cfg := Config{
		TwelveDataAPIKey: "test-key",
	}
	client := &http.Client{}

	market := NewTwelveDataMarket(cfg, client)

	if market == nil {
		t.Fatal("expected non-nil market")
	}
	if market.cfg.TwelveDataAPIKey != cfg.TwelveDataAPIKey {
		t.Errorf("expected API key %q, got %q", cfg.TwelveDataAPIKey, market.cfg.TwelveDataAPIKey)
	}
	if market.cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL %q, got %q", DefaultBaseURL, market.cfg.BaseURL)
	}
}

func TestTwelveDataMarket_GetClosingPrices_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "QS" {
			t.Errorf("expected symbol QS, got %s", q.Get("symbol"))
		}
		if q.Get("interval") != "1day" {
			t.Errorf("expected interval 1day, got %s", q.Get("interval"))
		}
		if q.Get("start_date") != "2024-10-19" {
			t.Errorf("expected start_date 2024-10-19, got %s", q.Get("start_date"))
		}
		if q.Get("end_date") != "2026-10-20" {
			t.Errorf("expected end_date 2026-10-20, got %s", q.Get("end_date"))
		}
		if q.Get("apikey") != "test-key" {
			t.Errorf("expected apikey test-key, got %s", q.Get("apikey"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		// newest first, as the API returns by default
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"meta": {"symbol": "QS", "interval": "1day", "currency": "USD"},
			"values": [
				{"datetime": "2025-01-15", "close": "154.50"},
				{"datetime": "2025-01-14 09:30:00", "close": "150.00"}
			]
		}`))
	}))
	defer server.Close()

	market := NewTwelveDataMarket(Config{TwelveDataAPIKey: "test-key", BaseURL: server.URL}, server.Client())

	prices, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(prices))
	}

	if !prices[0].Date.Equal(time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected first date 2025-01-14, got %v", prices[0].Date)
	}
	if prices[0].Close != 150.00 {
		t.Errorf("expected close 150.00, got %f", prices[0].Close)
	}
	if prices[1].Close != 154.50 {
		t.Errorf("expected close 154.50, got %f", prices[1].Close)
	}
}

func TestTwelveDataMarket_GetClosingPrices_DuplicateDates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"values": [
				{"datetime": "2025-01-14", "close": "1.0"},
				{"datetime": "2025-01-14 16:00:00", "close": "2.0"},
				{"datetime": "2025-01-15", "close": "3.0"}
			]
		}`))
	}))
	defer server.Close()

	market := NewTwelveDataMarket(Config{BaseURL: server.URL}, server.Client())

	prices, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(prices))
	}
	if prices[0].Close != 2.0 {
		t.Errorf("expected the later duplicate to win, got %f", prices[0].Close)
	}
}

func TestTwelveDataMarket_GetClosingPrices_HTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
	}{
		{"bad request", http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden},
		{"not found", http.StatusNotFound},
		{"internal server error", http.StatusInternalServerError},
		{"service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			market := NewTwelveDataMarket(Config{TwelveDataAPIKey: "test-key", BaseURL: server.URL}, server.Client())

			_, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), "twelvedata http") {
				t.Errorf("expected HTTP error message, got %v", err)
			}
		})
	}
}

func TestTwelveDataMarket_GetClosingPrices_APIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code": 401, "status": "error", "message": "Invalid API key"}`))
	}))
	defer server.Close()

	market := NewTwelveDataMarket(Config{TwelveDataAPIKey: "invalid-key", BaseURL: server.URL}, server.Client())

	_, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "twelvedata: Invalid API key" {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestTwelveDataMarket_GetClosingPrices_NoDataIsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 400, "status": "error", "message": "No data is available on the specified dates. Try setting different start/end dates."}`))
	}))
	defer server.Close()

	market := NewTwelveDataMarket(Config{BaseURL: server.URL}, server.Client())

	prices, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected 0 prices, got %d", len(prices))
	}
}

func TestTwelveDataMarket_GetClosingPrices_InvalidJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer server.Close()

	market := NewTwelveDataMarket(Config{BaseURL: server.URL}, server.Client())

	_, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestTwelveDataMarket_GetClosingPrices_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		errField string
	}{
		{
			name:     "invalid datetime",
			response: `{"status": "ok", "values": [{"datetime": "invalid-date", "close": "154.50"}]}`,
			errField: "parse time",
		},
		{
			name:     "invalid close",
			response: `{"status": "ok", "values": [{"datetime": "2025-01-15", "close": "bad"}]}`,
			errField: "parse close",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			market := NewTwelveDataMarket(Config{BaseURL: server.URL}, server.Client())

			_, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errField) {
				t.Errorf("expected error containing %q, got %v", tt.errField, err)
			}
		})
	}
}

func TestTwelveDataMarket_GetClosingPrices_EmptyValues(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok", "values": []}`))
	}))
	defer server.Close()

	market := NewTwelveDataMarket(Config{BaseURL: server.URL}, server.Client())

	prices, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected 0 prices, got %d", len(prices))
	}
}

func TestTwelveDataMarket_GetClosingPrices_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	market := NewTwelveDataMarket(Config{BaseURL: server.URL}, server.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := market.GetClosingPrices(ctx, "QS", testStart, testEnd)
	if err == nil {
		t.Fatal("expected error due to context cancellation, got nil")
	}
}

type stubLimiter struct {
	calls int
	err   error
}

func (s *stubLimiter) Wait(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestTwelveDataMarket_GetClosingPrices_WaitsForLimiter(t *testing.T) {
	t.Parallel()

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{"status": "ok", "values": []}`))
	}))
	defer server.Close()

	limiter := &stubLimiter{}
	market := NewTwelveDataMarket(Config{BaseURL: server.URL, Limiter: limiter}, server.Client())

	if _, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limiter.calls != 1 {
		t.Errorf("expected 1 limiter call, got %d", limiter.calls)
	}
	if requests != 1 {
		t.Errorf("expected 1 request, got %d", requests)
	}
}

func TestTwelveDataMarket_GetClosingPrices_LimiterError(t *testing.T) {
	t.Parallel()

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	market := NewTwelveDataMarket(Config{BaseURL: server.URL, Limiter: &stubLimiter{err: context.Canceled}}, server.Client())

	_, err := market.GetClosingPrices(context.Background(), "QS", testStart, testEnd)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if requests != 0 {
		t.Errorf("expected no request, got %d", requests)
	}
}
