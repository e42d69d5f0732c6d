package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"qs_forecast/internal/feature/forecast/domain/entity"
	"qs_forecast/internal/feature/forecast/usecase"
	"qs_forecast/internal/platform/externalapi/twelvedata/dto"
)

// maxOutputSize is the largest page Twelve Data serves for one time_series call.
const maxOutputSize = 5000

// TwelveDataMarket fetches daily closing prices from the Twelve Data API.
type TwelveDataMarket struct {
	cfg    Config
	client *http.Client
}

var _ usecase.MarketRepository = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket creates a TwelveDataMarket with the given configuration and HTTP client.
func NewTwelveDataMarket(cfg Config, client *http.Client) *TwelveDataMarket {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &TwelveDataMarket{cfg: cfg, client: client}
}

// GetClosingPrices returns the daily closes of symbol between start and end, ascending.
func (t *TwelveDataMarket) GetClosingPrices(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1day")
	q.Set("start_date", start.Format(time.DateOnly))
	q.Set("end_date", end.AddDate(0, 0, 1).Format(time.DateOnly))
	q.Set("outputsize", strconv.Itoa(maxOutputSize))
	q.Set("order", "ASC")
	q.Set("apikey", t.cfg.TwelveDataAPIKey)

	u := fmt.Sprintf("%s/time_series?%s", t.cfg.BaseURL, q.Encode())

	if t.cfg.Limiter != nil {
		if err := t.cfg.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("twelvedata http %d", res.StatusCode)
	}

	var body dto.TimeSeriesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		// An empty window is reported as an error, but to callers it is just no data.
		if body.Code == http.StatusBadRequest && strings.Contains(body.Message, "No data is available") {
			return []entity.PriceObservation{}, nil
		}
		return nil, fmt.Errorf("twelvedata: %s", body.Message)
	}

	prices := make([]entity.PriceObservation, 0, len(body.Values))
	for _, v := range body.Values {
		tm, err := time.Parse("2006-01-02 15:04:05", v.Datetime)
		if err != nil {
			tm, err = time.Parse(time.DateOnly, v.Datetime)
			if err != nil {
				return nil, fmt.Errorf("parse time %q: %w", v.Datetime, err)
			}
		}
		c, err := strconv.ParseFloat(v.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", v.Close, err)
		}
		prices = append(prices, entity.PriceObservation{
			Date:  time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC),
			Close: c,
		})
	}

	// values default to newest first
	sort.SliceStable(prices, func(i, j int) bool { return prices[i].Date.Before(prices[j].Date) })
	return dedupeByDate(prices), nil
}

// dedupeByDate keeps the last observation of each date in an ascending slice.
func dedupeByDate(prices []entity.PriceObservation) []entity.PriceObservation {
	out := prices[:0]
	for _, p := range prices {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
