package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"qs_forecast/internal/feature/forecast/domain/entity"
	"qs_forecast/internal/feature/forecast/usecase"
	"qs_forecast/internal/platform/externalapi/yahoo/dto"
)

// YahooMarket fetches daily closing prices from the Yahoo Finance chart API.
type YahooMarket struct {
	cfg    Config
	client *http.Client
}

var _ usecase.MarketRepository = (*YahooMarket)(nil)

// NewYahooMarket creates a YahooMarket with the given configuration and HTTP client.
func NewYahooMarket(cfg Config, client *http.Client) *YahooMarket {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	return &YahooMarket{cfg: cfg, client: client}
}

// GetClosingPrices returns the daily closes of symbol for the calendar dates start..end inclusive.
func (y *YahooMarket) GetClosingPrices(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.cfg.BaseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", y.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart dto.ChartResponse
	decodeErr := json.Unmarshal(body, &chart)

	// Yahoo reports unknown symbols as 404 with an error object, so prefer its description.
	if decodeErr == nil && chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: %s", chart.Chart.Error.Description)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("yahoo http %d", res.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("yahoo decode: %w", decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return []entity.PriceObservation{}, nil
	}

	return toObservations(chart.Chart.Result[0])
}

// toObservations converts a chart result to calendar-dated closes in exchange local time,
// skipping null bars and keeping the last bar of any repeated date.
func toObservations(r dto.ChartResult) ([]entity.PriceObservation, error) {
	var closes []*float64
	if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}
	if len(closes) != len(r.Timestamp) {
		return nil, fmt.Errorf("yahoo: %d timestamps but %d closes", len(r.Timestamp), len(closes))
	}

	byDate := make(map[time.Time]float64, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if closes[i] == nil {
			continue
		}
		local := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		byDate[d] = *closes[i]
	}

	out := make([]entity.PriceObservation, 0, len(byDate))
	for d, c := range byDate {
		out = append(out, entity.PriceObservation{Date: d, Close: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
