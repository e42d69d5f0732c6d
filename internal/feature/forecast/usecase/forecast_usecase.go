// Package usecase implements the fetch-fit-predict pipeline of the forecast feature.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qs_forecast/internal/feature/forecast/domain"
	"qs_forecast/internal/feature/forecast/domain/entity"
)

const (
	// Symbol is the only ticker this service forecasts.
	Symbol = "QS"
	// HistoryWindow is how far back the price history reaches from today.
	HistoryWindow = 730 * 24 * time.Hour
	// Horizon is the number of future calendar days forecast past the last observation.
	// The future slice of the model output is always taken with this same constant.
	Horizon = 30
)

// MarketRepository abstracts the market data provider.
// Following Go convention, the interface is defined by the consumer (usecase).
type MarketRepository interface {
	// GetClosingPrices returns daily closes in [start, end], ascending by date.
	GetClosingPrices(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error)
}

// ForecastEngine fits a model on history and predicts every history date plus periods future days.
type ForecastEngine interface {
	Forecast(history []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error)
}

// StageObserver receives pipeline stage timings. It may be nil.
type StageObserver interface {
	ObserveStage(stage string, d time.Duration)
}

// ForecastUsecase runs the forecast pipeline for Symbol.
type ForecastUsecase struct {
	market   MarketRepository
	engine   ForecastEngine
	observer StageObserver
	now      func() time.Time
}

// Option configures a ForecastUsecase.
type Option func(*ForecastUsecase)

// WithClock overrides the clock used to decide "today".
func WithClock(now func() time.Time) Option {
	return func(u *ForecastUsecase) { u.now = now }
}

// WithObserver reports stage durations to o.
func WithObserver(o StageObserver) Option {
	return func(u *ForecastUsecase) { u.observer = o }
}

// NewForecastUsecase creates a ForecastUsecase.
func NewForecastUsecase(market MarketRepository, engine ForecastEngine, opts ...Option) *ForecastUsecase {
	u := &ForecastUsecase{market: market, engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Forecast fetches the history window, fits the engine and returns the forecast.
func (u *ForecastUsecase) Forecast(ctx context.Context) (*entity.Forecast, error) {
	today := truncateToDate(u.now())
	start := today.Add(-HistoryWindow)

	began := time.Now()
	history, err := u.market.GetClosingPrices(ctx, Symbol, start, today)
	u.observe("fetch", began)
	if err != nil {
		return nil, domain.Wrap(domain.KindUpstream, err)
	}
	if len(history) == 0 {
		return nil, domain.Wrap(domain.KindDataUnavailable, domain.ErrNoPriceData)
	}

	began = time.Now()
	fitted, err := u.engine.Forecast(history, Horizon)
	u.observe("fit", began)
	if err != nil {
		return nil, domain.Wrap(domain.KindModelFit, err)
	}

	future, err := futureRows(fitted, history[len(history)-1].Date)
	if err != nil {
		return nil, domain.Wrap(domain.KindModelFit, err)
	}

	slog.Debug("forecast computed",
		"symbol", Symbol,
		"history", len(history),
		"last_observed", history[len(history)-1].Date.Format(time.DateOnly),
		"first_future", future[0].Date.Format(time.DateOnly))

	return &entity.Forecast{
		Symbol:      Symbol,
		GeneratedAt: today,
		History:     history,
		Fitted:      fitted,
		Future:      future,
	}, nil
}

// futureRows takes the trailing Horizon rows and checks they all lie after lastObserved.
func futureRows(fitted []entity.ForecastPoint, lastObserved time.Time) ([]entity.ForecastPoint, error) {
	if len(fitted) < Horizon {
		return nil, fmt.Errorf("model returned %d rows, need at least %d", len(fitted), Horizon)
	}
	future := fitted[len(fitted)-Horizon:]
	if !future[0].Date.After(lastObserved) {
		return nil, fmt.Errorf("forecast row %s is not after last observation %s",
			future[0].Date.Format(time.DateOnly), lastObserved.Format(time.DateOnly))
	}
	return future, nil
}

func (u *ForecastUsecase) observe(stage string, began time.Time) {
	if u.observer != nil {
		u.observer.ObserveStage(stage, time.Since(began))
	}
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
