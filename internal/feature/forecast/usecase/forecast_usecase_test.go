package usecase_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs_forecast/internal/feature/forecast/domain"
	"qs_forecast/internal/feature/forecast/domain/entity"
	"qs_forecast/internal/feature/forecast/usecase"
	"qs_forecast/internal/platform/forecaster"
)

// mockMarketRepository is a MarketRepository stub.
type mockMarketRepository struct {
	GetClosingPricesFunc func(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error)
}

func (m *mockMarketRepository) GetClosingPrices(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error) {
	return m.GetClosingPricesFunc(ctx, symbol, start, end)
}

// mockEngine is a ForecastEngine stub.
type mockEngine struct {
	ForecastFunc func(history []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error)
	calls        int
}

func (m *mockEngine) Forecast(history []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error) {
	m.calls++
	return m.ForecastFunc(history, periods)
}

// stageRecorder collects observed stage names.
type stageRecorder struct {
	mu     sync.Mutex
	stages []string
}

func (s *stageRecorder) ObserveStage(stage string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, stage)
}

var fixedNow = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// dailyHistory returns n business-day closes ending on the Friday before fixedNow.
func dailyHistory(n int) []entity.PriceObservation {
	out := make([]entity.PriceObservation, 0, n)
	d := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	for len(out) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			i := float64(n - len(out))
			out = append(out, entity.PriceObservation{Date: d, Close: 6 + 0.01*i + 0.2*math.Sin(i/9)})
		}
		d = d.AddDate(0, 0, -1)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// echoEngine returns one row per history date plus periods future days.
func echoEngine(history []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error) {
	out := make([]entity.ForecastPoint, 0, len(history)+periods)
	for _, h := range history {
		out = append(out, entity.ForecastPoint{Date: h.Date, Predicted: h.Close, Lower: h.Close - 1, Upper: h.Close + 1})
	}
	last := history[len(history)-1]
	for i := 1; i <= periods; i++ {
		out = append(out, entity.ForecastPoint{Date: last.Date.AddDate(0, 0, i), Predicted: last.Close, Lower: last.Close - 1, Upper: last.Close + 1})
	}
	return out, nil
}

func TestForecastUsecase_Forecast_Success(t *testing.T) {
	t.Parallel()

	history := dailyHistory(40)
	market := &mockMarketRepository{
		GetClosingPricesFunc: func(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error) {
			assert.Equal(t, usecase.Symbol, symbol)
			assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), end)
			assert.Equal(t, time.Date(2024, 10, 19, 0, 0, 0, 0, time.UTC), start)
			return history, nil
		},
	}
	engine := &mockEngine{ForecastFunc: func(h []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error) {
		assert.Equal(t, usecase.Horizon, periods)
		return echoEngine(h, periods)
	}}
	stages := &stageRecorder{}

	uc := usecase.NewForecastUsecase(market, engine, usecase.WithClock(clock), usecase.WithObserver(stages))
	f, err := uc.Forecast(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "QS", f.Symbol)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), f.GeneratedAt)
	assert.Equal(t, history, f.History)
	assert.Len(t, f.Fitted, len(history)+usecase.Horizon)
	require.Len(t, f.Future, usecase.Horizon)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), f.Future[0].Date)
	assert.Equal(t, time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC), f.Future[usecase.Horizon-1].Date)
	assert.Equal(t, []string{"fetch", "fit"}, stages.stages)
}

func TestForecastUsecase_Forecast_Errors(t *testing.T) {
	t.Parallel()

	upstreamErr := errors.New("yahoo http 503")
	fitErr := errors.New("singular system")

	tests := []struct {
		name        string
		prices      []entity.PriceObservation
		marketErr   error
		engine      func(h []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error)
		wantKind    domain.Kind
		wantErr     error
		wantMessage string
		wantFit     bool
	}{
		{
			name:        "provider error",
			marketErr:   upstreamErr,
			wantKind:    domain.KindUpstream,
			wantErr:     upstreamErr,
			wantMessage: "yahoo http 503",
		},
		{
			name:     "empty history",
			prices:   []entity.PriceObservation{},
			wantKind: domain.KindDataUnavailable,
			wantErr:  domain.ErrNoPriceData,
		},
		{
			name:   "engine error",
			prices: dailyHistory(5),
			engine: func(h []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error) {
				return nil, fitErr
			},
			wantKind:    domain.KindModelFit,
			wantErr:     fitErr,
			wantMessage: "singular system",
			wantFit:     true,
		},
		{
			name:   "engine returns too few rows",
			prices: dailyHistory(5),
			engine: func(h []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error) {
				rows, _ := echoEngine(h, periods)
				return rows[:periods-1], nil
			},
			wantKind: domain.KindModelFit,
			wantFit:  true,
		},
		{
			name:   "engine omits future rows",
			prices: dailyHistory(40),
			engine: func(h []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error) {
				rows, _ := echoEngine(h, 0)
				return rows, nil
			},
			wantKind: domain.KindModelFit,
			wantFit:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			market := &mockMarketRepository{
				GetClosingPricesFunc: func(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error) {
					return tt.prices, tt.marketErr
				},
			}
			engineFn := tt.engine
			if engineFn == nil {
				engineFn = echoEngine
			}
			engine := &mockEngine{ForecastFunc: engineFn}

			uc := usecase.NewForecastUsecase(market, engine, usecase.WithClock(clock))
			f, err := uc.Forecast(context.Background())

			require.Error(t, err)
			assert.Nil(t, f)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMessage != "" {
				assert.EqualError(t, err, tt.wantMessage)
			}
			assert.Equal(t, tt.wantFit, engine.calls > 0)
		})
	}
}

func TestForecastUsecase_Forecast_RealEngineIsIdempotent(t *testing.T) {
	t.Parallel()

	history := dailyHistory(300)
	market := &mockMarketRepository{
		GetClosingPricesFunc: func(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error) {
			return history, nil
		},
	}
	uc := usecase.NewForecastUsecase(market, forecaster.New(nil), usecase.WithClock(clock))

	first, err := uc.Forecast(context.Background())
	require.NoError(t, err)
	second, err := uc.Forecast(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Future, second.Future)
	require.Len(t, first.Future, usecase.Horizon)

	last := history[len(history)-1].Date
	for i, p := range first.Future {
		assert.Equal(t, last.AddDate(0, 0, i+1), p.Date)
		assert.LessOrEqual(t, p.Lower, p.Predicted)
		assert.LessOrEqual(t, p.Predicted, p.Upper)
	}
}

func TestForecastUsecase_Forecast_ContextIsForwarded(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	market := &mockMarketRepository{
		GetClosingPricesFunc: func(ctx context.Context, symbol string, start, end time.Time) ([]entity.PriceObservation, error) {
			return nil, ctx.Err()
		},
	}
	uc := usecase.NewForecastUsecase(market, &mockEngine{ForecastFunc: echoEngine}, usecase.WithClock(clock))

	_, err := uc.Forecast(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
}
