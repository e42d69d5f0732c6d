// Package forecaster fits an additive trend + seasonality model to a daily series and
// produces point forecasts with uncertainty bands.
//
// The model is y(t) = trend(t) + seasonality(t) + noise where the trend is piecewise linear
// with changepoints spread over the leading part of the history and seasonality is a sum of
// Fourier terms. Coefficients are solved in closed form with ridge penalties, so fitting the
// same series twice gives identical results.
package forecaster

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"qs_forecast/internal/feature/forecast/domain/entity"
	"qs_forecast/internal/feature/forecast/usecase"
)

var (
	ErrInsufficientData = errors.New("series has less than 2 non-NaN rows")
	ErrNonMonotonic     = errors.New("time feature is not monotonic")
	ErrLenMismatch      = errors.New("time feature has a different length than observations")
	ErrSingularFit      = errors.New("unable to solve for model coefficients")
	ErrInvalidPeriods   = errors.New("periods must be positive")
)

const secondsPerDay = 86400.0

var _ usecase.ForecastEngine = (*Forecaster)(nil)

// Forecaster fits a fresh Model on every call. It holds no per-fit state and is safe for
// concurrent use.
type Forecaster struct {
	opt *Options
}

// New creates a Forecaster. If opt is nil the defaults are used.
func New(opt *Options) *Forecaster {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	return &Forecaster{opt: opt}
}

// Model is a fitted forecast model.
type Model struct {
	start  time.Time
	span   float64 // seconds between first and last training point
	yScale float64

	changepoints []float64 // scaled time of each changepoint
	weeklyOrder  int
	yearlyOrder  int
	coef         []float64

	sigma        float64 // residual standard deviation in original units
	meanAbsDelta float64 // mean |changepoint delta| in scaled units
	z            float64

	trainT []time.Time
	trainY []float64
	fitted []float64
	scores *Scores
}

// Point is one prediction row.
type Point struct {
	T     time.Time
	Yhat  float64
	Lower float64
	Upper float64
}

// Fit trains a Model on t and y. Rows with a non-finite y are ignored.
func (f *Forecaster) Fit(t []time.Time, y []float64) (*Model, error) {
	if len(t) != len(y) {
		return nil, fmt.Errorf("time has length %d, values have length %d, %w", len(t), len(y), ErrLenMismatch)
	}

	ts := make([]time.Time, 0, len(t))
	ys := make([]float64, 0, len(y))
	for i := range t {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		if len(ts) > 0 && !t[i].After(ts[len(ts)-1]) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMonotonic)
		}
		ts = append(ts, t[i])
		ys = append(ys, y[i])
	}
	n := len(ts)
	if n < 2 {
		return nil, ErrInsufficientData
	}

	m := &Model{
		start:  ts[0],
		span:   ts[n-1].Sub(ts[0]).Seconds(),
		yScale: 1.0,
		trainT: ts,
		trainY: ys,
	}
	if absMax := math.Max(math.Abs(floats.Max(ys)), math.Abs(floats.Min(ys))); absMax > 0 {
		m.yScale = absMax
	}

	spanDays := m.span / secondsPerDay
	if f.opt.Weekly.enabled(spanDays, minWeeklySpanDays) {
		m.weeklyOrder = f.opt.WeeklyOrder
	}
	if f.opt.Yearly.enabled(spanDays, minYearlySpanDays) {
		m.yearlyOrder = f.opt.YearlyOrder
	}
	m.changepoints = placeChangepoints(ts, m, f.opt.NumChangepoints, f.opt.ChangepointRange)

	if err := m.solve(f.opt); err != nil {
		return nil, err
	}

	m.fitted = make([]float64, n)
	residual := make([]float64, n)
	for i := range ts {
		m.fitted[i] = m.mean(ts[i])
		residual[i] = ys[i] - m.fitted[i]
	}
	m.sigma = stat.StdDev(residual, nil)
	if math.IsNaN(m.sigma) {
		m.sigma = 0
	}

	if k := len(m.changepoints); k > 0 {
		deltas := make([]float64, k)
		for i, d := range m.coef[2 : 2+k] {
			deltas[i] = math.Abs(d)
		}
		m.meanAbsDelta = stat.Mean(deltas, nil)
	}

	width := f.opt.IntervalWidth
	if width <= 0 || width >= 1 {
		width = 0.8
	}
	m.z = distuv.UnitNormal.Quantile(0.5 + width/2)

	scores, err := NewScores(m.fitted, ys)
	if err != nil {
		return nil, err
	}
	m.scores = scores
	return m, nil
}

// placeChangepoints spreads up to num changepoints uniformly over the leading rangeFrac of
// the training points, excluding the first point.
func placeChangepoints(ts []time.Time, m *Model, num int, rangeFrac float64) []float64 {
	histSize := int(math.Floor(float64(len(ts)) * rangeFrac))
	if num+1 > histSize {
		num = histSize - 1
	}
	if num <= 0 {
		return nil
	}
	cps := make([]float64, 0, num)
	for i := 1; i <= num; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(num)))
		cps = append(cps, m.scaleT(ts[idx]))
	}
	return cps
}

// solve computes ridge-penalized least squares coefficients in scaled units.
func (m *Model) solve(opt *Options) error {
	n := len(m.trainT)
	p := m.numFeatures()

	x := mat.NewDense(n, p, nil)
	yv := mat.NewVecDense(n, nil)
	for i, t := range m.trainT {
		x.SetRow(i, m.features(t))
		yv.SetVec(i, m.trainY[i]/m.yScale)
	}

	var a mat.SymDense
	a.SymOuterK(1, x.T())

	penalty := m.penalties(opt)
	for i := 0; i < p; i++ {
		a.SetSym(i, i, a.At(i, i)+penalty[i])
	}

	var b mat.VecDense
	b.MulVec(x.T(), yv)

	var chol mat.Cholesky
	if ok := chol.Factorize(&a); !ok {
		return ErrSingularFit
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &b); err != nil {
		return fmt.Errorf("%w, %v", ErrSingularFit, err)
	}

	m.coef = make([]float64, p)
	for i := range m.coef {
		m.coef[i] = beta.AtVec(i)
	}
	return nil
}

func (m *Model) penalties(opt *Options) []float64 {
	p := make([]float64, m.numFeatures())
	// intercept and base slope are left unpenalized apart from a jitter that keeps the
	// system positive definite on degenerate inputs
	p[0], p[1] = 1e-10, 1e-10
	k := len(m.changepoints)
	for i := 2; i < 2+k; i++ {
		p[i] = opt.ChangepointPenalty
	}
	for i := 2 + k; i < len(p); i++ {
		p[i] = opt.SeasonalityPenalty
	}
	return p
}

func (m *Model) numFeatures() int {
	return 2 + len(m.changepoints) + 2*m.weeklyOrder + 2*m.yearlyOrder
}

func (m *Model) scaleT(t time.Time) float64 {
	return t.Sub(m.start).Seconds() / m.span
}

// features returns the design matrix row for t:
// [1, x, (x-c1)+ ... (x-ck)+, weekly fourier terms, yearly fourier terms]
func (m *Model) features(t time.Time) []float64 {
	x := m.scaleT(t)
	row := make([]float64, 0, m.numFeatures())
	row = append(row, 1, x)
	for _, c := range m.changepoints {
		row = append(row, math.Max(0, x-c))
	}
	days := float64(t.Unix()) / secondsPerDay
	row = appendFourier(row, days, weeklyPeriodDays, m.weeklyOrder)
	row = appendFourier(row, days, yearlyPeriodDays, m.yearlyOrder)
	return row
}

func appendFourier(row []float64, days, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * days / period
		row = append(row, math.Sin(arg), math.Cos(arg))
	}
	return row
}

func (m *Model) mean(t time.Time) float64 {
	return floats.Dot(m.features(t), m.coef) * m.yScale
}

// stddev is the residual noise plus, past the training range, the variance of a trend that
// keeps changing at the historical changepoint rate with the historical mean magnitude.
func (m *Model) stddev(t time.Time) float64 {
	variance := m.sigma * m.sigma
	if dx := m.scaleT(t) - 1; dx > 0 && len(m.changepoints) > 0 {
		rate := float64(len(m.changepoints))
		trendVar := rate * 2 * m.meanAbsDelta * m.meanAbsDelta * dx * dx * dx / 3
		variance += trendVar * m.yScale * m.yScale
	}
	return math.Sqrt(variance)
}

// Predict returns a row for every t.
func (m *Model) Predict(t []time.Time) []Point {
	out := make([]Point, len(t))
	for i, ti := range t {
		yhat := m.mean(ti)
		w := m.z * m.stddev(ti)
		out[i] = Point{T: ti, Yhat: yhat, Lower: yhat - w, Upper: yhat + w}
	}
	return out
}

// Scores returns the in-sample fit quality.
func (m *Model) Scores() *Scores {
	return m.scores
}

// Changepoints returns the number of trend changepoints in the model.
func (m *Model) Changepoints() int {
	return len(m.changepoints)
}

// Forecast fits history and predicts every history date plus periods consecutive calendar days
// after the last observation.
func (f *Forecaster) Forecast(history []entity.PriceObservation, periods int) ([]entity.ForecastPoint, error) {
	if periods <= 0 {
		return nil, ErrInvalidPeriods
	}
	t := make([]time.Time, len(history), len(history)+periods)
	y := make([]float64, len(history))
	for i, h := range history {
		t[i] = h.Date
		y[i] = h.Close
	}

	m, err := f.Fit(t, y)
	if err != nil {
		return nil, err
	}
	slog.Debug("model fitted",
		"observations", len(m.trainT),
		"changepoints", m.Changepoints(),
		"weekly_order", m.weeklyOrder,
		"yearly_order", m.yearlyOrder,
		"mse", m.scores.MSE,
		"mape", m.scores.MAPE)

	last := t[len(t)-1]
	for i := 1; i <= periods; i++ {
		t = append(t, last.AddDate(0, 0, i))
	}

	points := m.Predict(t)
	out := make([]entity.ForecastPoint, len(points))
	for i, p := range points {
		out[i] = entity.ForecastPoint{Date: p.T, Predicted: p.Yhat, Lower: p.Lower, Upper: p.Upper}
	}
	return out, nil
}
