package forecaster

// Toggle selects whether a seasonality component is fitted.
type Toggle int

const (
	// Auto enables the component when the history is long enough to identify it.
	Auto Toggle = iota
	// On always fits the component.
	On
	// Off never fits the component.
	Off
)

const (
	weeklyPeriodDays = 7.0
	yearlyPeriodDays = 365.25

	// minimum history spans for Auto seasonality
	minWeeklySpanDays = 14.0
	minYearlySpanDays = 730.0
)

// Options controls model structure and regularization.
type Options struct {
	// NumChangepoints is the maximum number of potential trend changepoints.
	NumChangepoints int
	// ChangepointRange is the leading fraction of the history in which changepoints are placed.
	ChangepointRange float64
	// ChangepointPenalty is the ridge weight on changepoint slope deltas, in scaled units.
	ChangepointPenalty float64
	// SeasonalityPenalty is the ridge weight on Fourier coefficients, in scaled units.
	SeasonalityPenalty float64

	Weekly      Toggle
	WeeklyOrder int
	Yearly      Toggle
	YearlyOrder int

	// IntervalWidth is the coverage of the uncertainty band, e.g. 0.8.
	IntervalWidth float64
}

// NewDefaultOptions returns the options used by the service.
func NewDefaultOptions() *Options {
	return &Options{
		NumChangepoints:    25,
		ChangepointRange:   0.8,
		ChangepointPenalty: 1.0,
		SeasonalityPenalty: 0.01,
		Weekly:             Auto,
		WeeklyOrder:        3,
		Yearly:             Auto,
		YearlyOrder:        10,
		IntervalWidth:      0.8,
	}
}

func (t Toggle) enabled(spanDays, minSpanDays float64) bool {
	switch t {
	case On:
		return true
	case Off:
		return false
	default:
		return spanDays >= minSpanDays
	}
}
