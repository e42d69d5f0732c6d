package entity

import "time"

// ForecastPoint is a single model output row. Lower <= Predicted <= Upper.
type ForecastPoint struct {
	Date      time.Time
	Predicted float64
	Lower     float64
	Upper     float64
}

// Forecast is the result of one fetch-fit-predict run.
type Forecast struct {
	Symbol      string
	GeneratedAt time.Time          // "Today" as seen by the pipeline
	History     []PriceObservation // Observed closes, ascending
	Fitted      []ForecastPoint    // Model rows for every history date plus the horizon
	Future      []ForecastPoint    // Trailing horizon rows of Fitted
}
