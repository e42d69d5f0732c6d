package dto

// ForecastPointResponse is one future row of /api/qs-trend.
type ForecastPointResponse struct {
	Date      string  `json:"ds"`         // HTTP date, e.g. "Tue, 21 Oct 2026 00:00:00 GMT"
	Predicted float64 `json:"yhat"`       // Predicted close
	Lower     float64 `json:"yhat_lower"` // Lower bound of the 80% interval
	Upper     float64 `json:"yhat_upper"` // Upper bound of the 80% interval
}

// ErrorResponse is the body of every failed forecast request.
type ErrorResponse struct {
	Error string `json:"error"`
}
