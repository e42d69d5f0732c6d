// Package domain defines domain-level errors for the forecast feature.
package domain

import "errors"

// Kind classifies a pipeline failure by the stage that produced it.
type Kind string

const (
	// KindDataUnavailable means the provider answered but had no usable prices.
	KindDataUnavailable Kind = "data_unavailable"
	// KindUpstream means the market data provider could not be reached or rejected the request.
	KindUpstream Kind = "upstream"
	// KindModelFit means the forecasting engine could not fit or predict.
	KindModelFit Kind = "model_fit"
	// KindRender means the forecast could not be encoded into a chart.
	KindRender Kind = "render"
	// KindInternal is used for errors that carry no kind.
	KindInternal Kind = "internal"
)

// ErrNoPriceData is returned when the provider yields an empty series for the window.
var ErrNoPriceData = errors.New("no price data returned for the requested window")

// Error attaches a Kind to an underlying error.
// Error() returns the wrapped message unchanged so that clients see the collaborator's own text.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err tagged with kind. A nil err stays nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
