package usecase

import (
	"errors"
	"fmt"
)

// ErrEmptySymbol rejects a prediction request with a blank ticker.
var ErrEmptySymbol = errors.New("usecase: symbol is empty")

// InsufficientDataError reports a price window shorter than the model's
// input size.
type InsufficientDataError struct {
	Symbol   string
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("usecase: %s needs %d prices, got %d", e.Symbol, e.Required, e.Actual)
}

// PredictionFailedError wraps a failure inside the scale/infer/inverse
// pipeline, tagging which stage broke.
type PredictionFailedError struct {
	Symbol string
	Stage  string // "prices" | "scale" | "infer" | "inverse"
	Err    error
}

func (e *PredictionFailedError) Error() string {
	return fmt.Sprintf("usecase: prediction for %s failed at %s: %v", e.Symbol, e.Stage, e.Err)
}

func (e *PredictionFailedError) Unwrap() error { return e.Err }
