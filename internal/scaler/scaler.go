package scaler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Kind selects the price transform applied before min-max scaling.
type Kind string

const (
	// KindMinMax scales raw prices into [0,1] directly.
	KindMinMax Kind = "minmax"
	// KindLog maps prices through log before min-max scaling. Standard for
	// equity series: movements become percentage-based and the inverse can
	// never produce a negative price.
	KindLog Kind = "log"
)

// ErrNotFitted is returned by Transform/Inverse on a state that was never fitted.
var ErrNotFitted = errors.New("scaler: not fitted")

// ErrEmptyFit is returned when Fit receives no prices.
var ErrEmptyFit = errors.New("scaler: fit requires at least one price")

// InvalidPriceError reports a price the configured transform cannot accept.
type InvalidPriceError struct {
	Value float64
	Kind  Kind
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("scaler: invalid price %v for %s transform", e.Value, e.Kind)
}

// State holds the statistics fitted on a training window. It is immutable
// after Fit: Transform and Inverse are pure functions of the stored min/max.
type State struct {
	Kind   Kind    `json:"kind"`
	Min    float64 `json:"min"` // minimum of the (optionally log-mapped) domain
	Max    float64 `json:"max"`
	Fitted bool    `json:"fitted"`
}

// Fit computes and records the min/max of the transformed price domain.
// It never re-derives statistics from any later dataset; callers must fit on
// a training window, not on the window later used for inference.
func Fit(kind Kind, prices []float64) (State, error) {
	if len(prices) == 0 {
		return State{}, ErrEmptyFit
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range prices {
		v, err := forward(kind, p)
		if err != nil {
			return State{}, err
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return State{Kind: kind, Min: lo, Max: hi, Fitted: true}, nil
}

// Transform maps raw prices into the fitted [0,1] training-scale space.
func (s State) Transform(prices []float64) ([]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(prices))
	for i, p := range prices {
		v, err := forward(s.Kind, p)
		if err != nil {
			return nil, err
		}
		out[i] = s.scale(v)
	}
	return out, nil
}

// TransformOne scales a single price.
func (s State) TransformOne(price float64) (float64, error) {
	if !s.Fitted {
		return 0, ErrNotFitted
	}
	v, err := forward(s.Kind, price)
	if err != nil {
		return 0, err
	}
	return s.scale(v), nil
}

// Inverse maps scaled values back into price units. Exact numeric inverse of
// Transform on the same state, up to floating point error.
func (s State) Inverse(scaled []float64) ([]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(scaled))
	for i, v := range scaled {
		out[i] = s.inverseOne(v)
	}
	return out, nil
}

// InverseOne unscales a single value.
func (s State) InverseOne(scaled float64) (float64, error) {
	if !s.Fitted {
		return 0, ErrNotFitted
	}
	return s.inverseOne(scaled), nil
}

func (s State) scale(v float64) float64 {
	span := s.Max - s.Min
	if span == 0 {
		// degenerate training window: every price equal
		return 0.5
	}
	return (v - s.Min) / span
}

func (s State) inverseOne(v float64) float64 {
	span := s.Max - s.Min
	var raw float64
	if span == 0 {
		raw = s.Min
	} else {
		raw = v*span + s.Min
	}
	if s.Kind == KindLog {
		return math.Exp(raw)
	}
	return raw
}

func forward(kind Kind, p float64) (float64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, &InvalidPriceError{Value: p, Kind: kind}
	}
	if kind == KindLog {
		if p <= 0 {
			return 0, &InvalidPriceError{Value: p, Kind: kind}
		}
		return math.Log(p), nil
	}
	return p, nil
}

// MarshalJSON keeps the on-disk artifact format stable.
func (s State) MarshalJSON() ([]byte, error) {
	type alias State
	return json.Marshal(alias(s))
}

// Parse deserializes a State and rejects artifacts with unknown kinds or
// unfitted statistics.
func Parse(b []byte) (State, error) {
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("scaler: parse state: %w", err)
	}
	if s.Kind != KindMinMax && s.Kind != KindLog {
		return State{}, fmt.Errorf("scaler: unknown kind %q", s.Kind)
	}
	if !s.Fitted {
		return State{}, ErrNotFitted
	}
	if s.Max < s.Min {
		return State{}, fmt.Errorf("scaler: corrupt bounds [%v, %v]", s.Min, s.Max)
	}
	return s, nil
}
