package scaler

import (
	"errors"
	"math"
	"testing"
)

func TestFitMinMax(t *testing.T) {
	s, err := Fit(KindMinMax, []float64{12.5, 10.0, 17.25, 11.0})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if s.Min != 10.0 || s.Max != 17.25 {
		t.Errorf("bounds [%v, %v], want [10, 17.25]", s.Min, s.Max)
	}
	if !s.Fitted {
		t.Error("expected fitted state")
	}
}

func TestFitEmpty(t *testing.T) {
	if _, err := Fit(KindLog, nil); !errors.Is(err, ErrEmptyFit) {
		t.Errorf("expected ErrEmptyFit, got %v", err)
	}
}

func TestFitLogRejectsNonPositive(t *testing.T) {
	_, err := Fit(KindLog, []float64{15.0, 0.0, 16.0})
	var ipe *InvalidPriceError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidPriceError, got %v", err)
	}
	if ipe.Value != 0.0 {
		t.Errorf("offending value %v, want 0", ipe.Value)
	}
}

func TestFitRejectsNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		var ipe *InvalidPriceError
		if _, err := Fit(KindMinMax, []float64{1.0, bad}); !errors.As(err, &ipe) {
			t.Errorf("value %v: expected InvalidPriceError, got %v", bad, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	prices := []float64{16.5, 16.8, 17.2, 15.9, 18.4, 16.05, 17.75}
	for _, kind := range []Kind{KindMinMax, KindLog} {
		s, err := Fit(kind, prices)
		if err != nil {
			t.Fatalf("%s fit: %v", kind, err)
		}
		scaled, err := s.Transform(prices)
		if err != nil {
			t.Fatalf("%s transform: %v", kind, err)
		}
		back, err := s.Inverse(scaled)
		if err != nil {
			t.Fatalf("%s inverse: %v", kind, err)
		}
		for i, p := range prices {
			tol := 1e-6 * math.Max(1, math.Abs(p))
			if math.Abs(back[i]-p) > tol {
				t.Errorf("%s round trip: got %v, want %v", kind, back[i], p)
			}
		}
	}
}

func TestTransformBounds(t *testing.T) {
	prices := []float64{10, 20, 30}
	s, _ := Fit(KindMinMax, prices)
	scaled, err := s.Transform(prices)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if scaled[0] != 0 || scaled[2] != 1 {
		t.Errorf("expected endpoints 0 and 1, got %v and %v", scaled[0], scaled[2])
	}
}

func TestDegenerateWindow(t *testing.T) {
	s, err := Fit(KindLog, []float64{42.0, 42.0, 42.0})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	v, err := s.TransformOne(42.0)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if v != 0.5 {
		t.Errorf("degenerate scale = %v, want 0.5", v)
	}
	back, err := s.InverseOne(v)
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if math.Abs(back-42.0) > 1e-6*42.0 {
		t.Errorf("degenerate inverse = %v, want 42", back)
	}
}

func TestUnfittedState(t *testing.T) {
	var s State
	if _, err := s.Transform([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("transform: expected ErrNotFitted, got %v", err)
	}
	if _, err := s.Inverse([]float64{0.5}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("inverse: expected ErrNotFitted, got %v", err)
	}
}

func TestLogTransformRejectsNegativeAfterFit(t *testing.T) {
	s, _ := Fit(KindLog, []float64{10, 12})
	var ipe *InvalidPriceError
	if _, err := s.Transform([]float64{-3}); !errors.As(err, &ipe) {
		t.Errorf("expected InvalidPriceError, got %v", err)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid log", `{"kind":"log","min":2.3,"max":2.9,"fitted":true}`, false},
		{"valid minmax", `{"kind":"minmax","min":10,"max":20,"fitted":true}`, false},
		{"unknown kind", `{"kind":"robust","min":0,"max":1,"fitted":true}`, true},
		{"unfitted", `{"kind":"log","min":0,"max":1,"fitted":false}`, true},
		{"inverted bounds", `{"kind":"log","min":5,"max":1,"fitted":true}`, true},
		{"garbage", `{`, true},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.payload))
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}
