package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/registry"
	"StockCast/internal/service/cache"
)

// fixture: an averaging network over a 3-price window with a [0,100] minmax
// scaler, so Predict([a,b,c]) = (a+b+c)/3 in price units.
const testWindow = 3

func writeArtifact(t *testing.T, dir, symbol string, bias float64) {
	t.Helper()
	row := make([]float64, testWindow)
	for i := range row {
		row[i] = 1.0 / testWindow
	}
	net := map[string]any{
		"window": testWindow,
		"layers": []map[string]any{
			{"weights": [][]float64{row}, "biases": []float64{bias}, "activation": "linear"},
		},
	}
	writeFixture(t, filepath.Join(dir, symbol+"_best.json"), net)
	writeFixture(t, filepath.Join(dir, symbol+"_scaler.json"),
		map[string]any{"kind": "minmax", "min": 0.0, "max": 100.0, "fitted": true})
}

func writeFixture(t *testing.T, path string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestPredictor(t *testing.T, prices domsvc.PriceProvider, results cache.BytesCache, symbols ...string) *Predictor {
	t.Helper()
	dir := t.TempDir()
	for _, sym := range symbols {
		writeArtifact(t, dir, sym, 0)
	}
	reg := registry.New(8, registry.NewLoader(dir, filepath.Join(dir, "general"), nil), nil, nil)
	return NewPredictor(reg, prices, results, time.Minute, nil, nil, nil)
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPredict(t *testing.T) {
	p := newTestPredictor(t, nil, nil, "AAPL")

	res, err := p.Predict(context.Background(), "aapl", "", []float64{10, 20, 30})
	if err != nil {
		t.Fatalf("Predict = %v", err)
	}
	if res.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want normalized AAPL", res.Symbol)
	}
	if res.Horizon != models.Horizon10D {
		t.Errorf("Horizon = %q, want default 10d", res.Horizon)
	}
	if !almostEqual(res.Prediction, 20) {
		t.Errorf("Prediction = %v, want 20", res.Prediction)
	}
	if res.LastPrice != 30 {
		t.Errorf("LastPrice = %v, want 30", res.LastPrice)
	}
	if !almostEqual(res.Change, -10) || !almostEqual(res.ChangePct, -10.0/30*100) {
		t.Errorf("Change/Pct = %v/%v, want -10/-33.33", res.Change, res.ChangePct)
	}
	if res.ModelKind != models.KindSpecific {
		t.Errorf("ModelKind = %q, want specific", res.ModelKind)
	}
	if res.Cached {
		t.Error("Cached = true on first model load")
	}
	if res.Clamped {
		t.Error("Clamped = true for a positive forecast")
	}
	if res.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}

	res2, err := p.Predict(context.Background(), "AAPL", "5d", []float64{10, 20, 30})
	if err != nil {
		t.Fatal(err)
	}
	if !res2.Cached {
		t.Error("Cached = false on second model load")
	}
	if res2.Horizon != models.Horizon5D {
		t.Errorf("Horizon = %q, want 5d", res2.Horizon)
	}
}

func TestPredictUsesTrailingWindow(t *testing.T) {
	p := newTestPredictor(t, nil, nil, "AAPL")

	// only the last three prices should matter
	res, err := p.Predict(context.Background(), "AAPL", "", []float64{900, 900, 10, 20, 30})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(res.Prediction, 20) {
		t.Errorf("Prediction = %v, want 20 from trailing window", res.Prediction)
	}
}

func TestPredictInsufficientData(t *testing.T) {
	p := newTestPredictor(t, nil, nil, "AAPL")

	_, err := p.Predict(context.Background(), "AAPL", "", []float64{10, 20})
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientDataError", err)
	}
	if insufficient.Required != testWindow || insufficient.Actual != 2 {
		t.Errorf("Required/Actual = %d/%d, want %d/2", insufficient.Required, insufficient.Actual, testWindow)
	}
}

func TestPredictEmptySymbol(t *testing.T) {
	p := newTestPredictor(t, nil, nil, "AAPL")
	if _, err := p.Predict(context.Background(), "  ", "", []float64{1, 2, 3}); !errors.Is(err, ErrEmptySymbol) {
		t.Errorf("err = %v, want ErrEmptySymbol", err)
	}
}

func TestPredictUnknownSymbol(t *testing.T) {
	p := newTestPredictor(t, nil, nil, "AAPL")
	_, err := p.Predict(context.Background(), "NFLX", "", []float64{1, 2, 3})
	var nf *registry.ModelNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("err = %v, want ModelNotFoundError", err)
	}
}

func TestPredictClampsNegativeForecast(t *testing.T) {
	dir := t.TempDir()
	// zero weights and a strongly negative bias force a scaled output whose
	// inverse is below zero
	net := map[string]any{
		"window": testWindow,
		"layers": []map[string]any{
			{"weights": [][]float64{{0, 0, 0}}, "biases": []float64{-0.5}, "activation": "linear"},
		},
	}
	writeFixture(t, filepath.Join(dir, "AAPL_best.json"), net)
	writeFixture(t, filepath.Join(dir, "AAPL_scaler.json"),
		map[string]any{"kind": "minmax", "min": 0.0, "max": 100.0, "fitted": true})
	reg := registry.New(8, registry.NewLoader(dir, filepath.Join(dir, "general"), nil), nil, nil)
	p := NewPredictor(reg, nil, nil, 0, nil, nil, nil)

	res, err := p.Predict(context.Background(), "AAPL", "", []float64{10, 20, 30})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Clamped {
		t.Error("Clamped = false for a negative raw forecast")
	}
	if res.Prediction != 0 {
		t.Errorf("Prediction = %v, want 0 after clamp", res.Prediction)
	}
	if !almostEqual(res.Change, -30) {
		t.Errorf("Change = %v, want -30 (derived from clamped value)", res.Change)
	}
}

func TestPredictZeroLastPrice(t *testing.T) {
	p := newTestPredictor(t, nil, nil, "AAPL")
	res, err := p.Predict(context.Background(), "AAPL", "", []float64{0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if res.ChangePct != 0 {
		t.Errorf("ChangePct = %v with zero last price, want 0", res.ChangePct)
	}
}

func TestPredictStoreWindowAndResultCache(t *testing.T) {
	calls := 0
	provider := domsvc.PriceProviderFunc(func(_ context.Context, symbol string, n int) ([]float64, error) {
		calls++
		if n != testWindow {
			return nil, fmt.Errorf("asked for %d prices, want %d", n, testWindow)
		}
		return []float64{10, 20, 30}, nil
	})
	p := newTestPredictor(t, provider, cache.NewTTLCache(), "AAPL")

	res, err := p.Predict(context.Background(), "AAPL", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(res.Prediction, 20) {
		t.Errorf("Prediction = %v, want 20", res.Prediction)
	}
	if calls != 1 {
		t.Fatalf("provider calls = %d, want 1", calls)
	}

	res2, err := p.Predict(context.Background(), "AAPL", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("provider calls = %d after cached request, want 1", calls)
	}
	if !almostEqual(res2.Prediction, res.Prediction) {
		t.Errorf("cached Prediction = %v, want %v", res2.Prediction, res.Prediction)
	}

	// an inline window must bypass the result cache
	if _, err := p.Predict(context.Background(), "AAPL", "", []float64{40, 50, 60}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("inline request touched the provider: calls = %d", calls)
	}
}

func TestPredictProviderFailure(t *testing.T) {
	provider := domsvc.PriceProviderFunc(func(context.Context, string, int) ([]float64, error) {
		return nil, fmt.Errorf("store down")
	})
	p := newTestPredictor(t, provider, nil, "AAPL")

	_, err := p.Predict(context.Background(), "AAPL", "", nil)
	var failed *PredictionFailedError
	if !errors.As(err, &failed) || failed.Stage != "prices" {
		t.Errorf("err = %v, want PredictionFailedError at prices stage", err)
	}
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, *models.PredictionResult) error {
	f.calls++
	return fmt.Errorf("broker unreachable")
}
func (f *failingPublisher) Close() error { return nil }

func TestPredictPublishFailureIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "AAPL", 0)
	reg := registry.New(8, registry.NewLoader(dir, filepath.Join(dir, "general"), nil), nil, nil)
	pub := &failingPublisher{}
	p := NewPredictor(reg, nil, nil, 0, pub, nil, nil)

	if _, err := p.Predict(context.Background(), "AAPL", "", []float64{10, 20, 30}); err != nil {
		t.Fatalf("Predict = %v, want publish failure swallowed", err)
	}
	if pub.calls != 1 {
		t.Errorf("publisher calls = %d, want 1", pub.calls)
	}
}
