package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Test artifact builders. The specific network averages its scaled window;
// the general network ignores the window and emits the symbol's embedding
// value, which makes routing observable from the prediction alone.

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture %s: %v", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}

func specificNetJSON(window int) map[string]any {
	row := make([]float64, window)
	for i := range row {
		row[i] = 1 / float64(window)
	}
	return map[string]any{
		"window": window,
		"layers": []map[string]any{
			{"weights": [][]float64{row}, "biases": []float64{0}, "activation": "linear"},
		},
	}
}

func generalNetJSON(window int, embedding [][]float64) map[string]any {
	row := make([]float64, window+1)
	row[window] = 1 // pass the embedding value through
	return map[string]any{
		"window": window,
		"layers": []map[string]any{
			{"weights": [][]float64{row}, "biases": []float64{0}, "activation": "linear"},
		},
		"embedding": embedding,
	}
}

func minmaxScalerJSON(min, max float64) map[string]any {
	return map[string]any{"kind": "minmax", "min": min, "max": max, "fitted": true}
}

// writeSpecific lays down a complete dedicated artifact for symbol.
func writeSpecific(t *testing.T, dir, symbol string, window int) {
	t.Helper()
	writeJSON(t, filepath.Join(dir, symbol+modelSuffix), specificNetJSON(window))
	writeJSON(t, filepath.Join(dir, symbol+scalerSuffix), minmaxScalerJSON(0, 100))
}

// writeGeneral lays down a shared artifact covering the given symbols in
// order, embedding value 10*(id+1).
func writeGeneral(t *testing.T, dir string, window int, symbols ...string) {
	t.Helper()
	embedding := make([][]float64, len(symbols))
	ids := make(map[string]int, len(symbols))
	scalers := make(map[string]any, len(symbols))
	for i, sym := range symbols {
		embedding[i] = []float64{10 * float64(i+1)}
		ids[sym] = i
		scalers[sym] = minmaxScalerJSON(0, 100)
	}
	writeJSON(t, filepath.Join(dir, generalModelFile), generalNetJSON(window, embedding))
	writeJSON(t, filepath.Join(dir, generalScalersFile), scalers)
	writeJSON(t, filepath.Join(dir, generalIDsFile), ids)
}

func newTestRegistry(t *testing.T, cacheSize int, specific func(dir string), general func(dir string)) *Registry {
	t.Helper()
	specDir := t.TempDir()
	genDir := t.TempDir()
	if specific != nil {
		specific(specDir)
	}
	if general != nil {
		general(genDir)
	} else {
		genDir = filepath.Join(genDir, "absent")
	}
	return New(cacheSize, NewLoader(specDir, genDir, nil), nil, nil)
}
