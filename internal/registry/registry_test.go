package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
)

func TestLoadModelPrefersSpecific(t *testing.T) {
	r := newTestRegistry(t, 4,
		func(dir string) { writeSpecific(t, dir, "AAPL", 3) },
		func(dir string) { writeGeneral(t, dir, 3, "AAPL", "GOOG") },
	)

	art, cached, err := r.LoadModel("aapl")
	if err != nil {
		t.Fatalf("LoadModel(aapl) = %v", err)
	}
	if art.Kind != models.KindSpecific {
		t.Errorf("Kind = %q, want specific despite general coverage", art.Kind)
	}
	if cached {
		t.Error("first load reported cached")
	}
}

func TestLoadModelFallsBackToGeneral(t *testing.T) {
	r := newTestRegistry(t, 4,
		nil,
		func(dir string) { writeGeneral(t, dir, 3, "AAPL", "GOOG") },
	)

	art, cached, err := r.LoadModel("GOOG")
	if err != nil {
		t.Fatalf("LoadModel(GOOG) = %v", err)
	}
	if art.Kind != models.KindGeneral {
		t.Errorf("Kind = %q, want general", art.Kind)
	}
	if art.SymbolID != 1 {
		t.Errorf("SymbolID = %d, want 1", art.SymbolID)
	}
	if cached {
		t.Error("general route reported cached")
	}
	// The fixture general net emits the embedding value 10*(id+1).
	got, err := art.Infer([]float64{0, 0, 0})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if got != 20 {
		t.Errorf("Infer = %v, want 20", got)
	}
}

func TestLoadModelNotFound(t *testing.T) {
	r := newTestRegistry(t, 4,
		func(dir string) { writeSpecific(t, dir, "AAPL", 3) },
		func(dir string) { writeGeneral(t, dir, 3, "GOOG") },
	)

	_, _, err := r.LoadModel("NFLX")
	var nf *ModelNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want ModelNotFoundError", err)
	}
	want := []string{"AAPL", "GOOG"}
	if !reflect.DeepEqual(nf.Available, want) {
		t.Errorf("Available = %v, want %v", nf.Available, want)
	}
}

func TestLoadModelCachesSpecific(t *testing.T) {
	r := newTestRegistry(t, 4,
		func(dir string) { writeSpecific(t, dir, "AAPL", 3) },
		nil,
	)

	if _, cached, err := r.LoadModel("AAPL"); err != nil || cached {
		t.Fatalf("first load: cached=%v err=%v, want miss", cached, err)
	}
	if _, cached, err := r.LoadModel("AAPL"); err != nil || !cached {
		t.Fatalf("second load: cached=%v err=%v, want hit", cached, err)
	}

	s := r.Stats()
	if s.CacheHits != 1 || s.CacheMisses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", s.CacheHits, s.CacheMisses)
	}
	if s.SpecificRequests != 2 || s.ModelsLoaded != 1 {
		t.Errorf("specific/loaded = %d/%d, want 2/1", s.SpecificRequests, s.ModelsLoaded)
	}
	if s.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", s.HitRate)
	}
}

func TestLoadModelEvictsAtCapacity(t *testing.T) {
	r := newTestRegistry(t, 1,
		func(dir string) {
			writeSpecific(t, dir, "AAPL", 3)
			writeSpecific(t, dir, "GOOG", 3)
		},
		nil,
	)

	r.LoadModel("AAPL")
	r.LoadModel("GOOG") // evicts AAPL

	if _, cached, _ := r.LoadModel("AAPL"); cached {
		t.Error("AAPL still cached after eviction")
	}
	if got := r.cache.Len(); got != 1 {
		t.Errorf("cache size = %d, want 1", got)
	}
}

func TestLoadModelCorruptSpecificFallsBack(t *testing.T) {
	specDir := t.TempDir()
	genDir := t.TempDir()
	writeGeneral(t, genDir, 3, "AAPL")
	if err := os.WriteFile(filepath.Join(specDir, "AAPL"+modelSuffix), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := New(4, NewLoader(specDir, genDir, nil), nil, nil)

	art, _, err := r.LoadModel("AAPL")
	if err != nil {
		t.Fatalf("LoadModel with corrupt specific = %v, want general fallback", err)
	}
	if art.Kind != models.KindGeneral {
		t.Errorf("Kind = %q, want general", art.Kind)
	}
}

func TestLoadModelCorruptSpecificNoFallbackKeepsError(t *testing.T) {
	specDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(specDir, "AAPL"+modelSuffix), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := New(4, NewLoader(specDir, filepath.Join(specDir, "nope"), nil), nil, nil)

	_, _, err := r.LoadModel("AAPL")
	var corrupt *ArtifactCorruptError
	if !errors.As(err, &corrupt) {
		t.Errorf("err = %v, want the original ArtifactCorruptError", err)
	}
}

func TestLoadModelGeneralScalerGap(t *testing.T) {
	genDir := t.TempDir()
	writeGeneral(t, genDir, 3, "AAPL", "GOOG")
	writeJSON(t, filepath.Join(genDir, generalScalersFile), map[string]any{
		"AAPL": minmaxScalerJSON(0, 100),
		// GOOG deliberately absent
	})
	r := New(4, NewLoader(t.TempDir(), genDir, nil), nil, nil)

	_, _, err := r.LoadModel("GOOG")
	var corrupt *ArtifactCorruptError
	if !errors.As(err, &corrupt) {
		t.Errorf("err = %v, want ArtifactCorruptError for id without scaler", err)
	}
}

func TestModelType(t *testing.T) {
	r := newTestRegistry(t, 4,
		func(dir string) { writeSpecific(t, dir, "AAPL", 3) },
		func(dir string) { writeGeneral(t, dir, 3, "AAPL", "GOOG") },
	)

	tests := []struct {
		symbol string
		kind   models.ModelKind
		ok     bool
	}{
		{"AAPL", models.KindSpecific, true},
		{"goog", models.KindGeneral, true},
		{"NFLX", "", false},
	}
	for _, tt := range tests {
		kind, ok := r.ModelType(tt.symbol)
		if kind != tt.kind || ok != tt.ok {
			t.Errorf("ModelType(%s) = (%q, %v), want (%q, %v)", tt.symbol, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestAvailable(t *testing.T) {
	r := newTestRegistry(t, 4,
		func(dir string) {
			writeSpecific(t, dir, "MSFT", 3)
			writeSpecific(t, dir, "AAPL", 3)
		},
		func(dir string) { writeGeneral(t, dir, 3, "GOOG", "AAPL") },
	)

	got := r.Available()
	if want := []string{"AAPL", "MSFT"}; !reflect.DeepEqual(got.Specific, want) {
		t.Errorf("Specific = %v, want %v", got.Specific, want)
	}
	if want := []string{"AAPL", "GOOG"}; !reflect.DeepEqual(got.General, want) {
		t.Errorf("General = %v, want %v", got.General, want)
	}
	if want := []string{"AAPL", "GOOG", "MSFT"}; !reflect.DeepEqual(got.All, want) {
		t.Errorf("All = %v, want %v", got.All, want)
	}
}

func TestModelInfo(t *testing.T) {
	specDir := t.TempDir()
	genDir := t.TempDir()
	writeSpecific(t, specDir, "AAPL", 3)
	mape := 3.1
	writeJSON(t, filepath.Join(specDir, "AAPL"+metadataSuffix), Metadata{TrainingDate: "2026-07-15", TestMAPE: &mape})
	writeGeneral(t, genDir, 3, "GOOG")
	r := New(4, NewLoader(specDir, genDir, nil), nil, nil)

	info := r.ModelInfo("AAPL")
	if !info.Available || info.ModelKind != models.KindSpecific {
		t.Fatalf("ModelInfo(AAPL) = %+v, want available specific", info)
	}
	if info.Cached {
		t.Error("Cached = true before any load")
	}
	if info.TrainingDate != "2026-07-15" || info.TestMAPE == nil || *info.TestMAPE != 3.1 {
		t.Errorf("metadata not surfaced: %+v", info)
	}

	r.LoadModel("AAPL")
	if !r.ModelInfo("AAPL").Cached {
		t.Error("Cached = false after load")
	}

	if info := r.ModelInfo("GOOG"); !info.Available || info.ModelKind != models.KindGeneral {
		t.Errorf("ModelInfo(GOOG) = %+v, want available general", info)
	}
	if info := r.ModelInfo("NFLX"); info.Available {
		t.Errorf("ModelInfo(NFLX) = %+v, want unavailable", info)
	}
}

func TestClearCacheResetsStats(t *testing.T) {
	r := newTestRegistry(t, 4,
		func(dir string) { writeSpecific(t, dir, "AAPL", 3) },
		nil,
	)
	r.LoadModel("AAPL")
	r.LoadModel("AAPL")

	r.ClearCache()

	s := r.Stats()
	if s.TotalRequests != 0 || s.CacheHits != 0 || s.CacheMisses != 0 || s.CacheSize != 0 {
		t.Errorf("Stats after ClearCache = %+v, want zeroed", s)
	}
	if s.SpecificModels != 1 {
		t.Errorf("SpecificModels = %d after ClearCache, want index untouched", s.SpecificModels)
	}
	if _, cached, _ := r.LoadModel("AAPL"); cached {
		t.Error("artifact still cached after ClearCache")
	}
}

func TestRefreshInvalidatesRewrittenArtifacts(t *testing.T) {
	specDir := t.TempDir()
	writeSpecific(t, specDir, "AAPL", 3)
	writeSpecific(t, specDir, "GOOG", 3)
	r := New(4, NewLoader(specDir, filepath.Join(specDir, "nope"), nil), nil, nil)

	r.LoadModel("AAPL")
	r.LoadModel("GOOG")

	// Retrain AAPL: rewrite with a distinct modtime. Remove GOOG entirely.
	writeJSON(t, filepath.Join(specDir, "AAPL"+modelSuffix), specificNetJSON(3))
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(specDir, "AAPL"+modelSuffix), past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(specDir, "GOOG"+modelSuffix)); err != nil {
		t.Fatal(err)
	}
	writeSpecific(t, specDir, "MSFT", 3)

	sum := r.Refresh()
	if sum.SpecificModels != 2 {
		t.Errorf("SpecificModels = %d, want 2 (AAPL, MSFT)", sum.SpecificModels)
	}
	if sum.Invalidated != 2 {
		t.Errorf("Invalidated = %d, want 2 (rewritten AAPL, removed GOOG)", sum.Invalidated)
	}

	if _, cached, err := r.LoadModel("AAPL"); err != nil || cached {
		t.Errorf("AAPL after refresh: cached=%v err=%v, want fresh reload", cached, err)
	}
	if _, _, err := r.LoadModel("MSFT"); err != nil {
		t.Errorf("MSFT not routable after refresh: %v", err)
	}
	var nf *ModelNotFoundError
	if _, _, err := r.LoadModel("GOOG"); !errors.As(err, &nf) {
		t.Errorf("GOOG after removal: err = %v, want ModelNotFoundError", err)
	}
}

func TestRefreshKeepsUntouchedCacheEntries(t *testing.T) {
	specDir := t.TempDir()
	writeSpecific(t, specDir, "AAPL", 3)
	r := New(4, NewLoader(specDir, filepath.Join(specDir, "nope"), nil), nil, nil)
	r.LoadModel("AAPL")

	if sum := r.Refresh(); sum.Invalidated != 0 {
		t.Errorf("Invalidated = %d for untouched artifact, want 0", sum.Invalidated)
	}
	if _, cached, _ := r.LoadModel("AAPL"); !cached {
		t.Error("untouched artifact lost its cache entry across Refresh")
	}
}

func TestLoadModelConcurrent(t *testing.T) {
	r := newTestRegistry(t, 2,
		func(dir string) {
			writeSpecific(t, dir, "AAPL", 3)
			writeSpecific(t, dir, "GOOG", 3)
			writeSpecific(t, dir, "MSFT", 3)
		},
		func(dir string) { writeGeneral(t, dir, 3, "TSLA") },
	)

	symbols := []string{"AAPL", "GOOG", "MSFT", "TSLA"}
	const perSymbol = 25
	var wg sync.WaitGroup
	for _, sym := range symbols {
		for i := 0; i < perSymbol; i++ {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()
				if _, _, err := r.LoadModel(sym); err != nil {
					t.Errorf("LoadModel(%s): %v", sym, err)
				}
			}(sym)
		}
	}
	wg.Wait()

	s := r.Stats()
	if want := int64(len(symbols) * perSymbol); s.TotalRequests != want {
		t.Errorf("TotalRequests = %d, want %d", s.TotalRequests, want)
	}
	if got := s.SpecificRequests + s.GeneralRequests; got != s.TotalRequests {
		t.Errorf("served %d of %d requests", got, s.TotalRequests)
	}
	if s.CacheSize > 2 {
		t.Errorf("cache size %d exceeds capacity 2", s.CacheSize)
	}
}
