package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"
)

type counters struct {
	totalRequests int64
	cacheHits     int64
	cacheMisses   int64
	specific      int64
	general       int64
	modelsLoaded  int64
}

// Registry routes symbols to forecaster artifacts with a two-pool strategy:
// a dedicated per-symbol model when one exists on disk, else the shared
// general model. Dedicated artifacts are cached in a bounded LRU; the general
// artifact is resident for the registry's whole lifetime and never occupies
// a cache slot.
//
// The symbol index and the general artifact are swapped atomically by
// Refresh, so readers always observe a complete snapshot.
type Registry struct {
	loader  *Loader
	cache   *LRU
	log     *applogger.Logger
	metrics repository.Metrics

	index   atomic.Pointer[map[string]Location]
	general atomic.Pointer[GeneralArtifact]

	mu    sync.Mutex
	stats counters
}

// New builds a registry and performs the initial artifact scan. A missing or
// broken general pool degrades coverage but never fails construction.
func New(cacheSize int, loader *Loader, log *applogger.Logger, metrics repository.Metrics) *Registry {
	r := &Registry{
		loader:  loader,
		cache:   NewLRU(cacheSize),
		log:     log,
		metrics: metrics,
	}

	idx := loader.Scan()
	r.index.Store(&idx)

	ga, err := loader.LoadGeneral()
	if err != nil {
		if log != nil {
			log.Warn("general model not loaded", applogger.Error(err))
		}
	} else {
		r.general.Store(ga)
	}

	if log != nil {
		log.Info("model registry ready",
			applogger.Int("specific_models", len(idx)),
			applogger.Int("general_symbols", r.generalSymbolCount()),
			applogger.Int("cache_capacity", r.cache.Capacity()),
		)
	}
	return r
}

func specificKey(symbol string) string { return "specific:" + symbol }

// NormalizeSymbol canonicalizes a ticker for routing and index lookups.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// LoadModel resolves a symbol to a ready-to-infer artifact. The boolean
// reports whether a dedicated artifact was served from cache; the general
// model is resident, not cached, so it always reports false.
//
// Routing: dedicated pool first, then the general pool, then
// ModelNotFoundError. A dedicated artifact that exists on disk but fails to
// load falls through to the general pool; if the general pool cannot serve
// the symbol either, the original load error is returned.
func (r *Registry) LoadModel(symbol string) (*Artifact, bool, error) {
	symbol = NormalizeSymbol(symbol)

	r.mu.Lock()
	r.stats.totalRequests++
	r.mu.Unlock()

	var loadErr error
	idx := *r.index.Load()
	if _, ok := idx[symbol]; ok {
		key := specificKey(symbol)
		if art, hit := r.cache.Get(key); hit {
			r.mu.Lock()
			r.stats.cacheHits++
			r.stats.specific++
			r.mu.Unlock()
			if r.metrics != nil {
				r.metrics.RecordCacheEvent(true)
			}
			return art, true, nil
		}

		r.mu.Lock()
		r.stats.cacheMisses++
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.RecordCacheEvent(false)
		}

		art, err := r.loader.LoadSpecific(symbol)
		if err == nil {
			if evicted := r.cache.Put(key, art); evicted != "" && r.log != nil {
				r.log.Debug("model evicted from cache",
					applogger.String("evicted", evicted),
					applogger.String("loaded", key),
				)
			}
			r.mu.Lock()
			r.stats.specific++
			r.stats.modelsLoaded++
			r.mu.Unlock()
			return art, false, nil
		}

		loadErr = err
		if r.log != nil {
			r.log.Warn("specific artifact unusable, trying general model",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
	}

	if ga := r.general.Load(); ga != nil {
		if id, ok := ga.SymbolIDs[symbol]; ok {
			st, ok := ga.Scalers[symbol]
			if !ok {
				return nil, false, &ArtifactCorruptError{Symbol: symbol, Path: ga.Path,
					Err: fmt.Errorf("symbol mapped to embedding id %d but has no scaler", id)}
			}
			r.mu.Lock()
			r.stats.general++
			r.mu.Unlock()
			return &Artifact{
				Kind:     models.KindGeneral,
				Net:      ga.Net,
				SymbolID: id,
				Scaler:   st,
				Meta:     ga.Meta,
				Path:     ga.Path,
			}, false, nil
		}
	}

	if loadErr != nil {
		return nil, false, loadErr
	}
	return nil, false, &ModelNotFoundError{Symbol: symbol, Available: r.AllAvailableSymbols()}
}

// ModelType reports which pool would serve a symbol without loading anything.
// The second return is false when neither pool covers it.
func (r *Registry) ModelType(symbol string) (models.ModelKind, bool) {
	symbol = NormalizeSymbol(symbol)
	if _, ok := (*r.index.Load())[symbol]; ok {
		return models.KindSpecific, true
	}
	if ga := r.general.Load(); ga != nil {
		if _, ok := ga.SymbolIDs[symbol]; ok {
			return models.KindGeneral, true
		}
	}
	return "", false
}

// Available lists serving coverage by pool. All is the sorted union.
func (r *Registry) Available() models.AvailableModels {
	idx := *r.index.Load()
	out := models.AvailableModels{
		Specific: make([]string, 0, len(idx)),
	}
	union := make(map[string]struct{}, len(idx))
	for sym := range idx {
		out.Specific = append(out.Specific, sym)
		union[sym] = struct{}{}
	}
	if ga := r.general.Load(); ga != nil {
		out.General = make([]string, 0, len(ga.SymbolIDs))
		for sym := range ga.SymbolIDs {
			out.General = append(out.General, sym)
			union[sym] = struct{}{}
		}
	}
	out.All = make([]string, 0, len(union))
	for sym := range union {
		out.All = append(out.All, sym)
	}
	sort.Strings(out.Specific)
	sort.Strings(out.General)
	sort.Strings(out.All)
	return out
}

// AllAvailableSymbols is the sorted union of both pools.
func (r *Registry) AllAvailableSymbols() []string {
	return r.Available().All
}

// ModelInfo describes the artifact that would serve a symbol, reading at most
// a metadata sidecar from disk.
func (r *Registry) ModelInfo(symbol string) models.ModelInfo {
	symbol = NormalizeSymbol(symbol)
	info := models.ModelInfo{Symbol: symbol}

	if loc, ok := (*r.index.Load())[symbol]; ok {
		meta := r.loader.readMetadata(
			strings.TrimSuffix(loc.Path, modelSuffix) + metadataSuffix)
		info.Available = true
		info.ModelKind = models.KindSpecific
		info.Cached = r.cache.Contains(specificKey(symbol))
		info.ArtifactPath = loc.Path
		info.TrainingDate = meta.TrainingDate
		info.TestMAPE = meta.TestMAPE
		return info
	}

	if ga := r.general.Load(); ga != nil {
		if _, ok := ga.SymbolIDs[symbol]; ok {
			info.Available = true
			info.ModelKind = models.KindGeneral
			info.ArtifactPath = ga.Path
			info.TrainingDate = ga.Meta.TrainingDate
			info.TestMAPE = ga.Meta.TestMAPE
		}
	}
	return info
}

// Stats snapshots the registry counters and coverage in one consistent read
// of the counter set.
func (r *Registry) Stats() models.RegistryStats {
	r.mu.Lock()
	c := r.stats
	r.mu.Unlock()

	s := models.RegistryStats{
		TotalRequests:    c.totalRequests,
		CacheHits:        c.cacheHits,
		CacheMisses:      c.cacheMisses,
		SpecificRequests: c.specific,
		GeneralRequests:  c.general,
		ModelsLoaded:     c.modelsLoaded,
		CacheSize:        r.cache.Len(),
		CacheCapacity:    r.cache.Capacity(),
		SpecificModels:   len(*r.index.Load()),
		GeneralSymbols:   r.generalSymbolCount(),
	}
	if c.totalRequests > 0 {
		s.HitRate = float64(c.cacheHits) / float64(c.totalRequests)
	}
	s.TotalCoverage = len(r.AllAvailableSymbols())
	return s
}

// ClearCache evicts every cached artifact and zeroes the counters. The
// general model stays resident.
func (r *Registry) ClearCache() {
	r.cache.Clear()
	r.mu.Lock()
	r.stats = counters{}
	r.mu.Unlock()
	if r.log != nil {
		r.log.Info("model cache cleared")
	}
}

// RefreshSummary reports what a Refresh changed.
type RefreshSummary struct {
	SpecificModels int `json:"specific_models"`
	Invalidated    int `json:"invalidated"`
	GeneralSymbols int `json:"general_model_symbols"`
}

// Refresh rescans the artifact directories and swaps in the new index
// atomically. Cached artifacts whose file vanished or was rewritten since
// the previous scan are dropped so the next request reloads them; untouched
// entries keep serving with no downtime. The general model is reloaded in
// full, keeping the previous one on failure.
func (r *Registry) Refresh() RefreshSummary {
	oldIdx := *r.index.Load()
	newIdx := r.loader.Scan()

	invalidated := 0
	for sym, oldLoc := range oldIdx {
		newLoc, still := newIdx[sym]
		if still && newLoc.ModTime.Equal(oldLoc.ModTime) {
			continue
		}
		if r.cache.Remove(specificKey(sym)) {
			invalidated++
		}
	}
	r.index.Store(&newIdx)

	if ga, err := r.loader.LoadGeneral(); err != nil {
		if r.log != nil {
			r.log.Warn("general model refresh failed, keeping previous", applogger.Error(err))
		}
	} else {
		r.general.Store(ga)
	}

	sum := RefreshSummary{
		SpecificModels: len(newIdx),
		Invalidated:    invalidated,
		GeneralSymbols: r.generalSymbolCount(),
	}
	if r.log != nil {
		r.log.Info("model registry refreshed",
			applogger.Int("specific_models", sum.SpecificModels),
			applogger.Int("invalidated", sum.Invalidated),
			applogger.Int("general_symbols", sum.GeneralSymbols),
		)
	}
	return sum
}

func (r *Registry) generalSymbolCount() int {
	if ga := r.general.Load(); ga != nil {
		return len(ga.SymbolIDs)
	}
	return 0
}
