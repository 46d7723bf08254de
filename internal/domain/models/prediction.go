package models

import "time"

// ModelKind tags which artifact pool served a prediction.
type ModelKind string

const (
	KindSpecific ModelKind = "specific"
	KindGeneral  ModelKind = "general"
)

// Horizon is the forecast horizon tag carried through requests and results.
type Horizon string

const (
	Horizon1D  Horizon = "1d"
	Horizon5D  Horizon = "5d"
	Horizon10D Horizon = "10d"
	Horizon30D Horizon = "30d"
)

// IsValidHorizon returns true for a supported horizon tag.
func IsValidHorizon(h Horizon) bool {
	switch h {
	case Horizon1D, Horizon5D, Horizon10D, Horizon30D:
		return true
	default:
		return false
	}
}

// DefaultHorizon returns the default forecast horizon.
func DefaultHorizon() Horizon { return Horizon10D }

// NormalizeHorizon converts a raw string to a valid horizon (or default).
func NormalizeHorizon(s string) Horizon {
	if s == "" {
		return DefaultHorizon()
	}
	h := Horizon(s)
	if IsValidHorizon(h) {
		return h
	}
	return DefaultHorizon()
}

// Tick is one observed trade/price point from the market feed.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"` // unix seconds
	Price     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

// PredictionResult is the outcome of a single-symbol prediction. Created
// fresh per request; never persisted by the serving core.
type PredictionResult struct {
	Symbol     string    `json:"symbol"`
	Horizon    Horizon   `json:"horizon"`
	Prediction float64   `json:"prediction"`
	LastPrice  float64   `json:"last_price"`
	Change     float64   `json:"change"`
	ChangePct  float64   `json:"change_pct"`
	ModelKind  ModelKind `json:"model_kind"`
	Cached     bool      `json:"cached"`
	Clamped    bool      `json:"clamped,omitempty"` // negative forecast clamped to zero
	TestMAPE   *float64  `json:"test_mape,omitempty"`
	Duration   float64   `json:"execution_time"` // seconds
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorRecord captures one failed item inside a batch. It is a value, not an
// error: batch failures are isolated per slot, never raised.
type ErrorRecord struct {
	Symbol  string `json:"symbol"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BatchItem occupies one positional slot of a batch result: exactly one of
// Result or Error is set.
type BatchItem struct {
	Result *PredictionResult `json:"result,omitempty"`
	Error  *ErrorRecord      `json:"error,omitempty"`
}

// BatchResult aggregates a bounded-concurrency batch run. Items preserve the
// input symbol order regardless of completion order.
type BatchResult struct {
	Items        []BatchItem `json:"items"`
	SuccessCount int         `json:"success_count"`
	FailureCount int         `json:"failure_count"`
	Duration     float64     `json:"execution_time"` // seconds
	Timestamp    time.Time   `json:"timestamp"`
}

// RegistryStats is a point-in-time snapshot of registry counters.
type RegistryStats struct {
	TotalRequests    int64   `json:"total_requests"`
	CacheHits        int64   `json:"cache_hits"`
	CacheMisses      int64   `json:"cache_misses"`
	SpecificRequests int64   `json:"specific_requests"`
	GeneralRequests  int64   `json:"general_requests"`
	ModelsLoaded     int64   `json:"models_loaded"`
	HitRate          float64 `json:"cache_hit_rate"`
	CacheSize        int     `json:"cache_size"`
	CacheCapacity    int     `json:"cache_capacity"`
	SpecificModels   int     `json:"specific_models"`
	GeneralSymbols   int     `json:"general_model_symbols"`
	TotalCoverage    int     `json:"total_coverage"`
}

// ModelInfo describes one symbol's serving artifact without loading it.
type ModelInfo struct {
	Symbol       string    `json:"symbol"`
	Available    bool      `json:"available"`
	ModelKind    ModelKind `json:"model_kind,omitempty"`
	Cached       bool      `json:"cached"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	TrainingDate string    `json:"training_date,omitempty"`
	TestMAPE     *float64  `json:"test_mape,omitempty"`
}

// AvailableModels lists serving coverage by pool.
type AvailableModels struct {
	Specific []string `json:"specific"`
	General  []string `json:"general"`
	All      []string `json:"all"`
}
