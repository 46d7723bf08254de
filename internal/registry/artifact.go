package registry

import (
	"fmt"

	"StockCast/internal/domain/models"
	"StockCast/internal/model"
	"StockCast/internal/scaler"
)

// Metadata is the optional sidecar describing how an artifact was trained.
type Metadata struct {
	TrainingDate string   `json:"training_date,omitempty"`
	TestMAPE     *float64 `json:"test_mape,omitempty"`
	Version      string   `json:"model_version,omitempty"`
}

// Artifact is a loaded forecaster bound to the scaler it was trained with.
// The Kind tag is the routing decision made explicit: inference dispatches on
// it rather than on runtime type inspection. For KindGeneral the artifact is
// a per-symbol view over the shared network: SymbolID selects the embedding
// row and Scaler is the symbol's slice of the shared scaler collection.
type Artifact struct {
	Kind     models.ModelKind
	Net      *model.Network
	SymbolID int
	Scaler   scaler.State
	Meta     Metadata
	Path     string
}

// Window is the trailing price count one inference consumes.
func (a *Artifact) Window() int { return a.Net.WindowSize() }

// Infer runs the model on an already-scaled window and returns the scaled
// scalar prediction.
func (a *Artifact) Infer(window []float64) (float64, error) {
	switch a.Kind {
	case models.KindSpecific:
		return a.Net.Predict(window)
	case models.KindGeneral:
		return a.Net.PredictFor(a.SymbolID, window)
	default:
		return 0, fmt.Errorf("registry: unknown artifact kind %q", a.Kind)
	}
}
