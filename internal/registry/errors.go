package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGeneralUnavailable is returned when the shared multi-symbol artifact is
// not loadable (directory absent or never loaded).
var ErrGeneralUnavailable = errors.New("registry: general model unavailable")

// ArtifactMissingError reports an absent artifact file. Part distinguishes
// the model file from its paired scaler.
type ArtifactMissingError struct {
	Symbol string
	Part   string // "model" | "scaler"
	Path   string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("registry: %s %s file missing: %s", e.Symbol, e.Part, e.Path)
}

// ArtifactCorruptError reports an artifact that exists but cannot be
// deserialized, or whose parts are inconsistent with each other.
type ArtifactCorruptError struct {
	Symbol string
	Path   string
	Err    error
}

func (e *ArtifactCorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry: corrupt artifact for %s (%s): %v", e.Symbol, e.Path, e.Err)
	}
	return fmt.Sprintf("registry: corrupt artifact for %s (%s)", e.Symbol, e.Path)
}

func (e *ArtifactCorruptError) Unwrap() error { return e.Err }

// ModelNotFoundError reports a symbol unknown to both artifact pools.
// Available lists the union of both indices at the time of the request.
type ModelNotFoundError struct {
	Symbol    string
	Available []string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("registry: no model for symbol %q; available: [%s]",
		e.Symbol, strings.Join(e.Available, " "))
}
