package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/model"
	"StockCast/internal/scaler"
	applogger "StockCast/pkg/logger"
)

// Artifact file naming convention (mirrors the training pipeline's export
// layout):
//
//	specific pool:  {SYMBOL}_best.json, {SYMBOL}_scaler.json, {SYMBOL}_metadata.json
//	general pool:   general_best.json, scalers.json, symbol_ids.json, metadata.json
const (
	modelSuffix    = "_best.json"
	scalerSuffix   = "_scaler.json"
	metadataSuffix = "_metadata.json"

	generalModelFile    = "general_best.json"
	generalScalersFile  = "scalers.json"
	generalIDsFile      = "symbol_ids.json"
	generalMetadataFile = "metadata.json"
)

// Location points at one discovered specific artifact. ModTime is captured
// at scan time and used by Refresh to detect retrained files.
type Location struct {
	Path    string
	ModTime time.Time
}

// Loader resolves symbols to (model, scaler) pairs on durable storage. Its
// Load methods are the only core operations allowed to block on disk I/O;
// they never retry internally.
type Loader struct {
	specificDir string
	generalDir  string
	log         *applogger.Logger
}

// NewLoader creates a loader over the two artifact pool directories.
func NewLoader(specificDir, generalDir string, log *applogger.Logger) *Loader {
	return &Loader{specificDir: specificDir, generalDir: generalDir, log: log}
}

// Scan discovers which symbols have a dedicated artifact by matching the
// model naming convention. Pure and idempotent; re-run on every Refresh.
// A missing directory yields an empty index, not an error.
func (ld *Loader) Scan() map[string]Location {
	out := make(map[string]Location)
	entries, err := os.ReadDir(ld.specificDir)
	if err != nil {
		if ld.log != nil && !errors.Is(err, fs.ErrNotExist) {
			ld.log.Warn("artifact scan failed", applogger.String("dir", ld.specificDir), applogger.Error(err))
		}
		return out
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, modelSuffix) {
			continue
		}
		symbol := strings.TrimSuffix(name, modelSuffix)
		if symbol == "general" {
			continue // general pool artifact misplaced in the specific dir
		}
		loc := Location{Path: filepath.Join(ld.specificDir, name)}
		if info, err := e.Info(); err == nil {
			loc.ModTime = info.ModTime()
		}
		out[symbol] = loc
	}
	return out
}

// HasGeneralDir reports whether the general pool directory exists.
func (ld *Loader) HasGeneralDir() bool {
	if ld.generalDir == "" {
		return false
	}
	info, err := os.Stat(ld.generalDir)
	return err == nil && info.IsDir()
}

// LoadSpecific deserializes one symbol's dedicated model and its paired
// scaler. Missing model, missing scaler, and deserialization failure are
// distinct error kinds; the registry treats each as "not servable by this
// pool".
func (ld *Loader) LoadSpecific(symbol string) (*Artifact, error) {
	modelPath := filepath.Join(ld.specificDir, symbol+modelSuffix)
	b, err := os.ReadFile(modelPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ArtifactMissingError{Symbol: symbol, Part: "model", Path: modelPath}
		}
		return nil, fmt.Errorf("registry: read model for %s: %w", symbol, err)
	}
	net, err := model.Parse(b)
	if err != nil {
		return nil, &ArtifactCorruptError{Symbol: symbol, Path: modelPath, Err: err}
	}
	if net.IsGeneral() {
		return nil, &ArtifactCorruptError{Symbol: symbol, Path: modelPath,
			Err: fmt.Errorf("specific pool artifact carries an embedding table")}
	}

	scalerPath := filepath.Join(ld.specificDir, symbol+scalerSuffix)
	sb, err := os.ReadFile(scalerPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ArtifactMissingError{Symbol: symbol, Part: "scaler", Path: scalerPath}
		}
		return nil, fmt.Errorf("registry: read scaler for %s: %w", symbol, err)
	}
	st, err := scaler.Parse(sb)
	if err != nil {
		return nil, &ArtifactCorruptError{Symbol: symbol, Path: scalerPath, Err: err}
	}

	art := &Artifact{
		Kind:   models.KindSpecific,
		Net:    net,
		Scaler: st,
		Path:   modelPath,
		Meta:   ld.readMetadata(filepath.Join(ld.specificDir, symbol+metadataSuffix)),
	}
	return art, nil
}

// GeneralArtifact is the always-resident shared pool: one network covering
// many symbols, a per-symbol scaler collection, and the training-time
// symbol→id mapping. Read-only after load.
type GeneralArtifact struct {
	Net       *model.Network
	Scalers   map[string]scaler.State
	SymbolIDs map[string]int
	Meta      Metadata
	Path      string
	LoadedAt  time.Time
}

// LoadGeneral deserializes the shared artifact. ErrGeneralUnavailable when
// the directory is absent; corrupt or mutually inconsistent files are
// ArtifactCorruptError.
func (ld *Loader) LoadGeneral() (*GeneralArtifact, error) {
	if !ld.HasGeneralDir() {
		return nil, ErrGeneralUnavailable
	}

	modelPath := filepath.Join(ld.generalDir, generalModelFile)
	b, err := os.ReadFile(modelPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ArtifactMissingError{Symbol: "general", Part: "model", Path: modelPath}
		}
		return nil, fmt.Errorf("registry: read general model: %w", err)
	}
	net, err := model.Parse(b)
	if err != nil {
		return nil, &ArtifactCorruptError{Symbol: "general", Path: modelPath, Err: err}
	}
	if !net.IsGeneral() {
		return nil, &ArtifactCorruptError{Symbol: "general", Path: modelPath,
			Err: fmt.Errorf("general pool artifact has no embedding table")}
	}

	scalersPath := filepath.Join(ld.generalDir, generalScalersFile)
	sb, err := os.ReadFile(scalersPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ArtifactMissingError{Symbol: "general", Part: "scaler", Path: scalersPath}
		}
		return nil, fmt.Errorf("registry: read general scalers: %w", err)
	}
	var rawScalers map[string]json.RawMessage
	if err := json.Unmarshal(sb, &rawScalers); err != nil {
		return nil, &ArtifactCorruptError{Symbol: "general", Path: scalersPath, Err: err}
	}
	scalers := make(map[string]scaler.State, len(rawScalers))
	for sym, raw := range rawScalers {
		st, err := scaler.Parse(raw)
		if err != nil {
			return nil, &ArtifactCorruptError{Symbol: sym, Path: scalersPath, Err: err}
		}
		scalers[sym] = st
	}

	idsPath := filepath.Join(ld.generalDir, generalIDsFile)
	ib, err := os.ReadFile(idsPath)
	if err != nil {
		return nil, &ArtifactCorruptError{Symbol: "general", Path: idsPath, Err: err}
	}
	var ids map[string]int
	if err := json.Unmarshal(ib, &ids); err != nil {
		return nil, &ArtifactCorruptError{Symbol: "general", Path: idsPath, Err: err}
	}
	for sym, id := range ids {
		if id < 0 || id >= net.Symbols() {
			return nil, &ArtifactCorruptError{Symbol: sym, Path: idsPath,
				Err: fmt.Errorf("symbol id %d outside embedding table (size %d)", id, net.Symbols())}
		}
	}

	ga := &GeneralArtifact{
		Net:       net,
		Scalers:   scalers,
		SymbolIDs: ids,
		Meta:      ld.readMetadata(filepath.Join(ld.generalDir, generalMetadataFile)),
		Path:      modelPath,
		LoadedAt:  time.Now(),
	}
	if ld.log != nil {
		ld.log.Info("general model loaded",
			applogger.Int("symbols", len(ids)),
			applogger.Int("window", net.WindowSize()),
		)
	}
	return ga, nil
}

// readMetadata loads an optional metadata sidecar. Absence or parse failure
// degrades to empty metadata; a broken sidecar must not make the artifact
// unservable.
func (ld *Loader) readMetadata(path string) Metadata {
	b, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		if ld.log != nil {
			ld.log.Warn("metadata sidecar unreadable", applogger.String("path", path), applogger.Error(err))
		}
		return Metadata{}
	}
	return m
}
