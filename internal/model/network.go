// Package model implements the portable feed-forward forecaster format used
// by trained artifacts. Training happens offline; this package only
// deserializes exported weights and runs the forward pass.
package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Activation names supported by exported layers.
type Activation string

const (
	ActReLU    Activation = "relu"
	ActTanh    Activation = "tanh"
	ActSigmoid Activation = "sigmoid"
	ActLinear  Activation = "linear"
)

// Layer is one dense layer: out = act(W·in + b).
type Layer struct {
	Weights    [][]float64 `json:"weights"` // [out][in]
	Biases     []float64   `json:"biases"`
	Activation Activation  `json:"activation"`
}

// Network is a dense forecaster over a fixed-length scaled price window.
// A general (multi-symbol) network additionally carries an embedding table;
// the symbol's embedding row is appended to the window before the first
// layer.
type Network struct {
	Window    int         `json:"window"`
	Layers    []Layer     `json:"layers"`
	Embedding [][]float64 `json:"embedding,omitempty"`
}

// WindowSize reports the number of scaled prices one inference consumes.
func (n *Network) WindowSize() int { return n.Window }

// IsGeneral reports whether the network expects a symbol id.
func (n *Network) IsGeneral() bool { return len(n.Embedding) > 0 }

// Symbols reports the embedding table size (0 for specific networks).
func (n *Network) Symbols() int { return len(n.Embedding) }

// Predict runs the forward pass for a symbol-specific network.
func (n *Network) Predict(window []float64) (float64, error) {
	if n.IsGeneral() {
		return 0, fmt.Errorf("model: general network requires a symbol id")
	}
	return n.forward(window)
}

// PredictFor runs the forward pass for a general network, conditioning on
// the training-time symbol id.
func (n *Network) PredictFor(symbolID int, window []float64) (float64, error) {
	if !n.IsGeneral() {
		return 0, fmt.Errorf("model: network has no embedding table")
	}
	if symbolID < 0 || symbolID >= len(n.Embedding) {
		return 0, fmt.Errorf("model: symbol id %d outside embedding table (size %d)", symbolID, len(n.Embedding))
	}
	in := make([]float64, 0, len(window)+len(n.Embedding[symbolID]))
	in = append(in, window...)
	in = append(in, n.Embedding[symbolID]...)
	return n.forward(in)
}

func (n *Network) forward(in []float64) (float64, error) {
	if len(n.Layers) == 0 {
		return 0, fmt.Errorf("model: network has no layers")
	}
	want := len(n.Layers[0].Weights[0])
	if len(in) != want {
		return 0, fmt.Errorf("model: input length %d, network expects %d", len(in), want)
	}
	v := in
	for li, layer := range n.Layers {
		out := make([]float64, len(layer.Weights))
		for i, row := range layer.Weights {
			sum := layer.Biases[i]
			for j, w := range row {
				sum += w * v[j]
			}
			out[i] = activate(layer.Activation, sum)
		}
		if anyNonFinite(out) {
			return 0, fmt.Errorf("model: non-finite value at layer %d", li)
		}
		v = out
	}
	if len(v) != 1 {
		return 0, fmt.Errorf("model: final layer emits %d values, want 1", len(v))
	}
	return v[0], nil
}

func activate(a Activation, x float64) float64 {
	switch a {
	case ActReLU:
		return math.Max(0, x)
	case ActTanh:
		return math.Tanh(x)
	case ActSigmoid:
		return 1 / (1 + math.Exp(-x))
	default:
		return x
	}
}

func anyNonFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}

// Parse deserializes and structurally validates an exported network.
func Parse(b []byte) (*Network, error) {
	var n Network
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("model: parse network: %w", err)
	}
	if err := n.validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *Network) validate() error {
	if n.Window <= 0 {
		return fmt.Errorf("model: window must be positive, got %d", n.Window)
	}
	if len(n.Layers) == 0 {
		return fmt.Errorf("model: network has no layers")
	}
	embDim := 0
	for i, row := range n.Embedding {
		if i == 0 {
			embDim = len(row)
		}
		if len(row) == 0 || len(row) != embDim {
			return fmt.Errorf("model: ragged embedding table at row %d", i)
		}
	}
	wantIn := n.Window + embDim
	for li, layer := range n.Layers {
		if len(layer.Weights) == 0 {
			return fmt.Errorf("model: layer %d has no rows", li)
		}
		if len(layer.Biases) != len(layer.Weights) {
			return fmt.Errorf("model: layer %d has %d biases for %d rows", li, len(layer.Biases), len(layer.Weights))
		}
		for ri, row := range layer.Weights {
			if len(row) != wantIn {
				return fmt.Errorf("model: layer %d row %d width %d, want %d", li, ri, len(row), wantIn)
			}
		}
		switch layer.Activation {
		case ActReLU, ActTanh, ActSigmoid, ActLinear:
		default:
			return fmt.Errorf("model: layer %d has unknown activation %q", li, layer.Activation)
		}
		wantIn = len(layer.Weights)
	}
	if wantIn != 1 {
		return fmt.Errorf("model: final layer emits %d values, want 1", wantIn)
	}
	return nil
}
