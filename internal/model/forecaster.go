// Package model defines the sequence forecaster trained over scaled
// feature windows, built on born nn modules.
package model

import (
	"fmt"
	"strings"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"

	"nse-market-lab/internal/domain"
)

// Backend is the standard training backend: CPU wrapped with autodiff.
type Backend = *autodiff.Backend[*cpu.Backend]

// NewBackend creates the standard training backend.
func NewBackend() Backend {
	return autodiff.New(cpu.New())
}

// DefaultHiddenSize is the default width of the hidden layer.
const DefaultHiddenSize = 256

// Config describes the forecaster's window geometry.
type Config struct {
	InputLen    int // L, rows per input window
	TargetLen   int // P, rows per target window
	NumFeatures int // F, feature columns per row
	HiddenSize  int
}

// DefaultConfig returns the standard forecaster geometry.
func DefaultConfig() Config {
	return Config{
		InputLen:    domain.DefaultInputLen,
		TargetLen:   domain.DefaultTargetLen,
		NumFeatures: len(domain.FeatureColumns),
		HiddenSize:  DefaultHiddenSize,
	}
}

func (c Config) validate() error {
	if c.InputLen <= 0 || c.TargetLen <= 0 || c.NumFeatures <= 0 || c.HiddenSize <= 0 {
		return fmt.Errorf("invalid forecaster config %+v", c)
	}
	return nil
}

// InputSize returns the flattened input width L*F.
func (c Config) InputSize() int { return c.InputLen * c.NumFeatures }

// OutputSize returns the flattened output width P*F.
func (c Config) OutputSize() int { return c.TargetLen * c.NumFeatures }

// Forecaster maps a flattened input window [L*F] to a flattened target
// window [P*F] through one hidden layer.
type Forecaster[B tensor.Backend] struct {
	cfg Config

	fc1  *nn.Linear[B]
	relu *nn.ReLU[B]
	fc2  *nn.Linear[B]
}

// NewForecaster creates a forecaster with Xavier-initialized weights.
func NewForecaster[B tensor.Backend](cfg Config, backend B) (*Forecaster[B], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Forecaster[B]{
		cfg:  cfg,
		fc1:  nn.NewLinear[B](cfg.InputSize(), cfg.HiddenSize, backend),
		relu: nn.NewReLU[B](),
		fc2:  nn.NewLinear[B](cfg.HiddenSize, cfg.OutputSize(), backend),
	}, nil
}

// Config returns the forecaster's window geometry.
func (m *Forecaster[B]) Config() Config { return m.cfg }

// Forward runs a batch of flattened input windows through the network.
// Input shape is [batch, L*F] or [L*F] for a single window; output is
// [batch, P*F].
func (m *Forecaster[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) == 1 {
		input = input.Reshape(1, m.cfg.InputSize())
	} else if len(shape) != 2 || shape[1] != m.cfg.InputSize() {
		panic(fmt.Sprintf("forecaster: input must be [batch, %d], got %v", m.cfg.InputSize(), shape))
	}

	x := m.fc1.Forward(input)
	x = m.relu.Forward(x)
	return m.fc2.Forward(x)
}

// Parameters returns all trainable parameters.
func (m *Forecaster[B]) Parameters() []*nn.Parameter[B] {
	params := make([]*nn.Parameter[B], 0, 4)
	params = append(params, m.fc1.Parameters()...)
	params = append(params, m.fc2.Parameters()...)
	return params
}

// StateDict exports the parameters with layer-prefixed keys.
func (m *Forecaster[B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for name, raw := range m.fc1.StateDict() {
		out["fc1."+name] = raw
	}
	for name, raw := range m.fc2.StateDict() {
		out["fc2."+name] = raw
	}
	return out
}

// LoadStateDict loads layer-prefixed parameters.
func (m *Forecaster[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	fc1 := make(map[string]*tensor.RawTensor)
	fc2 := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		switch {
		case strings.HasPrefix(name, "fc1."):
			fc1[strings.TrimPrefix(name, "fc1.")] = raw
		case strings.HasPrefix(name, "fc2."):
			fc2[strings.TrimPrefix(name, "fc2.")] = raw
		default:
			return fmt.Errorf("unexpected parameter %q in state dict", name)
		}
	}
	if err := m.fc1.LoadStateDict(fc1); err != nil {
		return fmt.Errorf("load fc1: %w", err)
	}
	if err := m.fc2.LoadStateDict(fc2); err != nil {
		return fmt.Errorf("load fc2: %w", err)
	}
	return nil
}

// Save writes the forecaster to a .born checkpoint with its geometry
// recorded in the metadata.
func Save[B tensor.Backend](m *Forecaster[B], path string) error {
	meta := map[string]string{
		"input_len":    fmt.Sprint(m.cfg.InputLen),
		"target_len":   fmt.Sprint(m.cfg.TargetLen),
		"num_features": fmt.Sprint(m.cfg.NumFeatures),
		"hidden_size":  fmt.Sprint(m.cfg.HiddenSize),
	}
	return nn.Save[B](m, path, "Forecaster", meta)
}

// Load reads a forecaster with the given geometry from a .born
// checkpoint. The config must match the saved weights' shapes.
func Load[B tensor.Backend](path string, cfg Config, backend B) (*Forecaster[B], error) {
	m, err := NewForecaster(cfg, backend)
	if err != nil {
		return nil, err
	}
	if _, err := nn.Load(path, backend, m); err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	return m, nil
}

// FlattenWindow converts an L x F row-major window into the flattened
// float32 layout Forward expects.
func FlattenWindow(rows [][]float64) []float32 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float32, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		for _, v := range row {
			out = append(out, float32(v))
		}
	}
	return out
}

// UnflattenWindow converts a flattened P*F output back into rows.
func UnflattenWindow(flat []float32, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		row := make([]float64, cols)
		for j := range row {
			row[j] = float64(flat[i*cols+j])
		}
		out[i] = row
	}
	return out
}

// PredictWindow runs one input window through the forecaster and
// returns the predicted target rows.
func PredictWindow[B tensor.Backend](m *Forecaster[B], window [][]float64, backend B) ([][]float64, error) {
	cfg := m.Config()
	if len(window) != cfg.InputLen {
		return nil, fmt.Errorf("window has %d rows, model expects %d", len(window), cfg.InputLen)
	}

	flat := FlattenWindow(window)
	input, err := tensor.FromSlice(flat, tensor.Shape{1, cfg.InputSize()}, backend)
	if err != nil {
		return nil, fmt.Errorf("build input tensor: %w", err)
	}

	output := m.Forward(input)
	return UnflattenWindow(output.Data(), cfg.TargetLen, cfg.NumFeatures), nil
}
