package cleaning

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"

	"nse-market-lab/internal/dataset"
	"nse-market-lab/internal/domain"
)

// Supported scaler kinds.
const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// ErrUnknownSymbol is returned when a ScalerSet is asked to transform a
// symbol it was not fitted on.
var ErrUnknownSymbol = errors.New("symbol not in scaler set")

func init() {
	gob.Register(&StandardScaler{})
	gob.Register(&MinMaxScaler{})
}

// Scaler maps a single feature column to a normalized range and back.
type Scaler interface {
	Fit(vals []float64)
	Transform(v float64) float64
	Inverse(v float64) float64
}

// StandardScaler scales values to zero mean and unit variance.
type StandardScaler struct {
	Mean float64
	Std  float64
}

func (s *StandardScaler) Fit(vals []float64) {
	if len(vals) == 0 {
		return
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	s.Mean = sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - s.Mean
		sq += d * d
	}
	s.Std = math.Sqrt(sq / float64(len(vals)))
}

func (s *StandardScaler) Transform(v float64) float64 {
	// Constant column scales to zero
	if s.Std == 0 {
		return 0
	}
	return (v - s.Mean) / s.Std
}

func (s *StandardScaler) Inverse(v float64) float64 {
	if s.Std == 0 {
		return s.Mean
	}
	return v*s.Std + s.Mean
}

// MinMaxScaler scales values to [0, 1].
type MinMaxScaler struct {
	Min float64
	Max float64
}

func (s *MinMaxScaler) Fit(vals []float64) {
	if len(vals) == 0 {
		return
	}
	s.Min, s.Max = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
}

func (s *MinMaxScaler) Transform(v float64) float64 {
	if s.Max == s.Min {
		return 0
	}
	return (v - s.Min) / (s.Max - s.Min)
}

func (s *MinMaxScaler) Inverse(v float64) float64 {
	if s.Max == s.Min {
		return s.Min
	}
	return v*(s.Max-s.Min) + s.Min
}

// NewScaler creates an unfitted scaler of the given kind.
func NewScaler(kind string) (Scaler, error) {
	switch kind {
	case ScalerStandard:
		return &StandardScaler{}, nil
	case ScalerMinMax:
		return &MinMaxScaler{}, nil
	default:
		return nil, fmt.Errorf("unknown scaler kind %q", kind)
	}
}

// ScalerSet holds one fitted scaler per symbol per feature column.
// Column order follows domain.FeatureColumns.
type ScalerSet struct {
	Kind    string
	Columns []string
	Scalers map[string][]Scaler
}

// FitScalers fits a scaler of the given kind for every (symbol, column)
// pair in bars.
func FitScalers(kind string, bars []*domain.FeatureBar) (*ScalerSet, error) {
	if _, err := NewScaler(kind); err != nil {
		return nil, err
	}

	bySymbol := make(map[string][][]float64)
	for _, b := range bars {
		cols := bySymbol[b.Symbol]
		if cols == nil {
			cols = make([][]float64, len(domain.FeatureColumns))
			bySymbol[b.Symbol] = cols
		}
		for i, v := range b.Values() {
			cols[i] = append(cols[i], v)
		}
	}

	set := &ScalerSet{
		Kind:    kind,
		Columns: domain.FeatureColumns,
		Scalers: make(map[string][]Scaler, len(bySymbol)),
	}
	for symbol, cols := range bySymbol {
		scalers := make([]Scaler, len(cols))
		for i, vals := range cols {
			sc, _ := NewScaler(kind)
			sc.Fit(vals)
			scalers[i] = sc
		}
		set.Scalers[symbol] = scalers
	}
	return set, nil
}

// TransformBars scales every feature column of every bar in place.
func (s *ScalerSet) TransformBars(bars []*domain.FeatureBar) error {
	for _, b := range bars {
		vals, err := s.TransformRow(b.Symbol, b.Values())
		if err != nil {
			return err
		}
		b.SetValues(vals)
	}
	return nil
}

// TransformRow scales one row of feature values for a symbol.
func (s *ScalerSet) TransformRow(symbol string, vals []float64) ([]float64, error) {
	scalers, ok := s.Scalers[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if len(vals) != len(scalers) {
		return nil, fmt.Errorf("expected %d values, got %d", len(scalers), len(vals))
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = scalers[i].Transform(v)
	}
	return out, nil
}

// InverseRow maps one scaled row back to original units.
func (s *ScalerSet) InverseRow(symbol string, vals []float64) ([]float64, error) {
	scalers, ok := s.Scalers[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if len(vals) != len(scalers) {
		return nil, fmt.Errorf("expected %d values, got %d", len(scalers), len(vals))
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = scalers[i].Inverse(v)
	}
	return out, nil
}

// InverseClose maps a scaled close value back to price units.
func (s *ScalerSet) InverseClose(symbol string, v float64) (float64, error) {
	scalers, ok := s.Scalers[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return scalers[domain.CloseColumn].Inverse(v), nil
}

// Save persists the scaler set to a gob file.
func (s *ScalerSet) Save(path string) error {
	return dataset.SaveGob(path, s)
}

// LoadScalerSet reads a scaler set from a gob file.
func LoadScalerSet(path string) (*ScalerSet, error) {
	var set ScalerSet
	if err := dataset.LoadGob(path, &set); err != nil {
		return nil, err
	}
	return &set, nil
}
