package domain

// SequencePair is one training example: a window of feature rows and the
// rows that immediately follow it. Both matrices are in FeatureColumns
// order. Symbol identity is not carried on the pair; pairs from all
// symbols are pooled for training.
type SequencePair struct {
	Input  [][]float64 // InputLen x len(FeatureColumns)
	Target [][]float64 // TargetLen x len(FeatureColumns)
}

// SequenceDataset is the materialized output of the sequence builder.
type SequenceDataset struct {
	Pairs      []SequencePair
	InputLen   int // rows per input window
	TargetLen  int // rows per target window
	Stride     int // rows between consecutive window starts
	NumSymbols int // symbols that contributed at least one pair
}

// Default sequence construction parameters.
const (
	DefaultInputLen  = 512
	DefaultTargetLen = 10
	DefaultStride    = 256
)
