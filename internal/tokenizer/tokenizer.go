package tokenizer

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"nse-market-lab/internal/dataset"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/observability"
)

// Special token codes. They occupy the lowest integer values; bin
// indices are offset above them.
const (
	PadToken  = 0
	UnkToken  = 1
	ClsToken  = 2
	SepToken  = 3
	MaskToken = 4

	NumSpecialTokens = 5
)

// DefaultNBins is the default quantile bin count per feature column.
const DefaultNBins = 1000

// ErrNotFitted is returned when a tokenizer is used before Fit or Load.
var ErrNotFitted = errors.New("tokenizer not fitted")

// Tokenizer discretizes feature rows and combines the per-column bin
// indices into one composite big-integer token per time step.
//
// The composite radix is NBins + NumSpecialTokens. With the default
// 16-column feature set and 1000 bins, radix^16 exceeds uint64, so
// tokens are math/big integers.
type Tokenizer struct {
	NBins        int
	VocabSize    int
	Columns      []string
	Discretizers []*Discretizer
}

// New creates an unfitted tokenizer over the given feature columns.
func New(nBins int, columns []string) *Tokenizer {
	if nBins <= 0 {
		nBins = DefaultNBins
	}
	return &Tokenizer{
		NBins:     nBins,
		VocabSize: nBins + NumSpecialTokens,
		Columns:   columns,
	}
}

// IsFitted reports whether the tokenizer has fitted discretizers.
func (t *Tokenizer) IsFitted() bool {
	return len(t.Discretizers) == len(t.Columns) && len(t.Columns) > 0
}

// Radix returns the mixed-radix base for composite encoding.
func (t *Tokenizer) Radix() int {
	return t.NBins + NumSpecialTokens
}

// Fit fits one quantile discretizer per feature column over bars.
// Deterministic given identical input.
func (t *Tokenizer) Fit(bars []*domain.FeatureBar) error {
	if len(bars) == 0 {
		return fmt.Errorf("fit tokenizer: no rows")
	}

	cols := make([][]float64, len(t.Columns))
	for i := range cols {
		cols[i] = make([]float64, 0, len(bars))
	}
	for _, b := range bars {
		vals := b.Values()
		if len(vals) != len(t.Columns) {
			return fmt.Errorf("fit tokenizer: row has %d values, expected %d", len(vals), len(t.Columns))
		}
		for i, v := range vals {
			cols[i] = append(cols[i], v)
		}
	}

	discretizers := make([]*Discretizer, len(t.Columns))
	for i, vals := range cols {
		d := &Discretizer{NBins: t.NBins}
		if err := d.Fit(vals); err != nil {
			return fmt.Errorf("fit column %s: %w", t.Columns[i], err)
		}
		discretizers[i] = d
	}
	t.Discretizers = discretizers
	return nil
}

// EncodeRow combines one row's bin indices into a composite token.
// The first column is the most significant digit.
func (t *Tokenizer) EncodeRow(vals []float64) (*big.Int, error) {
	if !t.IsFitted() {
		return nil, ErrNotFitted
	}
	if len(vals) != len(t.Discretizers) {
		return nil, fmt.Errorf("encode row: %d values, expected %d", len(vals), len(t.Discretizers))
	}

	radix := big.NewInt(int64(t.Radix()))
	tok := new(big.Int)
	digit := new(big.Int)
	for i, v := range vals {
		bin := t.Discretizers[i].Transform(v)
		digit.SetInt64(int64(bin + NumSpecialTokens))
		tok.Mul(tok, radix)
		tok.Add(tok, digit)
	}
	return tok, nil
}

// DecodeToken recovers the per-column bin indices from a composite
// token, in column order.
func (t *Tokenizer) DecodeToken(tok *big.Int) ([]int, error) {
	if !t.IsFitted() {
		return nil, ErrNotFitted
	}

	radix := big.NewInt(int64(t.Radix()))
	rest := new(big.Int).Set(tok)
	digit := new(big.Int)

	bins := make([]int, len(t.Columns))
	for i := len(bins) - 1; i >= 0; i-- {
		rest.DivMod(rest, radix, digit)
		bins[i] = int(digit.Int64()) - NumSpecialTokens
	}
	if rest.Sign() != 0 {
		return nil, fmt.Errorf("decode token: value exceeds %d digits", len(t.Columns))
	}
	return bins, nil
}

// DecodeMidpoints recovers approximate column values from a composite
// token using each bin's interval midpoint. Lossy by construction.
func (t *Tokenizer) DecodeMidpoints(tok *big.Int) ([]float64, error) {
	bins, err := t.DecodeToken(tok)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, len(bins))
	for i, bin := range bins {
		vals[i] = t.Discretizers[i].Midpoint(bin)
	}
	return vals, nil
}

// Transform encodes bars into per-symbol composite-token windows of
// seqLen tokens. Rows are processed chronologically per symbol, chunked
// into non-overlapping windows, and a partial tail is discarded.
// Windows never cross symbols. Output is ordered by symbol name, then
// chronologically within a symbol.
func (t *Tokenizer) Transform(bars []*domain.FeatureBar, seqLen int) ([][]*big.Int, error) {
	if !t.IsFitted() {
		return nil, ErrNotFitted
	}
	if seqLen <= 0 {
		return nil, fmt.Errorf("transform: seqLen must be positive, got %d", seqLen)
	}

	bySymbol := make(map[string][]*domain.FeatureBar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var windows [][]*big.Int
	encoded := 0
	for _, symbol := range symbols {
		rows := bySymbol[symbol]
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].TimestampMs < rows[j].TimestampMs
		})

		tokens := make([]*big.Int, 0, len(rows))
		for _, b := range rows {
			tok, err := t.EncodeRow(b.Values())
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", symbol, err)
			}
			tokens = append(tokens, tok)
		}
		encoded += len(tokens)

		// Non-overlapping chunks; the partial tail is discarded
		for start := 0; start+seqLen <= len(tokens); start += seqLen {
			windows = append(windows, tokens[start:start+seqLen])
		}
	}

	observability.DefaultMetrics.TokensEncoded.Add(float64(encoded))
	return windows, nil
}

// Save persists the tokenizer state to a gob file.
func (t *Tokenizer) Save(path string) error {
	if !t.IsFitted() {
		return ErrNotFitted
	}
	return dataset.SaveGob(path, t)
}

// Load reads a fitted tokenizer from a gob file. No refit is needed.
func Load(path string) (*Tokenizer, error) {
	var t Tokenizer
	if err := dataset.LoadGob(path, &t); err != nil {
		return nil, err
	}
	if !t.IsFitted() {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, ErrNotFitted)
	}
	return &t, nil
}
