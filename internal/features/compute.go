package features

import (
	"fmt"
	"math"
	"sort"

	"nse-market-lab/internal/domain"
)

// Compute builds feature bars for every symbol in bars. Input bars may
// be mixed across symbols and unordered. Warm-up rows whose indicators
// are not yet defined are dropped. Output is ordered by symbol, then
// timestamp.
func Compute(bars []*domain.Bar) ([]*domain.FeatureBar, error) {
	bySymbol := make(map[string][]*domain.Bar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var out []*domain.FeatureBar
	for _, symbol := range symbols {
		rows, err := ComputeSymbol(bySymbol[symbol])
		if err != nil {
			return nil, fmt.Errorf("compute features for %s: %w", symbol, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// ComputeSymbol builds feature bars for a single symbol's bar series.
func ComputeSymbol(bars []*domain.Bar) ([]*domain.FeatureBar, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	symbol := bars[0].Symbol
	for _, b := range bars {
		if b.Symbol != symbol {
			return nil, fmt.Errorf("mixed symbols: %s and %s", symbol, b.Symbol)
		}
	}

	sorted := make([]*domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	closes := make([]float64, len(sorted))
	for i, b := range sorted {
		closes[i] = b.Close
	}

	sma5 := SMA(closes, SMAShortSpan)
	sma20 := SMA(closes, SMALongSpan)
	ema12 := EMA(closes, EMAFastSpan)
	ema26 := EMA(closes, EMASlowSpan)
	rsi := RSI(closes, RSISpan)
	macd, macdSignal, macdHist := MACD(closes)
	bbMiddle, bbUpper, bbLower := Bollinger(closes, BollingerSpan, BollingerWidth)

	out := make([]*domain.FeatureBar, 0, len(sorted))
	for i, b := range sorted {
		fb := &domain.FeatureBar{
			Symbol:        symbol,
			TimestampMs:   b.TimestampMs,
			Open:          b.Open,
			High:          b.High,
			Low:           b.Low,
			Close:         b.Close,
			Volume:        b.Volume,
			SMA5:          sma5[i],
			SMA20:         sma20[i],
			EMA12:         ema12[i],
			EMA26:         ema26[i],
			RSI:           rsi[i],
			MACD:          macd[i],
			MACDSignal:    macdSignal[i],
			MACDHistogram: macdHist[i],
			BBMiddle:      bbMiddle[i],
			BBUpper:       bbUpper[i],
			BBLower:       bbLower[i],
		}
		// Drop warm-up rows
		if hasNaN(fb.Values()) {
			continue
		}
		out = append(out, fb)
	}
	return out, nil
}

func hasNaN(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
