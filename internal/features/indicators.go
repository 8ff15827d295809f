// Package features computes technical indicators over daily bars and
// assembles the feature rows used downstream.
package features

import "math"

// Indicator spans.
const (
	SMAShortSpan   = 5
	SMALongSpan    = 20
	EMAFastSpan    = 12
	EMASlowSpan    = 26
	RSISpan        = 14
	MACDSignalSpan = 9
	BollingerSpan  = 20
	BollingerWidth = 2.0
)

// SMA computes a simple moving average with the given span. Positions
// before the window fills are NaN.
func SMA(vals []float64, span int) []float64 {
	out := nanSlice(len(vals))
	var sum float64
	for i, v := range vals {
		sum += v
		if i >= span {
			sum -= vals[i-span]
		}
		if i >= span-1 {
			out[i] = sum / float64(span)
		}
	}
	return out
}

// EMA computes an exponential moving average with alpha = 2/(span+1),
// seeded with the first value.
func EMA(vals []float64, span int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the relative strength index using rolling means of gains
// and losses over the span. Positions before the window fills are NaN.
// A window with no losses reads 100, a window with no moves 50.
func RSI(vals []float64, span int) []float64 {
	out := nanSlice(len(vals))
	if len(vals) < 2 {
		return out
	}

	gains := make([]float64, len(vals))
	losses := make([]float64, len(vals))
	for i := 1; i < len(vals); i++ {
		diff := vals[i] - vals[i-1]
		if diff > 0 {
			gains[i] = diff
		} else {
			losses[i] = -diff
		}
	}

	// Diffs start at index 1, so the first full window ends at span
	avgGain := SMA(gains[1:], span)
	avgLoss := SMA(losses[1:], span)
	for i := span - 1; i < len(avgGain); i++ {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case g == 0 && l == 0:
			out[i+1] = 50
		case l == 0:
			out[i+1] = 100
		default:
			out[i+1] = 100 - 100/(1+g/l)
		}
	}
	return out
}

// MACD computes the MACD line, its signal line, and the histogram.
func MACD(vals []float64) (macd, signal, histogram []float64) {
	fast := EMA(vals, EMAFastSpan)
	slow := EMA(vals, EMASlowSpan)

	macd = make([]float64, len(vals))
	for i := range vals {
		macd[i] = fast[i] - slow[i]
	}
	signal = EMA(macd, MACDSignalSpan)

	histogram = make([]float64, len(vals))
	for i := range vals {
		histogram[i] = macd[i] - signal[i]
	}
	return macd, signal, histogram
}

// Bollinger computes the middle, upper, and lower Bollinger bands.
// Positions before the window fills are NaN.
func Bollinger(vals []float64, span int, width float64) (middle, upper, lower []float64) {
	middle = SMA(vals, span)
	upper = nanSlice(len(vals))
	lower = nanSlice(len(vals))

	for i := span - 1; i < len(vals); i++ {
		m := middle[i]
		var sq float64
		for j := i - span + 1; j <= i; j++ {
			d := vals[j] - m
			sq += d * d
		}
		// Sample std, matching the usual rolling-std convention
		std := math.Sqrt(sq / float64(span-1))
		upper[i] = m + width*std
		lower[i] = m - width*std
	}
	return middle, upper, lower
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
