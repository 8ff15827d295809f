package domain

// FeatureBar is a bar enriched with technical indicators.
// Corresponds to feature_bars table in ClickHouse.
type FeatureBar struct {
	Symbol      string
	TimestampMs int64

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	SMA5          float64 // 5-period simple moving average of close
	SMA20         float64 // 20-period simple moving average of close
	EMA12         float64 // 12-period exponential moving average of close
	EMA26         float64 // 26-period exponential moving average of close
	RSI           float64 // 14-period relative strength index
	MACD          float64 // EMA12 - EMA26
	MACDSignal    float64 // 9-period EMA of MACD
	MACDHistogram float64 // MACD - MACDSignal
	BBMiddle      float64 // 20-period Bollinger middle band
	BBUpper       float64 // middle + 2 standard deviations
	BBLower       float64 // middle - 2 standard deviations
}

// FeatureColumns is the canonical feature column order. Every matrix,
// scaler set and tokenizer in the pipeline indexes columns in this order.
var FeatureColumns = []string{
	"open",
	"high",
	"low",
	"close",
	"volume",
	"sma_5",
	"sma_20",
	"ema_12",
	"ema_26",
	"rsi",
	"macd",
	"macd_signal",
	"macd_histogram",
	"bb_middle",
	"bb_upper",
	"bb_lower",
}

// CloseColumn is the index of "close" within FeatureColumns.
const CloseColumn = 3

// Values returns the bar's feature values in FeatureColumns order.
func (f *FeatureBar) Values() []float64 {
	return []float64{
		f.Open,
		f.High,
		f.Low,
		f.Close,
		f.Volume,
		f.SMA5,
		f.SMA20,
		f.EMA12,
		f.EMA26,
		f.RSI,
		f.MACD,
		f.MACDSignal,
		f.MACDHistogram,
		f.BBMiddle,
		f.BBUpper,
		f.BBLower,
	}
}

// SetValues overwrites the bar's feature fields from a slice in
// FeatureColumns order. Panics if vals has the wrong length.
func (f *FeatureBar) SetValues(vals []float64) {
	if len(vals) != len(FeatureColumns) {
		panic("domain: feature value count mismatch")
	}
	f.Open = vals[0]
	f.High = vals[1]
	f.Low = vals[2]
	f.Close = vals[3]
	f.Volume = vals[4]
	f.SMA5 = vals[5]
	f.SMA20 = vals[6]
	f.EMA12 = vals[7]
	f.EMA26 = vals[8]
	f.RSI = vals[9]
	f.MACD = vals[10]
	f.MACDSignal = vals[11]
	f.MACDHistogram = vals[12]
	f.BBMiddle = vals[13]
	f.BBUpper = vals[14]
	f.BBLower = vals[15]
}
