package domain

import "time"

// Bar represents a single daily OHLCV bar for an NSE symbol.
// Corresponds to bars table in Postgres.
type Bar struct {
	Symbol      string  // NSE symbol, e.g. "RELIANCE.NS"
	TimestampMs int64   // Unix timestamp in milliseconds (session date at midnight UTC)
	Open        float64 // opening price
	High        float64 // session high
	Low         float64 // session low
	Close       float64 // closing price
	Volume      float64 // traded volume in shares
}

// Date returns the bar's session date in UTC.
func (b *Bar) Date() time.Time {
	return time.UnixMilli(b.TimestampMs).UTC()
}

// HasMissing reports whether any field carries a missing-value marker (NaN).
func (b *Bar) HasMissing() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if v != v {
			return true
		}
	}
	return false
}

// DefaultSymbols is the NSE symbol universe used when no symbol list is given.
var DefaultSymbols = []string{
	"RELIANCE.NS",
	"TCS.NS",
	"INFY.NS",
	"HDFCBANK.NS",
	"NIFTY50.NS",
	"BANKNIFTY.NS",
}
