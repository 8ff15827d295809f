// Package reporting renders dataset, prediction, and evaluation
// summaries as plain text and JSON.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SymbolSummary describes one symbol's stored bar history.
type SymbolSummary struct {
	Symbol    string  `json:"symbol"`
	Rows      int     `json:"rows"`
	FirstDate string  `json:"first_date"`
	LastDate  string  `json:"last_date"`
	MinClose  float64 `json:"min_close"`
	MaxClose  float64 `json:"max_close"`
	AvgVolume float64 `json:"avg_volume"`
}

// DatasetSummary describes the stored dataset across all symbols.
type DatasetSummary struct {
	GeneratedAt time.Time       `json:"generated_at"`
	TotalRows   int             `json:"total_rows"`
	Symbols     []SymbolSummary `json:"symbols"`
}

// WriteJSON writes any report as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
