package reporting

import (
	"fmt"
	"strings"

	"nse-market-lab/internal/domain"
)

// RenderDatasetText renders a dataset summary as plain text.
func RenderDatasetText(s *DatasetSummary) string {
	var sb strings.Builder

	sb.WriteString("=== Dataset Summary ===\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Total rows: %d across %d symbols\n\n", s.TotalRows, len(s.Symbols)))

	for _, sym := range s.Symbols {
		sb.WriteString(fmt.Sprintf("%-14s %6d rows  %s .. %s  close [%.2f, %.2f]  avg volume %.0f\n",
			sym.Symbol, sym.Rows, sym.FirstDate, sym.LastDate, sym.MinClose, sym.MaxClose, sym.AvgVolume))
	}
	return sb.String()
}

// RenderPredictionText renders a forecast result as plain text.
func RenderPredictionText(r *domain.PredictionResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("=== Prediction for %s ===\n", r.Symbol))
	sb.WriteString(fmt.Sprintf("Last close: %.2f on %s\n", r.LastClose, r.LastCloseDate))
	if r.Truncated {
		sb.WriteString(fmt.Sprintf("Note: only %d history rows were available; window was padded\n", r.WindowRows))
	}
	sb.WriteString("\n")

	for _, p := range r.Predictions {
		change := 0.0
		if r.LastClose != 0 {
			change = (p.Close - r.LastClose) / r.LastClose * 100
		}
		sb.WriteString(fmt.Sprintf("%s  %10.2f  (%+.2f%%)\n", p.Date, p.Close, change))
	}
	return sb.String()
}

// RenderEvaluationText renders evaluation metrics as plain text.
func RenderEvaluationText(r *domain.EvaluationReport) string {
	var sb strings.Builder

	sb.WriteString("=== Evaluation Report ===\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt))
	sb.WriteString(fmt.Sprintf("%-14s %6s %12s %12s %12s %8s %8s\n",
		"symbol", "steps", "mse", "mae", "rmse", "r2", "mape%"))

	for _, m := range r.Symbols {
		sb.WriteString(fmt.Sprintf("%-14s %6d %12.4f %12.4f %12.4f %8.4f %8.2f\n",
			m.Symbol, m.Steps, m.MSE, m.MAE, m.RMSE, m.R2, m.MAPE))
	}

	sb.WriteString(fmt.Sprintf("\n%-14s %6s %12.4f %12.4f %12.4f %8.4f %8.2f\n",
		"average", "", r.AvgMSE, r.AvgMAE, r.AvgRMSE, r.AvgR2, r.AvgMAPE))
	return sb.String()
}
