package domain

// PredictedPoint is a single forecast step in original price units.
type PredictedPoint struct {
	Date  string  `json:"date"` // business day, YYYY-MM-DD
	Close float64 `json:"predicted_close"`
}

// PredictionResult is the output of a forecast run for one symbol.
type PredictionResult struct {
	Symbol        string           `json:"symbol"`
	GeneratedAt   string           `json:"generated_at"`
	LastClose     float64          `json:"last_close"`
	LastCloseDate string           `json:"last_close_date"`
	WindowRows    int              `json:"window_rows"` // rows actually used as model input
	Truncated     bool             `json:"truncated"`   // true when history was shorter than requested
	Predictions   []PredictedPoint `json:"predictions"`
}

// SymbolMetrics holds regression error metrics for one symbol's
// held-out evaluation window.
type SymbolMetrics struct {
	Symbol    string    `json:"symbol"`
	Steps     int       `json:"steps"`
	MSE       float64   `json:"mse"`
	MAE       float64   `json:"mae"`
	RMSE      float64   `json:"rmse"`
	R2        float64   `json:"r2"`
	MAPE      float64   `json:"mape"` // percent
	Predicted []float64 `json:"predicted"`
	Actual    []float64 `json:"actual"`
}

// EvaluationReport aggregates per-symbol metrics for one evaluation run.
type EvaluationReport struct {
	GeneratedAt string          `json:"generated_at"`
	Symbols     []SymbolMetrics `json:"symbols"`
	AvgMSE      float64         `json:"avg_mse"`
	AvgMAE      float64         `json:"avg_mae"`
	AvgRMSE     float64         `json:"avg_rmse"`
	AvgR2       float64         `json:"avg_r2"`
	AvgMAPE     float64         `json:"avg_mape"`
}
