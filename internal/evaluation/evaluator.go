package evaluation

import (
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"nse-market-lab/internal/cleaning"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/features"
	"nse-market-lab/internal/model"
)

// Options configures an evaluation run.
type Options struct {
	Model   *model.Forecaster[model.Backend]
	Backend model.Backend
	Scalers *cleaning.ScalerSet

	Logger  *log.Logger
	Verbose bool
}

// Evaluator scores the forecaster against the final rows of each
// symbol's history.
type Evaluator struct {
	opts Options
}

// New creates an Evaluator. Model, Backend, and Scalers are required.
func New(opts Options) (*Evaluator, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if opts.Scalers == nil {
		return nil, fmt.Errorf("scalers are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Evaluator{opts: opts}, nil
}

// Run holds out the final target-length rows of every symbol, predicts
// them from the preceding window, and reports error metrics on the
// inverse-transformed close. Symbols that fail are logged and skipped.
func (e *Evaluator) Run(bars []*domain.Bar) (*domain.EvaluationReport, error) {
	bySymbol := make(map[string][]*domain.Bar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	report := &domain.EvaluationReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, symbol := range symbols {
		metrics, err := e.evaluateSymbol(symbol, bySymbol[symbol])
		if err != nil {
			e.opts.Logger.Printf("symbol %s failed, skipping: %v", symbol, err)
			continue
		}
		report.Symbols = append(report.Symbols, *metrics)
	}
	if len(report.Symbols) == 0 {
		return nil, fmt.Errorf("no symbol could be evaluated")
	}

	for _, m := range report.Symbols {
		report.AvgMSE += m.MSE
		report.AvgMAE += m.MAE
		report.AvgRMSE += m.RMSE
		report.AvgR2 += m.R2
		report.AvgMAPE += m.MAPE
	}
	n := float64(len(report.Symbols))
	report.AvgMSE /= n
	report.AvgMAE /= n
	report.AvgRMSE /= n
	report.AvgR2 /= n
	report.AvgMAPE /= n
	return report, nil
}

func (e *Evaluator) evaluateSymbol(symbol string, bars []*domain.Bar) (*domain.SymbolMetrics, error) {
	featureBars, err := features.ComputeSymbol(bars)
	if err != nil {
		return nil, fmt.Errorf("compute features: %w", err)
	}

	cfg := e.opts.Model.Config()
	if len(featureBars) <= cfg.TargetLen {
		return nil, fmt.Errorf("%d feature rows cannot hold out %d", len(featureBars), cfg.TargetLen)
	}

	holdout := featureBars[len(featureBars)-cfg.TargetLen:]
	history := featureBars[:len(featureBars)-cfg.TargetLen]

	window, err := e.buildWindow(symbol, history, cfg.InputLen)
	if err != nil {
		return nil, err
	}

	predictedRows, err := model.PredictWindow(e.opts.Model, window, e.opts.Backend)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	predicted := make([]float64, 0, cfg.TargetLen)
	actual := make([]float64, 0, cfg.TargetLen)
	for i, row := range predictedRows {
		price, err := e.opts.Scalers.InverseClose(symbol, row[domain.CloseColumn])
		if err != nil {
			return nil, fmt.Errorf("inverse transform: %w", err)
		}
		predicted = append(predicted, price)
		actual = append(actual, holdout[i].Close)
	}

	return &domain.SymbolMetrics{
		Symbol:    symbol,
		Steps:     len(predicted),
		MSE:       MSE(predicted, actual),
		MAE:       MAE(predicted, actual),
		RMSE:      RMSE(predicted, actual),
		R2:        R2(predicted, actual),
		MAPE:      MAPE(predicted, actual),
		Predicted: predicted,
		Actual:    actual,
	}, nil
}

// buildWindow scales history rows and returns the trailing InputLen
// window, left-padded with the earliest row when history is short.
func (e *Evaluator) buildWindow(symbol string, history []*domain.FeatureBar, inputLen int) ([][]float64, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("no history before holdout")
	}
	rows := make([][]float64, 0, len(history))
	for _, fb := range history {
		scaled, err := e.opts.Scalers.TransformRow(symbol, fb.Values())
		if err != nil {
			return nil, fmt.Errorf("scale row: %w", err)
		}
		rows = append(rows, scaled)
	}
	if len(rows) >= inputLen {
		return rows[len(rows)-inputLen:], nil
	}
	padded := make([][]float64, 0, inputLen)
	for i := len(rows); i < inputLen; i++ {
		padded = append(padded, rows[0])
	}
	return append(padded, rows...), nil
}
