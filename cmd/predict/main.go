package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"nse-market-lab/internal/cleaning"
	"nse-market-lab/internal/dataset"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/marketdata"
	"nse-market-lab/internal/model"
	"nse-market-lab/internal/prediction"
	"nse-market-lab/internal/reporting"
	"nse-market-lab/internal/tokenizer"
)

func main() {
	// Parse flags
	symbol := flag.String("symbol", "", "NSE symbol to forecast (required)")
	steps := flag.Int("steps", 0, "Forecast days (default: model horizon; larger extends autoregressively)")
	modelPath := flag.String("model", "checkpoints/best_model.born", "Model checkpoint")
	scalersPath := flag.String("scalers", "artifacts/scalers.gob", "Fitted scaler set")
	tokenizerPath := flag.String("tokenizer", "", "Fitted tokenizer (validated when given)")
	inputCSV := flag.String("input-csv", "", "Bar history CSV (alternative to chart API download)")
	endpoint := flag.String("endpoint", "https://query1.finance.yahoo.com/v8/finance/chart", "Chart API base URL")
	lookbackDays := flag.Int("lookback", 730, "History days to download when no CSV is given")
	inputLen := flag.Int("input-len", domain.DefaultInputLen, "Model input window rows")
	targetLen := flag.Int("target-len", domain.DefaultTargetLen, "Model target window rows")
	hiddenSize := flag.Int("hidden-size", model.DefaultHiddenSize, "Model hidden layer width")
	outputJSON := flag.String("output", "", "Write the prediction result as JSON to this path")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stderr, "[predict] ", log.LstdFlags)

	if err := run(logger, *symbol, *steps, *modelPath, *scalersPath, *tokenizerPath, *inputCSV, *endpoint,
		*lookbackDays, *inputLen, *targetLen, *hiddenSize, *outputJSON, *verbose); err != nil {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, symbol string, steps int, modelPath, scalersPath, tokenizerPath, inputCSV, endpoint string,
	lookbackDays, inputLen, targetLen, hiddenSize int, outputJSON string, verbose bool) error {

	if symbol == "" {
		return fmt.Errorf("--symbol is required")
	}

	if tokenizerPath != "" {
		tok, err := tokenizer.Load(tokenizerPath)
		if err != nil {
			return fmt.Errorf("load tokenizer: %w", err)
		}
		if !tok.IsFitted() {
			return fmt.Errorf("tokenizer at %s is not fitted", tokenizerPath)
		}
		if verbose {
			logger.Printf("Tokenizer vocab size %d over %d columns", tok.VocabSize, len(tok.Columns))
		}
	}

	backend := model.NewBackend()
	cfg := model.Config{
		InputLen:    inputLen,
		TargetLen:   targetLen,
		NumFeatures: len(domain.FeatureColumns),
		HiddenSize:  hiddenSize,
	}
	m, err := model.Load(modelPath, cfg, backend)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	scalers, err := cleaning.LoadScalerSet(scalersPath)
	if err != nil {
		return fmt.Errorf("load scalers: %w", err)
	}

	bars, err := loadBars(symbol, inputCSV, endpoint, lookbackDays)
	if err != nil {
		return err
	}
	logger.Printf("Loaded %d bars for %s", len(bars), symbol)

	predictor, err := prediction.New(prediction.Options{
		Model:   m,
		Backend: backend,
		Scalers: scalers,
		Steps:   steps,
		Logger:  logger,
		Verbose: verbose,
	})
	if err != nil {
		return err
	}

	result, err := predictor.Predict(symbol, bars)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	fmt.Print(reporting.RenderPredictionText(result))

	if outputJSON != "" {
		if err := reporting.WriteJSON(outputJSON, result); err != nil {
			return err
		}
		logger.Printf("Wrote result to %s", outputJSON)
	}
	return nil
}

// loadBars reads the symbol's history from a CSV or downloads it.
func loadBars(symbol, inputCSV, endpoint string, lookbackDays int) ([]*domain.Bar, error) {
	if inputCSV != "" {
		bars, err := dataset.ReadBarsCSV(inputCSV)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", inputCSV, err)
		}
		return bars, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := marketdata.NewClient(endpoint)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)
	bars, err := client.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", symbol, err)
	}
	return bars, nil
}
