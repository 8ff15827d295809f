package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"nse-market-lab/internal/cleaning"
	"nse-market-lab/internal/dataset"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/evaluation"
	"nse-market-lab/internal/model"
	"nse-market-lab/internal/reporting"
)

func main() {
	// Parse flags
	inputCSV := flag.String("input-csv", "", "Combined bar CSV covering the evaluation period (required)")
	modelPath := flag.String("model", "checkpoints/best_model.born", "Model checkpoint")
	scalersPath := flag.String("scalers", "artifacts/scalers.gob", "Fitted scaler set")
	inputLen := flag.Int("input-len", domain.DefaultInputLen, "Model input window rows")
	targetLen := flag.Int("target-len", domain.DefaultTargetLen, "Model target window rows")
	hiddenSize := flag.Int("hidden-size", model.DefaultHiddenSize, "Model hidden layer width")
	outputJSON := flag.String("output", "", "Write the evaluation report as JSON to this path")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stderr, "[evaluate] ", log.LstdFlags)

	if err := run(logger, *inputCSV, *modelPath, *scalersPath, *inputLen, *targetLen, *hiddenSize, *outputJSON, *verbose); err != nil {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, inputCSV, modelPath, scalersPath string, inputLen, targetLen, hiddenSize int, outputJSON string, verbose bool) error {
	if inputCSV == "" {
		return fmt.Errorf("--input-csv is required")
	}

	bars, err := dataset.ReadBarsCSV(inputCSV)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputCSV, err)
	}
	logger.Printf("Loaded %d bars", len(bars))

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

	evaluator, err := evaluation.New(evaluation.Options{
		Model:   m,
		Backend: backend,
		Scalers: scalers,
		Logger:  logger,
		Verbose: verbose,
	})
	if err != nil {
		return err
	}

	report, err := evaluator.Run(bars)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	fmt.Print(reporting.RenderEvaluationText(report))

	if outputJSON != "" {
		if err := reporting.WriteJSON(outputJSON, report); err != nil {
			return err
		}
		logger.Printf("Wrote report to %s", outputJSON)
	}
	return nil
}
