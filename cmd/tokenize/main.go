package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"nse-market-lab/internal/cleaning"
	"nse-market-lab/internal/dataset"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/tokenizer"
)

func main() {
	// Parse flags
	featureCSV := flag.String("feature-csv", "", "Feature timeseries CSV to tokenize (required)")
	scalersPath := flag.String("scalers", "", "Fitted scaler set to apply before tokenizing")
	nBins := flag.Int("n-bins", 0, "Quantile bins per column (default: 1000)")
	seqLen := flag.Int("seq-len", domain.DefaultInputLen, "Token window length")
	outPath := flag.String("out", "tokenizer.gob", "Output path for the fitted tokenizer")
	tokensPath := flag.String("tokens-out", "", "Output path for encoded token windows")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stdout, "[tokenize] ", log.LstdFlags)

	if err := run(logger, *featureCSV, *scalersPath, *nBins, *seqLen, *outPath, *tokensPath, *verbose); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

func run(logger *log.Logger, featureCSV, scalersPath string, nBins, seqLen int, outPath, tokensPath string, verbose bool) error {
	if featureCSV == "" {
		return fmt.Errorf("--feature-csv is required")
	}

	bars, err := dataset.ReadFeatureBarsCSV(featureCSV)
	if err != nil {
		return fmt.Errorf("read %s: %w", featureCSV, err)
	}
	logger.Printf("Loaded %d feature rows", len(bars))

	if scalersPath != "" {
		scalers, err := cleaning.LoadScalerSet(scalersPath)
		if err != nil {
			return fmt.Errorf("load scalers: %w", err)
		}
		if err := scalers.TransformBars(bars); err != nil {
			return fmt.Errorf("apply scalers: %w", err)
		}
		logger.Printf("Applied %s scalers", scalers.Kind)
	}

	tok := tokenizer.New(nBins, domain.FeatureColumns)
	if err := tok.Fit(bars); err != nil {
		return fmt.Errorf("fit tokenizer: %w", err)
	}

	logger.Printf("Fitted tokenizer: %d bins, vocab size %d, composite radix %d", tok.NBins, tok.VocabSize, tok.Radix())
	if verbose {
		for i, col := range tok.Columns {
			logger.Printf("  %-16s %d effective bins", col, tok.Discretizers[i].EffectiveBins())
		}
	}

	windows, err := tok.Transform(bars, seqLen)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	logger.Printf("Encoded %d token windows of length %d", len(windows), seqLen)

	if err := tok.Save(outPath); err != nil {
		return fmt.Errorf("save tokenizer: %w", err)
	}
	logger.Printf("Saved tokenizer to %s", outPath)

	if tokensPath != "" {
		if err := dataset.SaveGob(tokensPath, windows); err != nil {
			return fmt.Errorf("save token windows: %w", err)
		}
		logger.Printf("Saved token windows to %s", tokensPath)
	}
	return nil
}
