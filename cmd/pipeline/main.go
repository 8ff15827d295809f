// Package main runs the preprocessing pipeline end to end over
// in-memory stores with fixture data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"nse-market-lab/internal/pipeline"
	"nse-market-lab/internal/reporting"
	"nse-market-lab/internal/sequences"
	"nse-market-lab/internal/storage/memory"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	rows := flag.Int("rows", 600, "Fixture bars per symbol")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	if err := run(ctx, *outputDir, *rows, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, outputDir string, rows int, verbose bool) error {
	barStore := memory.NewBarStore()
	featureStore := memory.NewFeatureBarStore()

	symbols := []string{"RELIANCE.NS", "TCS.NS", "INFY.NS"}
	if err := pipeline.LoadFixtures(ctx, barStore, symbols, rows); err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fmt.Println("=== E2E Pipeline ===")
	p, err := pipeline.New(pipeline.Options{
		BarStore:        barStore,
		FeatureBarStore: featureStore,
		Builder:         sequences.DefaultBuilderOptions(),
		ArtifactDir:     outputDir,
		Verbose:         verbose,
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Pipeline completed:\n")
	fmt.Printf("  Symbols:        %d\n", result.Symbols)
	fmt.Printf("  Rows loaded:    %d\n", result.RowsLoaded)
	fmt.Printf("  Rows cleaned:   %d\n", result.RowsCleaned)
	fmt.Printf("  Feature rows:   %d\n", result.FeatureRows)
	fmt.Printf("  Token windows:  %d\n", result.TokenWindows)
	fmt.Printf("  Sequence pairs: %d\n", result.SequencePairs)

	// Fixed clock for deterministic output
	fixedTime := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	summary, err := reporting.NewGenerator(barStore).
		WithClock(func() time.Time { return fixedTime }).
		Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate summary: %w", err)
	}

	fmt.Println()
	fmt.Print(reporting.RenderDatasetText(summary))

	summaryPath := filepath.Join(outputDir, "dataset_summary.json")
	if err := reporting.WriteJSON(summaryPath, summary); err != nil {
		return err
	}

	fmt.Println("\nE2E Pipeline completed successfully:")
	fmt.Printf("  - %s/scalers.gob\n", outputDir)
	fmt.Printf("  - %s/tokenizer.gob\n", outputDir)
	fmt.Printf("  - %s/sequences.gob\n", outputDir)
	fmt.Printf("  - %s\n", summaryPath)
	return nil
}
