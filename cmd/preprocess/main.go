package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"nse-market-lab/internal/cleaning"
	"nse-market-lab/internal/dataset"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/pipeline"
	"nse-market-lab/internal/sequences"
	"nse-market-lab/internal/storage"
	chstore "nse-market-lab/internal/storage/clickhouse"
	"nse-market-lab/internal/storage/memory"
	pgstore "nse-market-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	inputCSV := flag.String("input-csv", "", "Combined bar CSV to preprocess (alternative to --postgres-dsn)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string with stored bars")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN for feature timeseries persistence")
	scalerKind := flag.String("scaler", cleaning.ScalerStandard, "Scaler kind: standard or minmax")
	nBins := flag.Int("n-bins", 0, "Tokenizer quantile bins (default: 1000)")
	seqLen := flag.Int("seq-len", 0, "Tokenizer chunk length (default: input length)")
	inputLen := flag.Int("input-len", 0, "Sequence input window rows (default: 512)")
	targetLen := flag.Int("target-len", 0, "Sequence target window rows (default: 10)")
	stride := flag.Int("stride", 0, "Sequence window stride (default: 256)")
	artifactDir := flag.String("artifact-dir", "artifacts", "Directory for scalers/tokenizer/sequence artifacts")
	featureCSV := flag.String("feature-csv", "", "Write the unscaled feature timeseries to this CSV")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stdout, "[preprocess] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling...", sig)
		cancel()
	}()

	if err := run(ctx, logger, *inputCSV, *postgresDSN, *clickhouseDSN, *scalerKind,
		*nBins, *seqLen, *inputLen, *targetLen, *stride, *artifactDir, *featureCSV, *verbose); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, logger *log.Logger, inputCSV, postgresDSN, clickhouseDSN, scalerKind string,
	nBins, seqLen, inputLen, targetLen, stride int, artifactDir, featureCSV string, verbose bool) error {

	barStore, cleanup, err := createBarStore(ctx, inputCSV, postgresDSN)
	if err != nil {
		return err
	}
	defer cleanup()

	var featureStore storage.FeatureBarStore = memory.NewFeatureBarStore()
	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()
		featureStore = chstore.NewFeatureBarStore(conn)
	}

	if artifactDir != "" {
		if err := os.MkdirAll(artifactDir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}

	builder := sequences.DefaultBuilderOptions()
	if inputLen > 0 {
		builder.InputLen = inputLen
	}
	if targetLen > 0 {
		builder.TargetLen = targetLen
	}
	if stride > 0 {
		builder.Stride = stride
	}

	p, err := pipeline.New(pipeline.Options{
		BarStore:        barStore,
		FeatureBarStore: featureStore,
		ScalerKind:      scalerKind,
		NBins:           nBins,
		SeqLen:          seqLen,
		Builder:         builder,
		ArtifactDir:     artifactDir,
		Logger:          logger,
		Verbose:         verbose,
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	logger.Printf("Preprocessing complete:")
	logger.Printf("  Symbols:        %d", result.Symbols)
	logger.Printf("  Rows loaded:    %d", result.RowsLoaded)
	logger.Printf("  Rows cleaned:   %d", result.RowsCleaned)
	logger.Printf("  Feature rows:   %d", result.FeatureRows)
	logger.Printf("  Token windows:  %d", result.TokenWindows)
	logger.Printf("  Sequence pairs: %d", result.SequencePairs)

	if featureCSV != "" {
		if err := writeFeatureCSV(ctx, barStore, featureStore, featureCSV); err != nil {
			return err
		}
		logger.Printf("Wrote feature timeseries to %s", featureCSV)
	}
	if artifactDir != "" {
		logger.Printf("Artifacts written to %s", filepath.Clean(artifactDir))
	}
	return nil
}

// createBarStore loads bars from a CSV into a memory store, or wires
// the postgres store directly.
func createBarStore(ctx context.Context, inputCSV, postgresDSN string) (storage.BarStore, func(), error) {
	switch {
	case inputCSV != "":
		bars, err := dataset.ReadBarsCSV(inputCSV)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", inputCSV, err)
		}
		store := memory.NewBarStore()
		if err := store.InsertBulk(ctx, bars); err != nil {
			return nil, nil, fmt.Errorf("load bars: %w", err)
		}
		return store, func() {}, nil
	case postgresDSN != "":
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return pgstore.NewBarStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("either --input-csv or --postgres-dsn is required")
	}
}

// writeFeatureCSV dumps the computed feature rows for every symbol.
func writeFeatureCSV(ctx context.Context, barStore storage.BarStore, featureStore storage.FeatureBarStore, path string) error {
	symbols, err := barStore.ListSymbols(ctx)
	if err != nil {
		return err
	}
	var all []*domain.FeatureBar
	for _, symbol := range symbols {
		rows, err := featureStore.GetBySymbol(ctx, symbol)
		if err != nil {
			return fmt.Errorf("read features for %s: %w", symbol, err)
		}
		all = append(all, rows...)
	}
	return dataset.WriteFeatureBarsCSV(path, all)
}
