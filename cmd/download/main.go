package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/marketdata"
	"nse-market-lab/internal/observability"
	"nse-market-lab/internal/storage"
	"nse-market-lab/internal/storage/memory"
	pgstore "nse-market-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "batch", "Download mode: batch or live")
	endpoint := flag.String("endpoint", "https://query1.finance.yahoo.com/v8/finance/chart", "Chart API base URL")
	wsEndpoint := flag.String("ws-endpoint", "", "Quote stream WebSocket endpoint (live mode)")
	symbols := flag.String("symbols", "", "Comma-separated NSE symbols (default: built-in universe)")
	startStr := flag.String("start", "2020-01-01", "Start date (YYYY-MM-DD)")
	endStr := flag.String("end", "", "End date (YYYY-MM-DD, default: today)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	outputDir := flag.String("output-dir", "", "Directory for per-symbol and combined CSV files")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[download] ", log.LstdFlags)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	symbolList := resolveSymbols(*symbols)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var err error
	switch *mode {
	case "batch":
		err = runBatch(ctx, logger, *endpoint, symbolList, *startStr, *endStr, *postgresDSN, *useMemory, *outputDir, *verbose)
	case "live":
		err = runLive(ctx, logger, *wsEndpoint, symbolList, *postgresDSN, *useMemory)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
	logger.Println("Done")
}

// resolveSymbols parses the symbol flag, falling back to the default
// NSE universe.
func resolveSymbols(symbols string) []string {
	if symbols == "" {
		return domain.DefaultSymbols
	}
	var list []string
	for _, s := range strings.Split(symbols, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			list = append(list, s)
		}
	}
	return list
}

// runBatch downloads the daily bar history for every symbol.
func runBatch(ctx context.Context, logger *log.Logger, endpoint string, symbols []string, startStr, endStr, postgresDSN string, useMemory bool, outputDir string, verbose bool) error {
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}
	end := time.Now().UTC()
	if endStr != "" {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return fmt.Errorf("parse end date: %w", err)
		}
	}

	barStore, progressStore, cleanup, err := createStores(ctx, postgresDSN, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	downloader, err := marketdata.NewDownloader(marketdata.DownloaderOptions{
		Client:        marketdata.NewClient(endpoint),
		Symbols:       symbols,
		Start:         start,
		End:           end,
		BarStore:      barStore,
		ProgressStore: progressStore,
		OutputDir:     outputDir,
		Logger:        logger,
		Verbose:       verbose,
	})
	if err != nil {
		return err
	}

	logger.Printf("Downloading %d symbols from %s to %s", len(symbols), start.Format("2006-01-02"), end.Format("2006-01-02"))
	result, err := downloader.Run(ctx)
	if err != nil {
		return err
	}

	logger.Printf("Downloaded %d rows across %d symbols", result.TotalRows, len(result.SymbolRows))
	for symbol, rows := range result.SymbolRows {
		logger.Printf("  %-14s %6d rows", symbol, rows)
	}
	if len(result.Failed) > 0 {
		logger.Printf("Failed symbols (skipped): %v", result.Failed)
	}
	return nil
}

// runLive subscribes to the quote stream and appends ticks to the bar
// store until cancelled.
func runLive(ctx context.Context, logger *log.Logger, wsEndpoint string, symbols []string, postgresDSN string, useMemory bool) error {
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required for live mode")
	}

	barStore, _, cleanup, err := createStores(ctx, postgresDSN, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	stream, err := marketdata.NewQuoteStream(ctx, wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("connect quote stream: %w", err)
	}
	defer stream.Close()

	quotes, err := stream.Subscribe(ctx, symbols)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	logger.Printf("Streaming quotes for %d symbols", len(symbols))
	stored := 0
	for {
		select {
		case <-ctx.Done():
			logger.Printf("Stored %d ticks", stored)
			return ctx.Err()
		case q, ok := <-quotes:
			if !ok {
				logger.Printf("Stored %d ticks", stored)
				return nil
			}
			observability.RecordQuoteReceived()
			bar := &domain.Bar{
				Symbol:      q.Symbol,
				TimestampMs: q.TimestampMs,
				Open:        q.Price,
				High:        q.Price,
				Low:         q.Price,
				Close:       q.Price,
				Volume:      q.Volume,
			}
			err := barStore.Insert(ctx, bar)
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			if err != nil {
				return fmt.Errorf("store tick: %w", err)
			}
			observability.RecordBarsStored(q.Symbol, 1)
			stored++
		}
	}
}

// createStores returns bar and progress stores, in-memory or postgres.
func createStores(ctx context.Context, postgresDSN string, useMemory bool) (storage.BarStore, storage.DownloadProgressStore, func(), error) {
	if useMemory || postgresDSN == "" {
		if !useMemory && postgresDSN == "" {
			return nil, nil, nil, fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
		}
		return memory.NewBarStore(), memory.NewDownloadProgressStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return pgstore.NewBarStore(pool), pgstore.NewDownloadProgressStore(pool), pool.Close, nil
}
