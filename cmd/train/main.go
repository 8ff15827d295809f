package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/model"
	"nse-market-lab/internal/sequences"
	"nse-market-lab/internal/training"
)

func main() {
	// Parse flags
	sequencesPath := flag.String("sequences", "artifacts/sequences.gob", "Sequence pair cache from preprocessing")
	checkpointDir := flag.String("checkpoint-dir", "checkpoints", "Directory for model checkpoints and history")
	initFrom := flag.String("init-from", "", "Checkpoint to fine-tune from (default: fresh weights)")
	hiddenSize := flag.Int("hidden-size", model.DefaultHiddenSize, "Hidden layer width")
	epochs := flag.Int("epochs", training.DefaultEpochs, "Training epochs")
	batchSize := flag.Int("batch-size", training.DefaultBatchSize, "Mini-batch size")
	lr := flag.Float64("lr", training.DefaultLearningRate, "Base learning rate (cosine-decayed)")
	clipNorm := flag.Float64("clip-norm", training.DefaultClipNorm, "Global gradient norm limit (0 disables)")
	valFraction := flag.Float64("val-fraction", training.DefaultValFraction, "Chronological tail held out for validation")
	seed := flag.Int64("seed", training.DefaultSeed, "Shuffle seed")
	workers := flag.Int("workers", 1, "Parallel batch materialization workers")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stdout, "[train] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, stopping after current batch...", sig)
		cancel()
	}()

	err := run(ctx, logger, *sequencesPath, *checkpointDir, *initFrom, *hiddenSize,
		*epochs, *batchSize, *lr, *clipNorm, *valFraction, *seed, *workers, *verbose)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, logger *log.Logger, sequencesPath, checkpointDir, initFrom string, hiddenSize,
	epochs, batchSize int, lr, clipNorm, valFraction float64, seed int64, workers int, verbose bool) error {

	ds, err := sequences.Load(sequencesPath)
	if err != nil {
		return fmt.Errorf("load sequences: %w", err)
	}
	logger.Printf("Loaded %s", sequences.Info(ds))

	cfg := model.Config{
		InputLen:    ds.InputLen,
		TargetLen:   ds.TargetLen,
		NumFeatures: len(domain.FeatureColumns),
		HiddenSize:  hiddenSize,
	}

	backend := model.NewBackend()
	var m *model.Forecaster[model.Backend]
	if initFrom != "" {
		m, err = model.Load(initFrom, cfg, backend)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		logger.Printf("Fine-tuning from %s", initFrom)
	} else {
		m, err = model.NewForecaster(cfg, backend)
		if err != nil {
			return fmt.Errorf("create model: %w", err)
		}
	}

	history, err := training.Train(ctx, m, backend, ds, training.Options{
		Epochs:        epochs,
		BatchSize:     batchSize,
		LearningRate:  lr,
		ClipNorm:      clipNorm,
		ValFraction:   valFraction,
		Seed:          seed,
		CheckpointDir: checkpointDir,
		Workers:       workers,
		Logger:        logger,
		Verbose:       verbose,
	})
	if err != nil {
		return err
	}

	logger.Printf("Training complete: best epoch %d, best validation loss %.6f",
		history.BestEpoch, history.BestValLoss)
	logger.Printf("Checkpoints and history written to %s", checkpointDir)
	return nil
}
