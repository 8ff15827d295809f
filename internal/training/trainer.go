// Package training fine-tunes the forecaster over sliding-window
// sequence datasets.
package training

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/born-ml/born/optim"
	"github.com/born-ml/born/tensor"

	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/model"
	"nse-market-lab/internal/observability"
)

// Default training configuration.
const (
	DefaultEpochs       = 10
	DefaultBatchSize    = 16
	DefaultLearningRate = 1e-5
	DefaultClipNorm     = 1.0
	DefaultValFraction  = 0.2
	DefaultSeed         = 42
)

// Options configures a fine-tuning run.
type Options struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	ClipNorm     float64 // global gradient norm limit, 0 disables
	ValFraction  float64 // chronological tail held out for validation
	Seed         int64

	// CheckpointDir receives per-epoch, best, and final checkpoints
	// plus training_history.json. Empty disables checkpointing.
	CheckpointDir string

	// Workers parallelizes mini-batch materialization. Values below 2
	// keep it synchronous.
	Workers int

	Logger  *log.Logger
	Verbose bool
}

func (o *Options) applyDefaults() {
	if o.Epochs <= 0 {
		o.Epochs = DefaultEpochs
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.LearningRate <= 0 {
		o.LearningRate = DefaultLearningRate
	}
	if o.ValFraction <= 0 || o.ValFraction >= 1 {
		o.ValFraction = DefaultValFraction
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
}

// SplitChronological splits pairs into train and validation sets, the
// validation set being the chronological tail. Pairs are assumed to be
// in build order (chronological within each symbol).
func SplitChronological(pairs []domain.SequencePair, valFraction float64) (train, val []domain.SequencePair) {
	n := int(float64(len(pairs)) * (1 - valFraction))
	if n < 1 && len(pairs) > 0 {
		n = 1
	}
	if n > len(pairs) {
		n = len(pairs)
	}
	return pairs[:n], pairs[n:]
}

// CosineLR returns the cosine-decayed learning rate for an epoch in
// [0, totalEpochs): base at epoch 0, near zero at the last epoch.
func CosineLR(base float64, epoch, totalEpochs int) float64 {
	if totalEpochs <= 1 {
		return base
	}
	progress := float64(epoch) / float64(totalEpochs-1)
	return base * 0.5 * (1 + math.Cos(math.Pi*progress))
}

// Train fine-tunes m over the dataset and returns the epoch history.
// Checkpoints and the history JSON are written to opts.CheckpointDir
// when set.
func Train(ctx context.Context, m *model.Forecaster[model.Backend], backend model.Backend, ds *domain.SequenceDataset, opts Options) (*History, error) {
	opts.applyDefaults()
	if len(ds.Pairs) == 0 {
		return nil, fmt.Errorf("train: empty dataset")
	}

	trainPairs, valPairs := SplitChronological(ds.Pairs, opts.ValFraction)
	opts.Logger.Printf("training on %d pairs, validating on %d", len(trainPairs), len(valPairs))

	if opts.CheckpointDir != "" {
		if err := os.MkdirAll(opts.CheckpointDir, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	optimizer := optim.NewAdam(
		m.Parameters(),
		optim.AdamConfig{
			LR:    float32(opts.LearningRate),
			Betas: [2]float32{0.9, 0.999},
			Eps:   1e-8,
		},
		backend,
	)

	rng := rand.New(rand.NewSource(opts.Seed))
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	history := &History{
		LearningRate: opts.LearningRate,
		BatchSize:    opts.BatchSize,
		BestValLoss:  math.Inf(1),
	}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			return history, ctx.Err()
		default:
		}

		lr := CosineLR(opts.LearningRate, epoch, opts.Epochs)
		optimizer.SetLR(float32(lr))

		batches, err := makeBatches(trainPairs, opts.BatchSize, rng, opts.Workers, backend)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch+1, err)
		}

		var totalLoss float64
		for _, b := range batches {
			optimizer.ZeroGrad()

			output := m.Forward(b.inputs)
			loss, grad, err := mseWithGradient(output, b.targets, backend)
			if err != nil {
				return history, fmt.Errorf("epoch %d: %w", epoch+1, err)
			}
			totalLoss += loss

			grads := backend.Tape().Backward(grad, backend)
			if opts.ClipNorm > 0 {
				clipGradients(m, grads, opts.ClipNorm)
			}
			optimizer.Step(grads)
			backend.Tape().Clear()
		}
		trainLoss := totalLoss / float64(len(batches))

		valLoss, err := Validate(m, backend, valPairs, opts.BatchSize)
		if err != nil {
			return history, fmt.Errorf("epoch %d validate: %w", epoch+1, err)
		}

		stats := EpochStats{Epoch: epoch + 1, TrainLoss: trainLoss, ValLoss: valLoss, LR: lr}
		history.Epochs = append(history.Epochs, stats)
		observability.RecordEpoch(trainLoss, valLoss)
		opts.Logger.Printf("epoch %d/%d: train_loss=%.6f val_loss=%.6f lr=%.2e",
			epoch+1, opts.Epochs, trainLoss, valLoss, lr)

		if valLoss < history.BestValLoss {
			history.BestValLoss = valLoss
			history.BestEpoch = epoch + 1
			if opts.CheckpointDir != "" {
				if err := model.Save(m, filepath.Join(opts.CheckpointDir, "best_model.born")); err != nil {
					return history, fmt.Errorf("save best checkpoint: %w", err)
				}
			}
		}
		if opts.CheckpointDir != "" {
			path := filepath.Join(opts.CheckpointDir, fmt.Sprintf("checkpoint_epoch_%03d.born", epoch+1))
			if err := model.Save(m, path); err != nil {
				return history, fmt.Errorf("save epoch checkpoint: %w", err)
			}
		}
	}

	if opts.CheckpointDir != "" {
		if err := model.Save(m, filepath.Join(opts.CheckpointDir, "final_model.born")); err != nil {
			return history, fmt.Errorf("save final checkpoint: %w", err)
		}
		if err := history.Save(filepath.Join(opts.CheckpointDir, "training_history.json")); err != nil {
			return history, fmt.Errorf("save history: %w", err)
		}
	}
	return history, nil
}

// Validate computes the mean MSE over pairs without recording
// gradients. Returns zero for an empty validation set.
func Validate(m *model.Forecaster[model.Backend], backend model.Backend, pairs []domain.SequencePair, batchSize int) (float64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	wasRecording := backend.Tape().IsRecording()
	backend.Tape().StopRecording()
	defer func() {
		if wasRecording {
			backend.Tape().StartRecording()
		}
	}()

	// Deterministic order for validation
	rng := rand.New(rand.NewSource(0))
	batches, err := makeBatches(pairs, batchSize, rng, 1, backend)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, b := range batches {
		output := m.Forward(b.inputs)
		total += mse(output.Data(), b.targets)
	}
	return total / float64(len(batches)), nil
}

// mseWithGradient computes the mean squared error between the forward
// output and targets, along with the output gradient 2(p-t)/N to feed
// the tape. born's MSELoss computes its mean off-tape, so the gradient
// is injected at the network output instead.
func mseWithGradient(output *tensor.Tensor[float32, model.Backend], targets []float32, backend model.Backend) (float64, *tensor.RawTensor, error) {
	pred := output.Data()
	if len(pred) != len(targets) {
		return 0, nil, fmt.Errorf("output has %d values, targets %d", len(pred), len(targets))
	}

	grad, err := tensor.NewRaw(output.Shape(), output.DType(), backend.Device())
	if err != nil {
		return 0, nil, fmt.Errorf("allocate gradient: %w", err)
	}
	gradData := grad.AsFloat32()

	n := float32(len(pred))
	var loss float64
	for i, p := range pred {
		d := p - targets[i]
		loss += float64(d) * float64(d)
		gradData[i] = 2 * d / n
	}
	return loss / float64(len(pred)), grad, nil
}

func mse(pred, targets []float32) float64 {
	var total float64
	for i, p := range pred {
		d := float64(p) - float64(targets[i])
		total += d * d
	}
	return total / float64(len(pred))
}

// clipGradients rescales parameter gradients so their global L2 norm
// does not exceed maxNorm.
func clipGradients(m *model.Forecaster[model.Backend], grads map[*tensor.RawTensor]*tensor.RawTensor, maxNorm float64) {
	var sq float64
	var gradSlices [][]float32
	for _, p := range m.Parameters() {
		g, ok := grads[p.Tensor().Raw()]
		if !ok {
			continue
		}
		data := g.AsFloat32()
		gradSlices = append(gradSlices, data)
		for _, v := range data {
			sq += float64(v) * float64(v)
		}
	}

	norm := math.Sqrt(sq)
	if norm <= maxNorm || norm == 0 {
		return
	}
	scale := float32(maxNorm / norm)
	for _, data := range gradSlices {
		for i := range data {
			data[i] *= scale
		}
	}
}
