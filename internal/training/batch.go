package training

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/born-ml/born/tensor"

	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/model"
)

// batch holds one materialized mini-batch: a [size, L*F] input tensor
// and the flattened [size * P*F] target values.
type batch struct {
	inputs  *tensor.Tensor[float32, model.Backend]
	targets []float32
	size    int
}

// makeBatches shuffles pairs with the given source and materializes
// mini-batch tensors. A trailing batch smaller than batchSize is kept.
// With workers > 1 batches are materialized concurrently.
func makeBatches(pairs []domain.SequencePair, batchSize int, rng *rand.Rand, workers int, backend model.Backend) ([]*batch, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	shuffled := make([]domain.SequencePair, len(pairs))
	copy(shuffled, pairs)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	numBatches := (len(shuffled) + batchSize - 1) / batchSize
	batches := make([]*batch, numBatches)

	if workers < 1 {
		workers = 1
	}
	if workers > numBatches {
		workers = numBatches
	}

	var wg sync.WaitGroup
	errs := make([]error, numBatches)
	indexes := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				start := i * batchSize
				end := start + batchSize
				if end > len(shuffled) {
					end = len(shuffled)
				}
				b, err := materializeBatch(shuffled[start:end], backend)
				batches[i] = b
				errs[i] = err
			}
		}()
	}
	for i := 0; i < numBatches; i++ {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return batches, nil
}

func materializeBatch(pairs []domain.SequencePair, backend model.Backend) (*batch, error) {
	inputLen := len(pairs[0].Input) * len(pairs[0].Input[0])
	targetLen := len(pairs[0].Target) * len(pairs[0].Target[0])

	inputs := make([]float32, 0, len(pairs)*inputLen)
	targets := make([]float32, 0, len(pairs)*targetLen)
	for _, p := range pairs {
		inputs = append(inputs, model.FlattenWindow(p.Input)...)
		targets = append(targets, model.FlattenWindow(p.Target)...)
	}

	inputTensor, err := tensor.FromSlice(inputs, tensor.Shape{len(pairs), inputLen}, backend)
	if err != nil {
		return nil, fmt.Errorf("build batch tensor: %w", err)
	}
	return &batch{inputs: inputTensor, targets: targets, size: len(pairs)}, nil
}
