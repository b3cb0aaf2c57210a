package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/remtav/stac-browser/stac"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// WithBatchSize sets the batch size for chunked processing
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator evaluates a filter over large item lists in chunks
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply returns the items matching filter, in their original order
func (e *ConcurrentEvaluator) Apply(ctx context.Context, filter Filter, items []*stac.Item) ([]*stac.Item, error) {
	if len(items) == 0 {
		return []*stac.Item{}, nil
	}

	// For small item lists, don't bother with concurrency
	if len(items) < e.batchSize {
		return evaluateSequential(filter, items), nil
	}

	return e.evaluateConcurrent(ctx, filter, items)
}

func evaluateSequential(filter Filter, items []*stac.Item) []*stac.Item {
	matches := make([]*stac.Item, 0, len(items))
	for _, item := range items {
		if filter.Evaluate(item) {
			matches = append(matches, item)
		}
	}
	return matches
}

func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter Filter, items []*stac.Item) ([]*stac.Item, error) {
	chunkSize := max(len(items)/e.workerCount, e.batchSize)
	chunks := (len(items) + chunkSize - 1) / chunkSize

	// Each chunk writes only its own slot, so results need no locking.
	results := make([][]*stac.Item, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for index := range chunks {
		start := index * chunkSize
		end := min(start+chunkSize, len(items))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[index] = evaluateSequential(filter, items[start:end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, chunk := range results {
		total += len(chunk)
	}
	matches := make([]*stac.Item, 0, total)
	for _, chunk := range results {
		matches = append(matches, chunk...)
	}

	return matches, nil
}

// Apply filters items with a sequential evaluation
func Apply(filter Filter, items []*stac.Item) []*stac.Item {
	return evaluateSequential(filter, items)
}
