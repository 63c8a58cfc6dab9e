// Package workpool runs batched work on a fixed number of goroutines.
package workpool

import (
	"context"
	"sync"
)

// Config configures batch processing.
type Config struct {
	// Size is the maximum batch size.
	Size int

	// Workers is the number of parallel workers.
	Workers int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Size:    64,
		Workers: 4,
	}
}

// Processor processes items in batches with optional parallelism.
// Results come back in input order regardless of which worker ran a batch.
type Processor[T any, R any] struct {
	cfg     Config
	process func(ctx context.Context, batch []T) ([]R, error)
}

// NewProcessor creates a new batch processor.
func NewProcessor[T any, R any](cfg Config, process func(ctx context.Context, batch []T) ([]R, error)) *Processor[T, R] {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Processor[T, R]{
		cfg:     cfg,
		process: process,
	}
}

// Process processes all items and returns results.
func (p *Processor[T, R]) Process(ctx context.Context, items []T) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	batches := splitIntoBatches(items, p.cfg.Size)

	if p.cfg.Workers <= 1 || len(batches) == 1 {
		return p.processSequential(ctx, batches)
	}

	return p.processParallel(ctx, batches)
}

func (p *Processor[T, R]) processSequential(ctx context.Context, batches [][]T) ([]R, error) {
	var results []R

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		batchResults, err := p.process(ctx, batch)
		if err != nil {
			return results, err
		}
		results = append(results, batchResults...)
	}

	return results, nil
}

func (p *Processor[T, R]) processParallel(ctx context.Context, batches [][]T) ([]R, error) {
	results := make([][]R, len(batches))
	errs := make([]error, len(batches))

	sem := make(chan struct{}, p.cfg.Workers)
	var wg sync.WaitGroup

	for i, batch := range batches {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		default:
		}

		wg.Add(1)
		sem <- struct{}{} // Acquire

		go func(idx int, b []T) {
			defer wg.Done()
			defer func() { <-sem }() // Release

			r, err := p.process(ctx, b)
			results[idx] = r
			errs[idx] = err
		}(i, batch)
	}

	// Barrier: nothing is returned until every batch has finished.
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var flat []R
	for _, r := range results {
		flat = append(flat, r...)
	}

	return flat, nil
}

// splitIntoBatches splits items into batches of the given size.
func splitIntoBatches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}

	var batches [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}

	return batches
}
