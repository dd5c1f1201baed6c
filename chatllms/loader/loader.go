// Package loader iterates a dataset in minibatches and collates them on a
// bounded worker pool.
package loader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"github.com/ZanzyTHEbar/chatllms-go/chatllms/collator"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// ErrInvalidOptions is returned for non-positive batch sizes.
var ErrInvalidOptions = errors.New("invalid loader options")

// Options controls batching.
type Options struct {
	BatchSize int   `mapstructure:"batchSize"`
	Shuffle   bool  `mapstructure:"shuffle"`
	Seed      int64 `mapstructure:"seed"`
	// DropLast discards a final batch smaller than BatchSize.
	DropLast bool `mapstructure:"dropLast"`
	// Workers bounds concurrent collation. 0 picks a default from the CPU
	// count.
	Workers int `mapstructure:"workers"`
}

// Loader yields collated batches in a fixed order.
type Loader struct {
	examples []dataset.Example
	collator *collator.Collator
	opts     Options
	logger   zerolog.Logger
}

// New returns a loader over examples.
func New(examples []dataset.Example, c *collator.Collator, opts Options, logger zerolog.Logger) (*Loader, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collator", ErrInvalidOptions)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidOptions, opts.BatchSize)
	}
	if opts.Workers <= 0 {
		opts.Workers = min(max(runtime.NumCPU(), 1), 16)
	}
	return &Loader{examples: examples, collator: c, opts: opts, logger: logger}, nil
}

// Len is the number of batches one pass yields.
func (l *Loader) Len() int {
	n := len(l.examples) / l.opts.BatchSize
	if !l.opts.DropLast && len(l.examples)%l.opts.BatchSize != 0 {
		n++
	}
	return n
}

// order returns example indices in iteration order.
func (l *Loader) order() []int {
	if l.opts.Shuffle {
		return rand.New(rand.NewSource(l.opts.Seed)).Perm(len(l.examples))
	}
	idx := make([]int, len(l.examples))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// chunks splits the iteration order into per-batch index slices.
func (l *Loader) chunks() [][]int {
	order := l.order()
	out := make([][]int, 0, l.Len())
	for start := 0; start < len(order); start += l.opts.BatchSize {
		end := min(start+l.opts.BatchSize, len(order))
		if end-start < l.opts.BatchSize && l.opts.DropLast {
			break
		}
		out = append(out, order[start:end])
	}
	return out
}

// Each collates every batch and calls fn with it in batch order. Batches are
// collated a window at a time on the pool; fn runs on the calling
// goroutine. The first error from collation or fn stops the pass.
func (l *Loader) Each(ctx context.Context, fn func(i int, b *collator.Batch) error) error {
	chunks := l.chunks()
	window := l.opts.Workers * 2

	for start := 0; start < len(chunks); start += window {
		end := min(start+window, len(chunks))
		results := make([]*collator.Batch, end-start)

		p := pool.New().WithMaxGoroutines(l.opts.Workers).WithContext(ctx).WithCancelOnError().WithFirstError()
		for k := start; k < end; k++ {
			p.Go(func(ctx context.Context) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				exs := make([]dataset.Example, len(chunks[k]))
				for j, idx := range chunks[k] {
					exs[j] = l.examples[idx]
				}
				b, err := l.collator.Collate(exs)
				if err != nil {
					return fmt.Errorf("batch %d: %w", k, err)
				}
				results[k-start] = b
				return nil
			})
		}
		if err := p.Wait(); err != nil {
			return err
		}

		for k, b := range results {
			if err := fn(start+k, b); err != nil {
				return err
			}
		}
		l.logger.Debug().Int("batches_done", end).Int("batches_total", len(chunks)).Msg("Collated window")
	}
	return nil
}

// Batches collates the whole pass into memory.
func (l *Loader) Batches(ctx context.Context) ([]*collator.Batch, error) {
	out := make([]*collator.Batch, 0, l.Len())
	err := l.Each(ctx, func(_ int, b *collator.Batch) error {
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
