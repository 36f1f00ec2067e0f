package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services"
)

// DefaultFallbackUsage is the charge recorded for an item that failed after
// consuming an unknown number of tokens.
var DefaultFallbackUsage = pipeline.Usage{PromptTokens: 500, CompletionTokens: 500}

// Op processes one item.
type Op[I, T any] func(ctx context.Context, index int, item I) (T, pipeline.Usage, error)

// Options configures RunAll.
type Options[T any] struct {
	// Fallback builds the value for a failed item. Nil yields the zero value.
	Fallback func(index int, err error) T
	// FallbackUsage is charged per failed item. Zero means DefaultFallbackUsage.
	FallbackUsage pipeline.Usage
	// MaxConcurrency caps in-flight items. Zero or less runs every item at once.
	MaxConcurrency int
	// Stage labels item errors and log lines.
	Stage  string
	Logger *slog.Logger
}

// Outcome is the result for one item.
type Outcome[T any] struct {
	Index      int
	Value      T
	Usage      pipeline.Usage
	IsFallback bool
	Err        error
}

// Result holds index-aligned outcomes.
type Result[T any] struct {
	Outcomes []Outcome[T]
	// Usage sums real usage and fallback estimates.
	Usage pipeline.Usage
}

// Values returns outcome values in input order.
func (r Result[T]) Values() []T {
	out := make([]T, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Value
	}
	return out
}

// Fallbacks counts items that received a fallback value.
func (r Result[T]) Fallbacks() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.IsFallback {
			n++
		}
	}
	return n
}

// Errors returns the item errors in input order, skipping successes.
func (r Result[T]) Errors() []error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// RunAll runs op for every item concurrently and waits for all of them.
func RunAll[I, T any](ctx context.Context, items []I, op Op[I, T], opts Options[T]) Result[T] {
	outcomes := make([]Outcome[T], len(items))
	if len(items) == 0 {
		return Result[T]{Outcomes: outcomes}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var sem *semaphore.Weighted
	if opts.MaxConcurrency > 0 && opts.MaxConcurrency < len(items) {
		sem = semaphore.NewWeighted(int64(opts.MaxConcurrency))
	}

	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			itemCtx := services.WithItemIndex(ctx, i)
			var value T
			var usage pipeline.Usage
			var err error
			if sem != nil {
				if err = sem.Acquire(itemCtx, 1); err == nil {
					value, usage, err = runItem(itemCtx, i, item, op)
					sem.Release(1)
				}
			} else {
				value, usage, err = runItem(itemCtx, i, item, op)
			}
			outcomes[i] = settle(i, value, usage, err, opts, logging.WithContext(itemCtx, logger))
			return nil
		})
	}
	_ = g.Wait()

	var total pipeline.Usage
	for _, o := range outcomes {
		total = total.Add(o.Usage)
	}
	return Result[T]{Outcomes: outcomes, Usage: total}
}

func runItem[I, T any](ctx context.Context, index int, item I, op Op[I, T]) (value T, usage pipeline.Usage, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, usage = zero, pipeline.Usage{}
			err = fmt.Errorf("item %d panicked: %v\n%s", index, r, debug.Stack())
		}
	}()
	return op(ctx, index, item)
}

func settle[T any](index int, value T, usage pipeline.Usage, err error, opts Options[T], logger *slog.Logger) Outcome[T] {
	if err == nil {
		return Outcome[T]{Index: index, Value: value, Usage: usage}
	}

	itemErr := services.Wrap(services.ErrItemFailure, opts.Stage, fmt.Sprintf("item %d", index), "item failed", err)
	var fallback T
	if opts.Fallback != nil {
		fallback = opts.Fallback(index, err)
	}
	charge := opts.FallbackUsage
	if charge == (pipeline.Usage{}) {
		charge = DefaultFallbackUsage
	}
	charge = charge.Add(usage)

	attrs := append(logging.ErrorAttrs(err),
		logging.String(logging.FieldImpact, "item result replaced by fallback value"),
		logging.String(logging.FieldErrorHint, "inspect the item error; siblings were not affected"),
	)
	logging.WarnWithContext(logger, "fan-out item failed; using fallback", "fanout_item_fallback", attrs...)
	return Outcome[T]{Index: index, Value: fallback, Usage: charge, IsFallback: true, Err: itemErr}
}
