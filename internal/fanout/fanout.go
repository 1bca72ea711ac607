// Package fanout runs one provider call per item concurrently and zips the
// results back in input order.
package fanout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Policy decides what a batch does when one item fails.
type Policy int

const (
	// Default defers to the calling operation's own policy, and to Raise
	// when used directly.
	Default Policy = iota
	// Raise fails the whole batch with the first error. Calls that already
	// succeeded are not rolled back.
	Raise
	// Skip logs the failure and leaves the item out of the result.
	Skip
)

func (p Policy) String() string {
	switch p {
	case Skip:
		return "skip"
	case Raise:
		return "raise"
	default:
		return "default"
	}
}

// DefaultConcurrency bounds in-flight calls when Options.Concurrency is 0.
const DefaultConcurrency = 8

// Options configures a batch. Concurrency 1 runs items one at a time and,
// under Raise, stops at the first failure.
type Options struct {
	OnError     Policy
	Concurrency int
	Logger      *slog.Logger
	Label       string
}

// WithDefault resolves a Default policy to p.
func (o Options) WithDefault(p Policy) Options {
	if o.OnError == Default {
		o.OnError = p
	}
	return o
}

func (o Options) skip() bool { return o.OnError == Skip }

func (o Options) limit() int {
	if o.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.Concurrency
}

func (o Options) logger() *slog.Logger {
	l := o.Logger
	if l == nil {
		l = slog.Default()
	}
	label := o.Label
	if label == "" {
		label = "batch"
	}
	return l.With("batch", label, "batch_id", uuid.NewString())
}

// Map calls fn for every item. Under Skip the result holds only the
// successful results, still in input order.
func Map[T, R any](ctx context.Context, items []T, opts Options, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	logger := opts.logger()
	logger.Debug("batch start", "items", len(items), "policy", opts.OnError.String(), "concurrency", opts.limit())

	results := make([]R, len(items))
	ok := make([]bool, len(items))

	if opts.limit() == 1 {
		for i, item := range items {
			r, err := fn(ctx, item)
			if err != nil {
				if !opts.skip() {
					return nil, fmt.Errorf("item %d: %w", i, err)
				}
				logger.Warn("batch item failed", "index", i, "error", err)
				continue
			}
			results[i], ok[i] = r, true
		}
		return compact(results, ok), nil
	}

	// Plain Group, not WithContext: a failure must not cancel calls that are
	// already in flight.
	var g errgroup.Group
	g.SetLimit(opts.limit())
	for i, item := range items {
		g.Go(func() error {
			r, err := fn(ctx, item)
			if err != nil {
				if !opts.skip() {
					return fmt.Errorf("item %d: %w", i, err)
				}
				logger.Warn("batch item failed", "index", i, "error", err)
				return nil
			}
			results[i], ok[i] = r, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compact(results, ok), nil
}

func compact[R any](results []R, ok []bool) []R {
	out := make([]R, 0, len(results))
	for i, r := range results {
		if ok[i] {
			out = append(out, r)
		}
	}
	return out
}

// Keyed calls fn once per key. Under Skip a failing key maps to the zero R
// (for slice results, an empty list).
func Keyed[K comparable, R any](ctx context.Context, keys []K, opts Options, fn func(context.Context, K) (R, error)) (map[K]R, error) {
	type pair struct {
		key K
		val R
		err error
	}
	// Skip is handled here so the zero value can be recorded per key.
	inner := opts
	inner.OnError = Raise
	pairs, err := Map(ctx, keys, inner, func(ctx context.Context, k K) (pair, error) {
		v, err := fn(ctx, k)
		if err != nil && opts.skip() {
			return pair{key: k, err: err}, nil
		}
		if err != nil {
			return pair{}, fmt.Errorf("%v: %w", k, err)
		}
		return pair{key: k, val: v}, nil
	})
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := make(map[K]R, len(pairs))
	for _, p := range pairs {
		if p.err != nil {
			logger.Warn("batch key failed", "key", fmt.Sprint(p.key), "error", p.err)
		}
		out[p.key] = p.val
	}
	return out, nil
}
