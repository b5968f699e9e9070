// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs planned search inputs against a web-search provider
// and returns a unified, deduplicated, ranked set of quotes.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/evidence-engine/internal/retry"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultTopK        = 10
	defaultMaxAttempts = 7
	defaultRetryDelay  = 2 * time.Second
)

// ErrAuth marks provider failures caused by credentials. The executor does
// not retry them.
var ErrAuth = errors.New("search provider rejected credentials")

// errEmptyBatch signals a batch that completed with zero quotes.
var errEmptyBatch = errors.New("no quotes found")

// Provider searches the web for one input and returns quotes in the
// provider's relevance order. Each provider (Exa, test fakes) implements
// this interface per the Strategy pattern.
type Provider interface {
	Name() string
	Search(ctx context.Context, input types.SearchInput) ([]types.Quote, error)
}

// Executor fans a batch of inputs out to a Provider and merges the results.
type Executor struct {
	provider Provider
	topK     int
	policy   retry.Policy
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithSleeper replaces the backoff sleeper (tests use a recorder).
func WithSleeper(s retry.Sleeper) Option {
	return func(e *Executor) { e.policy.Sleep = s }
}

// NewExecutor creates an Executor. Zero config fields take their defaults.
func NewExecutor(p Provider, cfg types.SearchConfig, opts ...Option) *Executor {
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	e := &Executor{
		provider: p,
		topK:     topK,
		policy: retry.Policy{
			MaxAttempts: maxAttempts,
			Delay:       retry.Linear(delay),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute issues every input concurrently, waits for all of them, then
// deduplicates and ranks the quotes. A batch that yields no quotes, or in
// which any call fails, is reissued as a whole. The result holds at most
// TopK quotes; fewer is logged as a warning.
func (e *Executor) Execute(ctx context.Context, inputs []types.SearchInput) ([]types.Quote, error) {
	if len(inputs) == 0 {
		return nil, types.Invalid(fmt.Errorf("no search inputs"))
	}

	var ranked []types.Quote
	attempts, err := e.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		e.logger.Info("search attempt", "attempt", attempt, "max_attempts", e.policy.MaxAttempts, "provider", e.provider.Name())

		perInput, err := e.fanOut(ctx, inputs)
		if err != nil {
			e.warnAttempt(attempt, "search batch failed", err)
			perr := &types.ProviderTransientError{Stage: "search", Attempts: attempt, Err: err}
			if errors.Is(err, ErrAuth) {
				return retry.Permanent(perr)
			}
			return perr
		}

		merged, removed := Merge(perInput)
		if len(merged) == 0 {
			e.warnAttempt(attempt, "no quotes found", errEmptyBatch)
			return errEmptyBatch
		}
		e.logger.Debug("merged quotes", "unique", len(merged), "duplicates_removed", removed)
		ranked = merged
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("searching: %w", ctxErr)
		}
		if errors.Is(err, errEmptyBatch) {
			return nil, &types.NoResultsError{Attempts: attempts}
		}
		var perr *types.ProviderTransientError
		if errors.As(err, &perr) {
			perr.Attempts = attempts
			return nil, perr
		}
		return nil, err
	}

	if len(ranked) < e.topK {
		e.logger.Warn("found fewer quotes than requested", "found", len(ranked), "requested", e.topK)
	}
	if len(ranked) > e.topK {
		ranked = ranked[:e.topK]
	}
	return ranked, nil
}

// fanOut runs one provider call per input and joins them. Results are
// indexed by input position so the flatten order follows declaration order.
func (e *Executor) fanOut(ctx context.Context, inputs []types.SearchInput) ([][]types.Quote, error) {
	results := make([][]types.Quote, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			quotes, err := e.provider.Search(gctx, in)
			if err != nil {
				return fmt.Errorf("search %d (%q): %w", i+1, in.Query, err)
			}
			results[i] = quotes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Executor) warnAttempt(attempt int, msg string, err error) {
	if attempt < e.policy.MaxAttempts {
		e.logger.Warn(msg+", retrying",
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"retry_in", e.policy.Delay(attempt+1),
			"error", err)
	}
}

// Merge flattens per-input quote lists in order, keeps the first quote for
// each distinct text, and sorts by score descending. Equal scores keep their
// flatten order. It also returns how many duplicates were dropped.
func Merge(perInput [][]types.Quote) ([]types.Quote, int) {
	flat := lo.Flatten(perInput)
	unique := lo.UniqBy(flat, func(q types.Quote) string { return q.Text })
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})
	return unique, len(flat) - len(unique)
}
