// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report compiles ranked quotes and a question into a narrative
// answer with inline [i] citations.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/retry"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// NoResultsMessage is returned instead of a report when there is nothing to
// compile.
const NoResultsMessage = "No search results found for the query using the search filter chosen"

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// Compiler writes reports with one language-model call per compilation.
type Compiler struct {
	llm    llm.Invoker
	cfg    types.ReportConfig
	policy retry.Policy
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s retry.Sleeper) Option {
	return func(c *Compiler) { c.policy.Sleep = s }
}

// New creates a Compiler.
func New(invoker llm.Invoker, cfg types.ReportConfig, opts ...Option) *Compiler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	c := &Compiler{
		llm: invoker,
		cfg: cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       retry.Linear(cfg.RetryDelay),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile answers question from quotes. Citation [i] in the result refers
// to quotes[i-1]. With no quotes it returns NoResultsMessage and makes no
// model call.
func (c *Compiler) Compile(ctx context.Context, quotes []types.Quote, question string, asOf time.Time) (string, error) {
	if len(quotes) == 0 {
		return NoResultsMessage, nil
	}

	prompt, err := renderPrompt(question, asOf, quotes)
	if err != nil {
		return "", fmt.Errorf("rendering report prompt: %w", err)
	}
	c.logger.Info("generating report", "quotes", len(quotes))
	c.logger.Debug("report prompt", "prompt", prompt)

	var text string
	attempts, err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		resp, err := c.llm.Invoke(ctx, prompt, c.cfg.Temperature)
		if err != nil {
			if attempt < c.policy.MaxAttempts {
				c.logger.Warn("report generation failed, retrying",
					"attempt", attempt, "max_attempts", c.policy.MaxAttempts, "error", err)
			}
			if errors.Is(err, llm.ErrFatalAPI) {
				return retry.Permanent(err)
			}
			return err
		}
		text = resp
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("compiling report: %w", ctxErr)
		}
		return "", &types.ProviderTransientError{Stage: "report", Attempts: attempts, Err: err}
	}
	return text, nil
}
