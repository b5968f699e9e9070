// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan turns a question and an as-of date into structured search
// inputs with one language-model call, retried under a linear backoff.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"

	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/retry"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultSearchCount = 2
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
)

// searchInputsRe captures the JSON array between the sentinel tags.
var searchInputsRe = regexp.MustCompile(`<search_inputs>\s*(\[[\s\S]*?\])\s*</search_inputs>`)

// dateLayouts are the publication-date formats accepted from the model.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	types.DateLayout,
}

// Planner asks a language model for search inputs.
type Planner struct {
	llm    llm.Invoker
	cfg    types.PlannerConfig
	policy retry.Policy
	logger *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithSleeper replaces the backoff sleeper (tests use a recorder).
func WithSleeper(s retry.Sleeper) Option {
	return func(p *Planner) { p.policy.Sleep = s }
}

// New creates a Planner. Zero config fields take their defaults.
func New(invoker llm.Invoker, cfg types.PlannerConfig, opts ...Option) *Planner {
	if cfg.SearchCount <= 0 {
		cfg.SearchCount = defaultSearchCount
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	p := &Planner{
		llm: invoker,
		cfg: cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       retry.Linear(cfg.BaseDelay),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type planRequest struct {
	Question string
	Count    int
}

func (r planRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Question, validation.Required),
		validation.Field(&r.Count, validation.Required, validation.Min(1)),
	)
}

// Plan returns the search inputs for question. Every input's EndPublished
// is set to asOf regardless of what the model proposed.
func (p *Planner) Plan(ctx context.Context, question string, asOf time.Time) ([]types.SearchInput, error) {
	question = strings.TrimSpace(question)
	if err := (planRequest{Question: question, Count: p.cfg.SearchCount}).Validate(); err != nil {
		return nil, types.Invalid(err)
	}

	prompt, err := renderPrompt(question, asOf, p.cfg.SearchCount)
	if err != nil {
		return nil, fmt.Errorf("rendering planning prompt: %w", err)
	}

	var inputs []types.SearchInput
	attempts, err := p.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		resp, err := p.llm.Invoke(ctx, prompt, p.cfg.Temperature)
		if err != nil {
			p.warnAttempt(attempt, err)
			perr := &types.ProviderTransientError{Stage: "plan", Attempts: attempt, Err: err}
			if errors.Is(err, llm.ErrFatalAPI) {
				return retry.Permanent(perr)
			}
			return perr
		}

		parsed, dropped, err := ParseSearchInputs(resp)
		if err != nil {
			p.logger.Debug("unparseable planning response", "response", resp)
			p.warnAttempt(attempt, err)
			return err
		}
		for _, d := range dropped {
			p.logger.Warn("dropping unparseable start date", "value", d)
		}
		inputs = parsed
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("planning search inputs: %w", ctxErr)
		}
		p.logger.Error("generating search inputs failed", "attempts", attempts, "error", err)
		return nil, &types.ParsingError{Attempts: attempts, Err: err}
	}

	if len(inputs) != p.cfg.SearchCount {
		p.logger.Warn("model returned a different number of searches than requested",
			"requested", p.cfg.SearchCount, "returned", len(inputs))
	}

	for i := range inputs {
		end := asOf
		inputs[i].EndPublished = &end
	}

	for i, in := range inputs {
		p.logger.Info("decided on search", "n", i+1, "search", in.String())
	}
	return inputs, nil
}

func (p *Planner) warnAttempt(attempt int, err error) {
	if attempt < p.policy.MaxAttempts {
		p.logger.Warn("planning attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", p.policy.MaxAttempts,
			"retry_in", p.policy.Delay(attempt+1),
			"error", err)
	}
}

// ParseSearchInputs extracts the JSON array between <search_inputs> tags,
// repairs it once if it is not valid JSON, and converts each object into a
// SearchInput. It also returns start dates it could not parse; those inputs
// are kept without a start bound.
func ParseSearchInputs(response string) ([]types.SearchInput, []string, error) {
	m := searchInputsRe.FindStringSubmatch(response)
	if m == nil {
		return nil, nil, fmt.Errorf("no search inputs JSON found in response")
	}

	raw := m[1]
	if !gjson.Valid(raw) {
		repaired, err := jsonrepair.JSONRepair(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("repairing search inputs JSON: %w", err)
		}
		if !gjson.Valid(repaired) {
			return nil, nil, fmt.Errorf("search inputs JSON invalid after repair")
		}
		raw = repaired
	}

	doc := gjson.Parse(raw)
	if !doc.IsArray() {
		return nil, nil, fmt.Errorf("search inputs JSON is not an array")
	}

	var (
		inputs  []types.SearchInput
		dropped []string
	)
	for i, item := range doc.Array() {
		if !item.IsObject() {
			return nil, nil, fmt.Errorf("search input %d is not an object", i)
		}
		query := strings.TrimSpace(item.Get("web_search_query").String())
		if query == "" {
			return nil, nil, fmt.Errorf("search input %d: missing web_search_query", i)
		}
		in := types.SearchInput{
			Query:          query,
			HighlightQuery: strings.TrimSpace(item.Get("highlight_query").String()),
		}
		if start := item.Get("start_published_date"); start.Type == gjson.String && strings.TrimSpace(start.Str) != "" {
			if t, ok := parseDate(start.Str); ok {
				in.StartPublished = &t
			} else {
				dropped = append(dropped, start.Str)
			}
		}
		inputs = append(inputs, in)
	}

	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("search inputs JSON is empty")
	}
	return inputs, dropped, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
