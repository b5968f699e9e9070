// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package route picks a research strategy for a question with one
// language-model call and delegates the answer to that strategy.
package route

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/retry"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// Responder answers one question in markdown.
type Responder interface {
	Respond(ctx context.Context, asOf time.Time) (string, error)
}

// Entry is one strategy in the registry.
type Entry struct {
	// Name is matched case-sensitively in upper case against the model's
	// reply, so it should be written in upper case with underscores.
	Name string

	// Description tells the model when to use the strategy.
	Description string

	// New binds the strategy to a question.
	New func(question string) Responder
}

func validateEntry(value interface{}) error {
	e, _ := value.(Entry)
	if err := validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Description, validation.Required),
	); err != nil {
		return err
	}
	if e.New == nil {
		return fmt.Errorf("strategy %s has no constructor", e.Name)
	}
	return nil
}

var routePromptTmpl = template.Must(template.New("route").Parse(`You are a research manager. You have to choose one of {{len .Entries}} research strategies to answer a question.

Your job is to suggest the best strategy to answer the following question:
{{.Question}}

The possible strategies for answering the question are as follows:
{{range .Entries}}{{.Name}}: {{.Description}}
{{end}}
Let's take this step by step:
1. List the strategies whose description matches the type of question you have
2. Of the ones whose description matches, pick the one most likely to give a good answer
3. Write down the name of the strategy in all caps

Remember to give the research strategy name exactly as written, and put it in all caps
`))

// Router chooses among registry entries. The first entry is the default.
type Router struct {
	llm     llm.Invoker
	entries []Entry
	policy  retry.Policy
	logger  *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s retry.Sleeper) Option {
	return func(r *Router) { r.policy.Sleep = s }
}

// New creates a Router over entries, which must be non-empty with unique
// names.
func New(invoker llm.Invoker, entries []Entry, cfg types.RouterConfig, opts ...Option) (*Router, error) {
	if err := validation.Validate(entries,
		validation.Required,
		validation.Each(validation.By(validateEntry)),
	); err != nil {
		return nil, types.Invalid(fmt.Errorf("strategy registry: %w", err))
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		key := strings.ToUpper(e.Name)
		if seen[key] {
			return nil, types.Invalid(fmt.Errorf("duplicate strategy %s", e.Name))
		}
		seen[key] = true
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	r := &Router{
		llm:     invoker,
		entries: entries,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       retry.Linear(cfg.RetryDelay),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Default returns the fallback entry.
func (r *Router) Default() Entry { return r.entries[0] }

// Entries returns the registry in order.
func (r *Router) Entries() []Entry { return r.entries }

// Route asks the model which strategy fits question.
func (r *Router) Route(ctx context.Context, question string) (Entry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Entry{}, types.Invalid(errors.New("question is empty"))
	}

	var buf bytes.Buffer
	if err := routePromptTmpl.Execute(&buf, struct {
		Question string
		Entries  []Entry
	}{question, r.entries}); err != nil {
		return Entry{}, fmt.Errorf("rendering routing prompt: %w", err)
	}
	prompt := buf.String()

	var response string
	attempts, err := r.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		resp, err := r.llm.Invoke(ctx, prompt, 0)
		if err != nil {
			if attempt < r.policy.MaxAttempts {
				r.logger.Warn("routing call failed, retrying", "attempt", attempt, "error", err)
			}
			if errors.Is(err, llm.ErrFatalAPI) {
				return retry.Permanent(err)
			}
			return err
		}
		response = resp
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Entry{}, fmt.Errorf("routing question: %w", ctxErr)
		}
		return Entry{}, &types.ProviderTransientError{Stage: "route", Attempts: attempts, Err: err}
	}

	r.logger.Info("routing response", "response", strings.ReplaceAll(response, "\n", "|"))
	chosen, matched := Select(response, r.entries)
	r.logger.Info("chose responder strategy", "strategy", chosen.Name, "default", !matched)
	return chosen, nil
}

// Select scans entries in order and returns the last one whose upper-cased
// name occurs in response. With no match it returns the first entry and
// false. Select is a pure function of its inputs.
func Select(response string, entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	chosen, matched := entries[0], false
	for _, e := range entries {
		if strings.Contains(response, strings.ToUpper(e.Name)) {
			chosen, matched = e, true
		}
	}
	return chosen, matched
}

// Answer routes question, has the chosen strategy respond, and prefixes the
// answer with the strategy name unless the default strategy answered.
func (r *Router) Answer(ctx context.Context, question string, asOf time.Time) (string, Entry, error) {
	entry, err := r.Route(ctx, question)
	if err != nil {
		return "", Entry{}, err
	}
	answer, err := entry.New(strings.TrimSpace(question)).Respond(ctx, asOf)
	if err != nil {
		return "", entry, fmt.Errorf("strategy %s: %w", entry.Name, err)
	}
	r.logger.Info("answered question", "strategy", entry.Name)

	if entry.Name == r.Default().Name {
		return answer, entry, nil
	}
	return fmt.Sprintf("Using strategy %s:\n%s", entry.Name, answer), entry, nil
}
