// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires planning, search, report compilation and citation
// linking into one call that turns a question into a Report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pdiddy/evidence-engine/internal/cite"
	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/plan"
	"github.com/pdiddy/evidence-engine/internal/report"
	"github.com/pdiddy/evidence-engine/internal/retry"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Planner produces search inputs for a question.
type Planner interface {
	Plan(ctx context.Context, question string, asOf time.Time) ([]types.SearchInput, error)
}

// Executor runs search inputs and returns ranked quotes.
type Executor interface {
	Execute(ctx context.Context, inputs []types.SearchInput) ([]types.Quote, error)
}

// Compiler writes a cited report from quotes.
type Compiler interface {
	Compile(ctx context.Context, quotes []types.Quote, question string, asOf time.Time) (string, error)
}

// Searcher runs the full evidence pipeline.
type Searcher struct {
	planner  Planner
	executor Executor
	compiler Compiler
	linker   cite.Linker
	cfg      types.ReportConfig
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) { s.logger = l }
}

// ValidateReportConfig checks the output settings.
func ValidateReportConfig(cfg types.ReportConfig) error {
	err := validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Mode, validation.Required, validation.In(types.ModeRaw, types.ModeReport)),
		validation.Field(&cfg.Temperature, validation.Min(0.0), validation.Max(1.0)),
	)
	if err != nil {
		return types.Invalid(err)
	}
	return nil
}

// New creates a Searcher from its stages. compiler may be nil in raw mode.
func New(p Planner, e Executor, c Compiler, cfg types.ReportConfig, opts ...Option) (*Searcher, error) {
	if cfg.Mode == "" {
		cfg.Mode = types.ModeRaw
	}
	if err := ValidateReportConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Mode == types.ModeReport && c == nil {
		return nil, types.Invalid(fmt.Errorf("report mode requires a compiler"))
	}
	s := &Searcher{
		planner:  p,
		executor: e,
		compiler: c,
		linker:   cite.Linker{Brackets: cfg.Brackets},
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Build assembles a Searcher from configuration and concrete providers.
// sleeper may be nil to wait in real time.
func Build(cfg types.PipelineConfig, invoker llm.Invoker, provider search.Provider, logger *slog.Logger, sleeper retry.Sleeper) (*Searcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validation.Validate(cfg.Planner.Temperature, validation.Min(0.0), validation.Max(1.0)); err != nil {
		return nil, types.Invalid(fmt.Errorf("planner temperature: %w", err))
	}

	planOpts := []plan.Option{plan.WithLogger(logger)}
	searchOpts := []search.Option{search.WithLogger(logger)}
	reportOpts := []report.Option{report.WithLogger(logger)}
	if sleeper != nil {
		planOpts = append(planOpts, plan.WithSleeper(sleeper))
		searchOpts = append(searchOpts, search.WithSleeper(sleeper))
		reportOpts = append(reportOpts, report.WithSleeper(sleeper))
	}

	return New(
		plan.New(invoker, cfg.Planner, planOpts...),
		search.NewExecutor(provider, cfg.Search, searchOpts...),
		report.New(invoker, cfg.Report, reportOpts...),
		cfg.Report,
		WithLogger(logger),
	)
}

// Mode returns the output mode.
func (s *Searcher) Mode() types.OutputMode { return s.cfg.Mode }

// Run answers question as of asOf. In raw mode the report text is the
// numbered evidence list; in report mode it is the compiled narrative with
// citation links (and a works-cited section when configured).
func (s *Searcher) Run(ctx context.Context, question string, asOf time.Time) (types.Report, error) {
	question = strings.TrimSpace(question)
	if err := validation.Validate(question, validation.Required); err != nil {
		return types.Report{}, types.Invalid(fmt.Errorf("question: %w", err))
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	s.logger.Debug("running search", "question", question, "as_of", asOf.Format(types.DateLayout), "mode", s.cfg.Mode)

	inputs, err := s.planner.Plan(ctx, question, asOf)
	if err != nil {
		return types.Report{}, err
	}
	quotes, err := s.executor.Execute(ctx, inputs)
	if err != nil {
		return types.Report{}, err
	}

	rep := types.Report{
		Question: question,
		AsOf:     asOf,
		Mode:     s.cfg.Mode,
		Inputs:   inputs,
		Quotes:   quotes,
	}

	switch s.cfg.Mode {
	case types.ModeReport:
		text, err := s.compiler.Compile(ctx, quotes, question, asOf)
		if err != nil {
			return types.Report{}, err
		}
		if s.cfg.IncludeWorksCited {
			if wc := cite.WorksCited(quotes, text); wc != "" {
				text = text + "\n\n" + wc
			}
		}
		for _, n := range cite.Unresolved(text, len(quotes)) {
			s.logger.Warn("citation marker has no matching quote", "marker", n, "quotes", len(quotes))
		}
		rep.Text = s.linker.Link(text, quotes)
	default:
		rep.Text = search.FormatContext(quotes)
	}

	s.logger.Debug("report", "text", truncateForLog(rep.Text))
	return rep, nil
}

func truncateForLog(s string) string {
	const max = 1000
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
