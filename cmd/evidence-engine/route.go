// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/pipeline"
	"github.com/pdiddy/evidence-engine/internal/route"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var routeCmd = &cobra.Command{
	Use:   "route QUESTION",
	Short: "Pick a research strategy for a question and answer with it",
	Long: `Route asks the language model which research strategy fits the question,
runs that strategy in report mode, and prints the answer. Answers from any
strategy other than the default are prefixed with the strategy name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	addPipelineFlags(routeCmd)
	routeCmd.Flags().Bool("works-cited", false, "append a works-cited section to the report")
	routeCmd.Flags().Bool("no-brackets", false, "render citations as [n](url) instead of \\[[n](url)\\]")
	routeCmd.Flags().Bool("archive", false, "save the run to the archive")

	rootCmd.AddCommand(routeCmd)
}

// recordingResearcher keeps the last report so the route command can
// archive the quotes behind the routed answer.
type recordingResearcher struct {
	inner route.Researcher
	last  types.Report
}

func (r *recordingResearcher) Run(ctx context.Context, question string, asOf time.Time) (types.Report, error) {
	rep, err := r.inner.Run(ctx, question, asOf)
	if err == nil {
		r.last = rep
	}
	return rep, err
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPipelineFlags(cmd, &cfg)
	applyReportFlags(cmd, &cfg)
	cfg.Report.Mode = types.ModeReport

	asOf, err := parseAsOf(cmd)
	if err != nil {
		return err
	}

	invoker, err := newInvoker(cfg)
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	searcher, err := pipeline.Build(cfg, invoker, provider, logger(), nil)
	if err != nil {
		return err
	}

	rec := &recordingResearcher{inner: searcher}
	router, err := route.New(invoker, route.DefaultEntries(rec), cfg.Router, route.WithLogger(logger()))
	if err != nil {
		return err
	}

	question := questionArg(args)
	answer, entry, err := router.Answer(cmd.Context(), question, asOf)
	if err != nil {
		return err
	}
	fmt.Println(answer)

	if save, _ := cmd.Flags().GetBool("archive"); save {
		rep := rec.last
		rep.Question = question
		rep.Strategy = entry.Name
		rep.Text = answer
		return archiveReport(cmd.Context(), cfg, rep)
	}
	return nil
}
