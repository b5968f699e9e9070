// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/pipeline"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a question with raw evidence or a cited report",
	Long: `Ask runs the full pipeline: plan searches, gather and rank quotes, then
either print the numbered evidence list (--mode raw) or have the language
model write a report whose [n] markers link to the quoted text (--mode report).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	addPipelineFlags(askCmd)
	askCmd.Flags().StringP("mode", "m", "", "output mode: raw or report (default from config)")
	askCmd.Flags().Bool("works-cited", false, "append a works-cited section to the report")
	askCmd.Flags().Bool("no-brackets", false, "render citations as [n](url) instead of \\[[n](url)\\]")
	askCmd.Flags().Bool("archive", false, "save the run to the archive")

	rootCmd.AddCommand(askCmd)
}

func applyReportFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	if cmd.Flags().Changed("mode") {
		m, _ := cmd.Flags().GetString("mode")
		cfg.Report.Mode = types.OutputMode(m)
	}
	if cmd.Flags().Changed("works-cited") {
		cfg.Report.IncludeWorksCited, _ = cmd.Flags().GetBool("works-cited")
	}
	if noBrackets, _ := cmd.Flags().GetBool("no-brackets"); noBrackets {
		cfg.Report.Brackets = false
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPipelineFlags(cmd, &cfg)
	applyReportFlags(cmd, &cfg)

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

	rep, err := searcher.Run(cmd.Context(), questionArg(args), asOf)
	if err != nil {
		return err
	}
	fmt.Println(rep.Text)

	if save, _ := cmd.Flags().GetBool("archive"); save {
		return archiveReport(cmd.Context(), cfg, rep)
	}
	return nil
}

func archiveReport(ctx context.Context, cfg types.PipelineConfig, rep types.Report) error {
	store, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Save(ctx, rep)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Archived run %s\n", rec.ID)
	return nil
}
