// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/plan"
	"github.com/pdiddy/evidence-engine/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search QUESTION",
	Short: "Plan searches for a question and print the ranked quotes",
	Long: `Search asks the language model for search inputs, runs them against the
search provider, and prints the deduplicated quotes ranked by score.

Use --save to write the question, inputs and quotes to an evidence file that
the link command can later resolve citations against.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	addPipelineFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "print quotes as JSON")
	searchCmd.Flags().StringP("save", "o", "", "write an evidence file (YAML) to this path")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPipelineFlags(cmd, &cfg)

	asOf, err := parseAsOf(cmd)
	if err != nil {
		return err
	}
	question := questionArg(args)

	invoker, err := newInvoker(cfg)
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	planner := plan.New(invoker, cfg.Planner, plan.WithLogger(logger()))
	inputs, err := planner.Plan(ctx, question, asOf)
	if err != nil {
		return err
	}
	for i, in := range inputs {
		logger().Info("search input", "n", i+1, "input", in.String())
	}

	executor := search.NewExecutor(provider, cfg.Search, search.WithLogger(logger()))
	quotes, err := executor.Execute(ctx, inputs)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := search.FormatJSON(quotes, os.Stdout); err != nil {
			return err
		}
	} else {
		search.FormatTable(quotes, os.Stdout)
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		ef := search.NewEvidenceFile(question, asOf, provider.Name(), cfg.Search, inputs, quotes)
		if err := search.WriteEvidenceFile(path, ef); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Evidence written to %s\n", path)
	}
	return nil
}
