// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/archive"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived runs or print one of them",
	Long: `History lists runs saved with --archive, newest first. Use --show with a
run ID (or a unique prefix of one) to print the full record as YAML.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "l", 20, "maximum runs to list")
	historyCmd.Flags().String("contains", "", "only runs whose question contains this text")
	historyCmd.Flags().String("show", "", "print the run with this ID or ID prefix")
	historyCmd.Flags().Bool("json", false, "print as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")

	if id, _ := cmd.Flags().GetString("show"); id != "" {
		rec, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		return archive.WriteYAML(out, rec)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	contains, _ := cmd.Flags().GetString("contains")
	runs, err := store.List(ctx, archive.ListOptions{Limit: limit, Contains: contains})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No archived runs.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCreated\tMode\tStrategy\tQuotes\tQuestion")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID[:8], r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Mode, r.Strategy, r.Quotes, r.Question)
	}
	return w.Flush()
}
