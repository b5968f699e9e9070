// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/cite"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var linkCmd = &cobra.Command{
	Use:   "link --evidence FILE [DRAFT]",
	Short: "Turn [n] markers in a draft into text-fragment links",
	Long: `Link reads a draft (from DRAFT, or stdin when omitted) and replaces each
[n] marker with a link to the nth quote of an evidence file written by
"search --save". Markers already linked are left as they are.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringP("evidence", "e", "", "evidence file written by search --save (required)")
	linkCmd.Flags().Bool("works-cited", false, "append a works-cited section before linking")
	linkCmd.Flags().Bool("no-brackets", false, "render citations as [n](url) instead of \\[[n](url)\\]")
	_ = linkCmd.MarkFlagRequired("evidence")

	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("evidence")
	ef, err := search.ReadEvidenceFile(path)
	if err != nil {
		return err
	}

	var draft []byte
	if len(args) == 1 {
		draft, err = os.ReadFile(args[0])
	} else {
		draft, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("reading draft: %w", err)
	}
	if len(draft) == 0 {
		return types.Invalid(errors.New("draft is empty"))
	}

	text := string(draft)
	if wc, _ := cmd.Flags().GetBool("works-cited"); wc {
		if section := cite.WorksCited(ef.Quotes, text); section != "" {
			text = text + "\n\n" + section
		}
	}
	for _, n := range cite.Unresolved(text, len(ef.Quotes)) {
		logger().Warn("citation marker has no matching quote", "marker", n, "quotes", len(ef.Quotes))
	}

	noBrackets, _ := cmd.Flags().GetBool("no-brackets")
	linker := cite.Linker{Brackets: !noBrackets}
	fmt.Fprint(cmd.OutOrStdout(), linker.Link(text, ef.Quotes))
	return nil
}
