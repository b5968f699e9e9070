// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// FormatContext renders quotes as the numbered evidence block fed to the
// report prompt and returned verbatim in raw mode. Numbering starts at 1 and
// follows slice order, which is the citation index space.
func FormatContext(quotes []types.Quote) string {
	var b strings.Builder
	for i, q := range quotes {
		fmt.Fprintf(&b, "[%d] \"%s\". [This quote is from %s titled \"%s\", published on %s]\n",
			i+1, q.Text, q.Source.URL, q.Source.Title, q.Source.ReadablePublishDate())
	}
	return b.String()
}

// FormatTable writes quotes as a human-readable table to w.
func FormatTable(quotes []types.Quote, w io.Writer) {
	if len(quotes) == 0 {
		fmt.Fprintln(w, "No quotes found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-6s  %-10s  %-40s  %s\n", "Rank", "Score", "Published", "Title", "Quote")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, q := range quotes {
		fmt.Fprintf(w, "%-4d  %-6.3f  %-10s  %-40s  %s\n",
			i+1, q.Score, q.Source.ReadablePublishDate(),
			truncate(q.Source.Title, 40), truncate(strings.Join(strings.Fields(q.Text), " "), 50))
	}
	fmt.Fprintf(w, "\n%d quotes\n", len(quotes))
}

// FormatJSON writes quotes as indented JSON to w.
func FormatJSON(quotes []types.Quote, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(quotes)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
