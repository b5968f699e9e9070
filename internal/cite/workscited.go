// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cite

import (
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// WorksCitedHeading opens the works-cited section.
const WorksCitedHeading = "## Works Cited"

// WorksCited renders a markdown section listing the sources cited in text,
// grouped by URL in order of first citation. Each source lists its cited
// excerpts under their [i] markers so a later Link pass turns them into
// fragment links. When text cites nothing, every quote is listed.
func WorksCited(quotes []types.Quote, text string) string {
	indices := Cited(text, len(quotes))
	if len(indices) == 0 {
		for i := range quotes {
			indices = append(indices, i+1)
		}
	}
	if len(indices) == 0 {
		return ""
	}

	type group struct {
		src     types.Source
		markers []int
	}
	var order []string
	groups := make(map[string]*group)
	for _, idx := range indices {
		q := quotes[idx-1]
		g, ok := groups[q.Source.URL]
		if !ok {
			g = &group{src: q.Source}
			groups[q.Source.URL] = g
			order = append(order, q.Source.URL)
		}
		g.markers = append(g.markers, idx)
	}

	var b strings.Builder
	b.WriteString(WorksCitedHeading)
	b.WriteString("\n\n")
	for _, u := range order {
		g := groups[u]
		title := g.src.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "- **%s** (published %s), %s\n", title, g.src.ReadablePublishDate(), u)
		for _, idx := range g.markers {
			fmt.Fprintf(&b, "  - [%d] \"%s\"\n", idx, strings.Join(strings.Fields(quotes[idx-1].Text), " "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
