// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cite rewrites inline [i] citation markers into markdown links that
// open the cited source and highlight the quoted passage with a text
// fragment.
package cite

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// shortExcerptWords is the word count below which the whole excerpt is used
// as the text fragment instead of a start,end range.
const shortExcerptWords = 10

// rangeWords is how many words anchor each end of a range fragment.
const rangeWords = 5

// numericCiteRe matches bare numeric markers like [1] or [12].
var numericCiteRe = regexp.MustCompile(`\[(\d+)\]`)

// sourceURLEscaper keeps the link target free of characters that would end
// the markdown link or be mistaken for a marker.
var sourceURLEscaper = strings.NewReplacer(
	"(", "%28",
	")", "%29",
	"[", "%5B",
	"]", "%5D",
	" ", "%20",
)

// Linker rewrites citation markers.
type Linker struct {
	// Brackets wraps each link in escaped brackets: \[[1](url)\].
	Brackets bool
}

// markerPattern matches every form a marker for index n can take: [n],
// [n](target), \[[n]\] and \[[n](target)\]. The index is delimited by the
// surrounding brackets so [1] never matches inside [10].
func markerPattern(n int) *regexp.Regexp {
	return regexp.MustCompile(`(?:\\\[)?\[` + strconv.Itoa(n) + `\](?:\([^)\n]*\))?(?:\\\])?`)
}

// Link replaces every marker [i], 1 <= i <= len(quotes), with a link to
// quotes[i-1]. Markers outside that range are left alone. Link is
// idempotent: linking its own output changes nothing.
func (l Linker) Link(text string, quotes []types.Quote) string {
	for i, q := range quotes {
		n := i + 1
		text = markerPattern(n).ReplaceAllLiteralString(text, l.marker(n, FragmentURL(q)))
	}
	return text
}

func (l Linker) marker(n int, target string) string {
	link := "[" + strconv.Itoa(n) + "](" + target + ")"
	if l.Brackets {
		return `\[` + link + `\]`
	}
	return link
}

// FragmentURL returns the quote's source URL with a text-fragment directive
// selecting the quote.
func FragmentURL(q types.Quote) string {
	base := sourceURLEscaper.Replace(q.Source.URL)
	sep := "#:~:text="
	if strings.Contains(base, "#") {
		sep = ":~:text="
	}
	return base + sep + TextFragment(q.Text)
}

// TextFragment encodes an excerpt as a text-fragment value. Excerpts under
// ten words are used whole; longer ones become "first five,last five",
// where the comma lets the browser match anything in between.
func TextFragment(excerpt string) string {
	words := strings.Fields(excerpt)
	var frag string
	if len(words) < shortExcerptWords {
		frag = encodeFragmentPart(strings.Join(words, " "))
	} else {
		start := encodeFragmentPart(strings.Join(words[:rangeWords], " "))
		end := encodeFragmentPart(strings.Join(words[len(words)-rangeWords:], " "))
		frag = start + "," + end
	}
	return strings.Trim(frag, ",")
}

// encodeFragmentPart percent-encodes s for use inside a text directive.
// Spaces become %20 and the directive's own syntax characters (comma, dash,
// ampersand, parentheses) are always escaped.
func encodeFragmentPart(s string) string {
	enc := strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	return strings.ReplaceAll(enc, "-", "%2D")
}

// Unresolved returns the numeric markers in text that do not refer to one of
// n quotes, in order of first appearance.
func Unresolved(text string, n int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range numericCiteRe.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || seen[idx] {
			continue
		}
		seen[idx] = true
		if idx < 1 || idx > n {
			out = append(out, idx)
		}
	}
	return out
}

// Cited returns the in-range indices cited in text, in order of first
// appearance.
func Cited(text string, n int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range numericCiteRe.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || seen[idx] || idx < 1 || idx > n {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}
