// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine pipeline:
// search inputs produced by the planner, quotes returned by search providers,
// the reports assembled from them, stage configuration, and the error taxonomy.
package types

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used in prompts, flags, and
// human-readable output.
const DateLayout = "2006-01-02"

// SearchInput is one structured query submitted to a search provider. The
// planner builds these from a question; the JSON tags match the schema the
// planner asks the language model to emit.
type SearchInput struct {
	// Query is the web search query. Required.
	Query string `json:"web_search_query" yaml:"web_search_query"`

	// HighlightQuery selects the excerpts to extract from each page.
	// Empty means Query is used.
	HighlightQuery string `json:"highlight_query,omitempty" yaml:"highlight_query,omitempty"`

	// StartPublished is the earliest allowed publication date.
	StartPublished *time.Time `json:"start_published_date,omitempty" yaml:"start_published_date,omitempty"`

	// EndPublished is the latest allowed publication date. The planner
	// overwrites it with the caller's as-of date.
	EndPublished *time.Time `json:"end_published_date,omitempty" yaml:"end_published_date,omitempty"`
}

// Highlight returns the highlight query, falling back to Query.
func (s SearchInput) Highlight() string {
	if s.HighlightQuery != "" {
		return s.HighlightQuery
	}
	return s.Query
}

// String renders the input for log lines.
func (s SearchInput) String() string {
	out := fmt.Sprintf("query=%q", s.Query)
	if s.HighlightQuery != "" {
		out += fmt.Sprintf(" highlight=%q", s.HighlightQuery)
	}
	if s.StartPublished != nil {
		out += " from=" + s.StartPublished.Format(DateLayout)
	}
	if s.EndPublished != nil {
		out += " to=" + s.EndPublished.Format(DateLayout)
	}
	return out
}

// Source describes the document a quote was taken from.
type Source struct {
	// URL is the address of the source page.
	URL string `json:"url" yaml:"url"`

	// Title is the page title as reported by the provider.
	Title string `json:"title" yaml:"title"`

	// PublishedDate is nil when the provider does not know it.
	PublishedDate *time.Time `json:"published_date,omitempty" yaml:"published_date,omitempty"`
}

// ReadablePublishDate returns the publish date as YYYY-MM-DD, or "unknown".
func (s Source) ReadablePublishDate() string {
	if s.PublishedDate == nil || s.PublishedDate.IsZero() {
		return "unknown"
	}
	return s.PublishedDate.Format(DateLayout)
}

// Quote is an excerpt returned by a search provider. Two quotes are the
// same evidence when their Text is byte-for-byte equal.
type Quote struct {
	// Text is the excerpt.
	Text string `json:"text" yaml:"text"`

	// Score is the provider-assigned relevance; higher is more relevant.
	Score float64 `json:"score" yaml:"score"`

	// Source identifies where the excerpt came from.
	Source Source `json:"source" yaml:"source"`
}
