// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// exaAPIBase is the Exa search endpoint. Declared as a var so tests can
// substitute an httptest server.
var exaAPIBase = "https://api.exa.ai/search"

// exaDateLayout is the timestamp format Exa accepts for date filters.
const exaDateLayout = "2006-01-02T15:04:05.000Z"

// ExaProvider queries the Exa neural search API for page highlights.
type ExaProvider struct {
	Client  *http.Client
	APIKey  string
	Config  types.SearchConfig
	limiter *rate.Limiter
}

// NewExaProvider builds a provider from config. A positive
// RequestsPerSecond throttles calls across all concurrent searches.
func NewExaProvider(cfg types.SearchConfig) *ExaProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	p := &ExaProvider{
		Client: &http.Client{Timeout: timeout},
		APIKey: cfg.APIKey,
		Config: cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p
}

// Name returns the provider identifier.
func (p *ExaProvider) Name() string { return "exa" }

// Search runs one query and returns its highlights as quotes, most relevant
// first.
func (p *ExaProvider) Search(ctx context.Context, input types.SearchInput) ([]types.Quote, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("exa: missing API key: %w", ErrAuth)
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("exa: waiting for rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(p.buildRequest(input))
	if err != nil {
		return nil, fmt.Errorf("exa: encoding request: %w", err)
	}

	endpoint := exaAPIBase
	if p.Config.BaseURL != "" {
		endpoint = p.Config.BaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("exa: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	if p.Config.UserAgent != "" {
		req.Header.Set("User-Agent", p.Config.UserAgent)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("exa: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("exa: reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("exa: HTTP %d: %w", resp.StatusCode, ErrAuth)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("exa: HTTP %d: %s", resp.StatusCode, gjson.GetBytes(raw, "error").String())
	}

	var er exaResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("exa: parsing response: %w", err)
	}
	return er.quotes(), nil
}

func (p *ExaProvider) buildRequest(input types.SearchInput) exaRequest {
	numResults := p.Config.ResultsPerSearch
	if numResults <= 0 {
		numResults = 10
	}
	sentences := p.Config.SentencesPerHighlight
	if sentences <= 0 {
		sentences = 4
	}
	perURL := p.Config.HighlightsPerURL
	if perURL <= 0 {
		perURL = 1
	}

	r := exaRequest{
		Query:      input.Query,
		NumResults: numResults,
	}
	r.Contents.Highlights = &exaHighlightOptions{
		Query:            input.Highlight(),
		NumSentences:     sentences,
		HighlightsPerURL: perURL,
	}
	if input.StartPublished != nil {
		r.StartPublishedDate = input.StartPublished.UTC().Format(exaDateLayout)
	}
	if input.EndPublished != nil {
		r.EndPublishedDate = input.EndPublished.UTC().Format(exaDateLayout)
	}
	return r
}

// Exa API JSON structures.
type exaRequest struct {
	Query              string      `json:"query"`
	NumResults         int         `json:"numResults"`
	StartPublishedDate string      `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string      `json:"endPublishedDate,omitempty"`
	Contents           exaContents `json:"contents"`
}

type exaContents struct {
	Highlights *exaHighlightOptions `json:"highlights,omitempty"`
}

type exaHighlightOptions struct {
	Query            string `json:"query,omitempty"`
	NumSentences     int    `json:"numSentences"`
	HighlightsPerURL int    `json:"highlightsPerUrl"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

type exaResult struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	PublishedDate   string    `json:"publishedDate"`
	Score           float64   `json:"score"`
	Highlights      []string  `json:"highlights"`
	HighlightScores []float64 `json:"highlightScores"`
}

// quotes flattens every result's highlights into quotes. Each quote takes
// its highlight score, or the page score when Exa sent none. Ties keep the
// provider's result order.
func (r exaResponse) quotes() []types.Quote {
	var out []types.Quote
	for _, res := range r.Results {
		src := types.Source{
			URL:           res.URL,
			Title:         res.Title,
			PublishedDate: parseExaDate(res.PublishedDate),
		}
		for i, text := range res.Highlights {
			score := res.Score
			if i < len(res.HighlightScores) {
				score = res.HighlightScores[i]
			}
			out = append(out, types.Quote{Text: text, Score: score, Source: src})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// parseExaDate accepts the RFC 3339 timestamps and bare dates Exa returns.
func parseExaDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, exaDateLayout, types.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
