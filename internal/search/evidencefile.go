// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// EvidenceFile is the on-disk record of one search run: the question, the
// planned inputs, and the ranked quotes. The link command reads it back to
// resolve citation markers without re-querying the provider.
type EvidenceFile struct {
	Question string              `yaml:"question"`
	AsOf     string              `yaml:"as_of"`
	Inputs   []types.SearchInput `yaml:"inputs"`
	Config   EvidenceFileConfig  `yaml:"config"`
	Quotes   []types.Quote       `yaml:"quotes"`
	Summary  EvidenceSummary     `yaml:"summary"`
}

// EvidenceFileConfig stores the search settings that produced the quotes.
type EvidenceFileConfig struct {
	Provider         string `yaml:"provider"`
	ResultsPerSearch int    `yaml:"results_per_search"`
	TopK             int    `yaml:"top_k"`
}

// EvidenceSummary stores result statistics and a timestamp.
type EvidenceSummary struct {
	Total     int       `yaml:"total"`
	Sources   int       `yaml:"sources"`
	Timestamp time.Time `yaml:"timestamp"`
}

// NewEvidenceFile assembles the record for a completed search.
func NewEvidenceFile(question string, asOf time.Time, provider string, cfg types.SearchConfig, inputs []types.SearchInput, quotes []types.Quote) EvidenceFile {
	urls := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		urls[q.Source.URL] = struct{}{}
	}
	return EvidenceFile{
		Question: question,
		AsOf:     asOf.Format(types.DateLayout),
		Inputs:   inputs,
		Config: EvidenceFileConfig{
			Provider:         provider,
			ResultsPerSearch: cfg.ResultsPerSearch,
			TopK:             cfg.TopK,
		},
		Quotes: quotes,
		Summary: EvidenceSummary{
			Total:     len(quotes),
			Sources:   len(urls),
			Timestamp: time.Now().UTC(),
		},
	}
}

// WriteEvidenceFile saves ef to path as YAML.
func WriteEvidenceFile(path string, ef EvidenceFile) error {
	data, err := yaml.Marshal(&ef)
	if err != nil {
		return fmt.Errorf("marshaling evidence file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadEvidenceFile loads a previously saved evidence file from disk.
func ReadEvidenceFile(path string) (*EvidenceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading evidence file: %w", err)
	}
	var ef EvidenceFile
	if err := yaml.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("parsing evidence file: %w", err)
	}
	return &ef, nil
}

// AsOfDate parses the stored as-of date.
func (ef EvidenceFile) AsOfDate() (time.Time, error) {
	t, err := time.Parse(types.DateLayout, ef.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of %q: %w", ef.AsOf, err)
	}
	return t, nil
}
