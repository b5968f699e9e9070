// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-engine/internal/archive"
	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var cliLogger = slog.Default()

func logger() *slog.Logger { return cliLogger }

func setLogger(l *slog.Logger) {
	cliLogger = l
	slog.SetDefault(l)
}

// setDefaults registers every configuration key so viper resolves it from
// the environment even when no config file mentions it.
func setDefaults(v *viper.Viper, cfg types.PipelineConfig) {
	defaults := map[string]any{
		"ai.provider": string(cfg.AI.Provider),
		"ai.model":    cfg.AI.Model,
		"ai.api_key":  cfg.AI.APIKey,
		"ai.base_url": cfg.AI.BaseURL,

		"planner.search_count": cfg.Planner.SearchCount,
		"planner.temperature":  cfg.Planner.Temperature,
		"planner.max_attempts": cfg.Planner.MaxAttempts,
		"planner.base_delay":   cfg.Planner.BaseDelay,

		"search.timeout":                 cfg.Search.Timeout,
		"search.user_agent":              cfg.Search.UserAgent,
		"search.api_key":                 cfg.Search.APIKey,
		"search.base_url":                cfg.Search.BaseURL,
		"search.results_per_search":      cfg.Search.ResultsPerSearch,
		"search.highlights_per_url":      cfg.Search.HighlightsPerURL,
		"search.sentences_per_highlight": cfg.Search.SentencesPerHighlight,
		"search.top_k":                   cfg.Search.TopK,
		"search.max_attempts":            cfg.Search.MaxAttempts,
		"search.retry_delay":             cfg.Search.RetryDelay,
		"search.requests_per_second":     cfg.Search.RequestsPerSecond,

		"report.mode":                string(cfg.Report.Mode),
		"report.temperature":         cfg.Report.Temperature,
		"report.include_works_cited": cfg.Report.IncludeWorksCited,
		"report.brackets":            cfg.Report.Brackets,
		"report.max_attempts":        cfg.Report.MaxAttempts,
		"report.retry_delay":         cfg.Report.RetryDelay,

		"router.max_attempts": cfg.Router.MaxAttempts,
		"router.retry_delay":  cfg.Router.RetryDelay,

		"archive.dir": cfg.Archive.Dir,

		"log.level": cfg.Log.Level,
		"log.file":  cfg.Log.File,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// loadConfig resolves the pipeline configuration from defaults, the config
// file and EVIDENCE_ENGINE_* variables, then fills API keys from .secrets/
// and the provider-specific environment variables.
func loadConfig() (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = secrets.Lookup(loadedSecrets, secrets.ExaAPIKey)
	}
	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case types.ProviderAnthropic:
			cfg.AI.APIKey = secrets.Lookup(loadedSecrets, secrets.AnthropicAPIKey)
		case types.ProviderOpenAI:
			cfg.AI.APIKey = secrets.Lookup(loadedSecrets, secrets.OpenAIAPIKey)
		}
	}
	return cfg, nil
}

// addPipelineFlags registers the flags shared by the commands that run
// the pipeline.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("as-of", "", "answer as of this date (YYYY-MM-DD, default today)")
	cmd.Flags().IntP("searches", "n", 0, "number of search inputs to plan (default from config)")
	cmd.Flags().IntP("top-k", "k", 0, "number of quotes to keep (default from config)")
}

// applyPipelineFlags overrides cfg with flags the user set explicitly.
func applyPipelineFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	if cmd.Flags().Changed("searches") {
		cfg.Planner.SearchCount, _ = cmd.Flags().GetInt("searches")
	}
	if cmd.Flags().Changed("top-k") {
		cfg.Search.TopK, _ = cmd.Flags().GetInt("top-k")
	}
}

// parseAsOf reads the --as-of flag. Empty means now.
func parseAsOf(cmd *cobra.Command) (time.Time, error) {
	s, _ := cmd.Flags().GetString("as-of")
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, types.Invalid(fmt.Errorf("--as-of %q: expected YYYY-MM-DD", s))
	}
	return t, nil
}

func newInvoker(cfg types.PipelineConfig) (*llm.Model, error) {
	m, err := llm.NewModel(cfg.AI, logger())
	if err != nil {
		return nil, fmt.Errorf("creating language model: %w", err)
	}
	return m, nil
}

func newProvider(cfg types.PipelineConfig) (*search.ExaProvider, error) {
	if cfg.Search.APIKey == "" {
		return nil, fmt.Errorf("search API key required: set %s or .secrets/%s", secrets.ExaAPIKey.Env, secrets.ExaAPIKey.File)
	}
	return search.NewExaProvider(cfg.Search), nil
}

func openArchive(cfg types.PipelineConfig) (*archive.Store, error) {
	store, err := archive.Open(cfg.Archive.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return store, nil
}

// questionArg joins positional arguments into one question.
func questionArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
