package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIProvider names a language-model backend.
type AIProvider string

const (
	ProviderAnthropic AIProvider = "anthropic"
	ProviderOpenAI    AIProvider = "openai"
	ProviderOllama    AIProvider = "ollama"
)

// AIConfig holds shared settings for stages that call a language model.
type AIConfig struct {
	// Provider selects the backend: anthropic, openai, or ollama.
	Provider AIProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible proxies, Ollama host).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// PlannerConfig holds settings for the query planning stage.
type PlannerConfig struct {
	// SearchCount is how many search inputs to request (default 2).
	SearchCount int `json:"search_count" yaml:"search_count" mapstructure:"search_count"`

	// Temperature is passed to the language model.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxAttempts bounds planning attempts (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay scales the linear backoff between attempts (default 2s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey authenticates against the search provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// ResultsPerSearch is the number of pages requested per query (default 10).
	ResultsPerSearch int `json:"results_per_search" yaml:"results_per_search" mapstructure:"results_per_search"`

	// HighlightsPerURL is the number of excerpts requested per page (default 1).
	HighlightsPerURL int `json:"highlights_per_url" yaml:"highlights_per_url" mapstructure:"highlights_per_url"`

	// SentencesPerHighlight is the excerpt length in sentences (default 4).
	SentencesPerHighlight int `json:"sentences_per_highlight" yaml:"sentences_per_highlight" mapstructure:"sentences_per_highlight"`

	// TopK is how many quotes survive ranking (default 10).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// MaxAttempts bounds whole-batch retries (default 7).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryDelay scales the linear backoff between batches (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// RequestsPerSecond throttles provider calls; zero disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ReportConfig holds settings for report compilation and citation linking.
type ReportConfig struct {
	// Mode selects raw evidence output or a compiled report.
	Mode OutputMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Temperature is passed to the language model.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// IncludeWorksCited appends a works-cited section before linking.
	IncludeWorksCited bool `json:"include_works_cited" yaml:"include_works_cited" mapstructure:"include_works_cited"`

	// Brackets wraps each citation link in escaped brackets: \[[1](url)\].
	Brackets bool `json:"brackets" yaml:"brackets" mapstructure:"brackets"`

	// MaxAttempts bounds compilation attempts on provider failure (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryDelay scales the linear backoff between attempts (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
}

// RouterConfig holds settings for strategy selection.
type RouterConfig struct {
	// MaxAttempts bounds classification attempts on provider failure (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryDelay scales the linear backoff between attempts (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
}

// ArchiveConfig holds settings for the CLI run archive.
type ArchiveConfig struct {
	// Dir contains the archive database (archive.db).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// File, when set, receives a JSON copy of every log record.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	AI      AIConfig      `json:"ai" yaml:"ai" mapstructure:"ai"`
	Planner PlannerConfig `json:"planner" yaml:"planner" mapstructure:"planner"`
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	Report  ReportConfig  `json:"report" yaml:"report" mapstructure:"report"`
	Router  RouterConfig  `json:"router" yaml:"router" mapstructure:"router"`
	Archive ArchiveConfig `json:"archive" yaml:"archive" mapstructure:"archive"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultPipelineConfig returns the settings used when nothing is configured.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		AI: AIConfig{
			Provider: ProviderAnthropic,
			Model:    "claude-sonnet-4-5-20250929",
		},
		Planner: PlannerConfig{
			SearchCount: 2,
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: "evidence-engine/0.1",
			},
			ResultsPerSearch:      10,
			HighlightsPerURL:      1,
			SentencesPerHighlight: 4,
			TopK:                  10,
			MaxAttempts:           7,
			RetryDelay:            2 * time.Second,
		},
		Report: ReportConfig{
			Mode:        ModeRaw,
			Brackets:    true,
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
		},
		Router: RouterConfig{
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
		},
		Archive: ArchiveConfig{
			Dir: "archive",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
