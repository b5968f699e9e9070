// Package llm adapts language-model providers to the single-prompt Invoker
// interface the pipeline stages consume.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Invoker sends one prompt to a language model and returns its text.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, temperature float64) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, prompt string, temperature float64) (string, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, prompt string, temperature float64) (string, error) {
	return f(ctx, prompt, temperature)
}

// ErrFatalAPI marks provider errors that retrying cannot fix (bad key,
// exhausted credit). Stages stop retrying when they see it.
var ErrFatalAPI = errors.New("fatal API error")

// Model wraps a langchaingo model.
type Model struct {
	llm       llms.Model
	modelName string
	logger    *slog.Logger
}

// NewModel creates a Model for the configured provider.
func NewModel(cfg types.AIConfig, logger *slog.Logger) (*Model, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case types.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		opts := []anthropic.Option{
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err = anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case types.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case types.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q (valid: anthropic, openai, ollama)", cfg.Provider)
	}

	return newFromModel(model, cfg.Model, logger), nil
}

func newFromModel(model llms.Model, name string, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{llm: model, modelName: name, logger: logger}
}

// Invoke sends prompt as a single human message.
func (m *Model) Invoke(ctx context.Context, prompt string, temperature float64) (string, error) {
	m.logger.Debug("invoking model", "model", m.modelName, "prompt_len", len(prompt), "temperature", temperature)

	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt, llms.WithTemperature(temperature))
	duration := time.Since(start)

	if err != nil {
		m.logger.Warn("model call failed", "model", m.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return "", wrapFatalError(fmt.Errorf("generate: %w", err))
	}

	m.logger.Debug("model call complete", "model", m.modelName, "duration_ms", duration.Milliseconds(), "response_len", len(text))
	return text, nil
}

// Name returns the model identifier.
func (m *Model) Name() string {
	return m.modelName
}

var fatalMarkers = []string{
	"credit balance",
	"quota exceeded",
	"billing",
	"invalid api key",
	"invalid x-api-key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func wrapFatalError(err error) error {
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %w", ErrFatalAPI, err)
	}
	return err
}
