// Package oracle provides clients for the external judgment service: the
// language model asked to rule on an invoice. Callers must treat every
// invocation as fallible and never let an oracle failure escape an audit.
package oracle

import (
	"context"
	"fmt"
	"time"
)

// Oracle is the judgment capability consumed by the audit pipeline.
type Oracle interface {
	// Invoke sends a judgment prompt and returns the raw model output.
	Invoke(ctx context.Context, prompt string) (string, error)

	// Name identifies the backing model for logs.
	Name() string
}

// Config selects and configures an oracle backend.
type Config struct {
	Provider string // "ollama" or "gemini"
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  string
}

// New creates an oracle client from configuration.
func New(cfg Config) (Oracle, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: parseTimeout(cfg.Timeout),
		}), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini oracle requires an API key")
		}
		return NewGeminiClient(GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: parseTimeout(cfg.Timeout),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}

// parseTimeout parses a duration string, returning zero (meaning "use the
// client default") when it is empty or malformed.
func parseTimeout(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
