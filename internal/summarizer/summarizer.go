package summarizer

import (
	"fmt"

	"github.com/ryosukesatoh/daily-brief/internal/config"
)

// New creates a new summarizer based on the configuration
func New(cfg config.SummarizerConfig) (Summarizer, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAISummarizer(cfg.Model, cfg.MaxTokens, cfg.BaseURL, cfg.Timeout), nil
	case "anthropic":
		return NewAnthropicSummarizer(cfg.Model, cfg.MaxTokens, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
