package summarizer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ryosukesatoh/daily-brief/internal/fetcher"
)

// AnthropicSummarizer uses the Anthropic Messages API.
type AnthropicSummarizer struct {
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

func NewAnthropicSummarizer(model string, maxTokens int, baseURL string, timeout time.Duration) *AnthropicSummarizer {
	return &AnthropicSummarizer{
		model:     model,
		maxTokens: maxTokens,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *AnthropicSummarizer) Summarize(ctx context.Context, headlines []fetcher.Headline, topic, apiKey string) (*Summary, error) {
	if len(headlines) == 0 {
		return nil, ErrNoHeadlines
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, &SummarizationError{Provider: "anthropic", Err: ErrAuthentication}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(s.client),
		option.WithMaxRetries(0),
	}
	if s.baseURL != "" {
		opts = append(opts, option.WithBaseURL(s.baseURL))
	}
	client := anthropic.NewClient(opts...)

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(s.model),
		MaxTokens:   int64(s.maxTokens),
		Temperature: anthropic.Float(Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(headlines, topic))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, newAPIError("anthropic", apiErr.StatusCode, err)
		}
		return nil, &SummarizationError{Provider: "anthropic", Err: err}
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = strings.TrimSpace(block.Text)
			break
		}
	}
	if text == "" {
		return nil, &SummarizationError{Provider: "anthropic", Err: ErrEmptyCompletion}
	}

	return &Summary{Topic: topic, Text: text}, nil
}
