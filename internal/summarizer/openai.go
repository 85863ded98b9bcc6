package summarizer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ryosukesatoh/daily-brief/internal/fetcher"
)

// OpenAISummarizer uses the OpenAI Chat Completions API.
type OpenAISummarizer struct {
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

func NewOpenAISummarizer(model string, maxTokens int, baseURL string, timeout time.Duration) *OpenAISummarizer {
	return &OpenAISummarizer{
		model:     model,
		maxTokens: maxTokens,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, headlines []fetcher.Headline, topic, apiKey string) (*Summary, error) {
	if len(headlines) == 0 {
		return nil, ErrNoHeadlines
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, &SummarizationError{Provider: "openai", Err: ErrAuthentication}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(s.client),
		option.WithMaxRetries(0),
	}
	if s.baseURL != "" {
		opts = append(opts, option.WithBaseURL(s.baseURL))
	}
	client := openai.NewClient(opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(headlines, topic)),
		},
		Temperature: openai.Float(Temperature),
		MaxTokens:   openai.Int(int64(s.maxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, newAPIError("openai", apiErr.StatusCode, err)
		}
		return nil, &SummarizationError{Provider: "openai", Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &SummarizationError{Provider: "openai", Err: ErrEmptyCompletion}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, &SummarizationError{Provider: "openai", Err: ErrEmptyCompletion}
	}

	return &Summary{Topic: topic, Text: text}, nil
}
