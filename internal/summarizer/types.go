package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ryosukesatoh/daily-brief/internal/fetcher"
	"github.com/ryosukesatoh/daily-brief/internal/retry"
)

// Temperature is the sampling temperature used for every summary request.
const Temperature = 0.7

// Summary is the model's brief for one group of headlines.
type Summary struct {
	Topic string `json:"topic,omitempty"`
	Text  string `json:"text"`
}

// Summarizer turns headlines into a free-text summary. The API key is passed
// on every call and never retained.
type Summarizer interface {
	Summarize(ctx context.Context, headlines []fetcher.Headline, topic, apiKey string) (*Summary, error)
}

var (
	// ErrAuthentication means the credential was missing or the backend rejected it.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNoHeadlines is returned when there is nothing to summarize.
	ErrNoHeadlines = errors.New("no headlines to summarize")
	// ErrEmptyCompletion is returned when the backend answers without text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrUnsupportedProvider is returned when an unknown provider is configured.
	ErrUnsupportedProvider = errors.New("unsupported summarizer provider")
)

// SummarizationError reports a failed completion request.
type SummarizationError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *SummarizationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: summarization failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: summarization failed: %v", e.Provider, e.Err)
}

func (e *SummarizationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request could succeed.
func (e *SummarizationError) Retryable() bool {
	switch {
	case errors.Is(e.Err, ErrAuthentication), errors.Is(e.Err, ErrEmptyCompletion):
		return false
	case e.StatusCode == 0:
		return !errors.Is(e.Err, context.Canceled)
	default:
		return retry.HTTPStatusRetryable(e.StatusCode)
	}
}

// newAPIError tags a backend error, marking rejected credentials.
func newAPIError(provider string, status int, err error) *SummarizationError {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		err = fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return &SummarizationError{Provider: provider, StatusCode: status, Err: err}
}
