package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ryosukesatoh/daily-brief/internal/config"
	"github.com/ryosukesatoh/daily-brief/internal/retry"
)

// Headline is a single search result reduced to a title and a link.
type Headline struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// String renders the headline the way it is shown to users and to the model.
func (h Headline) String() string {
	return h.Title + " - " + h.URL
}

// Recency is a coarse backend-side time window.
type Recency int

const (
	// RecencyNone requests results from any time.
	RecencyNone Recency = iota
	// RecencyToday requests the backend's day bucket.
	RecencyToday
)

func (r Recency) String() string {
	switch r {
	case RecencyToday:
		return "today"
	default:
		return "none"
	}
}

// Fetcher retrieves headlines for a query from a web search backend.
//
// Backends only expose coarse time buckets, so RecencyToday means "past day"
// and RecencyNone means unrestricted. A date in the past cannot be expressed.
type Fetcher interface {
	Fetch(ctx context.Context, query string, maxResults int, recency Recency) ([]Headline, error)
}

// New creates a fetcher for the configured search backend.
func New(cfg config.SearchConfig) (Fetcher, error) {
	switch cfg.Backend {
	case "duckduckgo":
		return NewDuckDuckGoFetcher(cfg), nil
	case "googlenews":
		return NewGoogleNewsFetcher(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}

// FetchError reports a search backend failure.
type FetchError struct {
	Backend    string
	Query      string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: search %q failed: status %d", e.Backend, e.Query, e.StatusCode)
	}
	return fmt.Sprintf("%s: search %q failed: %v", e.Backend, e.Query, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request could succeed.
func (e *FetchError) Retryable() bool {
	if e.StatusCode != 0 {
		return retry.HTTPStatusRetryable(e.StatusCode)
	}
	return !errors.Is(e.Err, ErrMalformedResponse)
}

// ErrMalformedResponse is wrapped by FetchError when a backend answers with
// something that cannot be parsed.
var ErrMalformedResponse = errors.New("malformed search response")

// ErrUnsupportedBackend is returned when an unknown backend is configured.
var ErrUnsupportedBackend = errors.New("unsupported search backend")

// record is one backend result before validation.
type record struct {
	Title string
	URL   string
}

// pageFunc returns the next page of backend records. more is false once the
// backend has nothing further to offer.
type pageFunc func(ctx context.Context) (records []record, more bool, err error)

// collect walks pages in order and keeps valid records until maxResults are
// gathered. Pages after the one that fills the cap are never requested.
func collect(ctx context.Context, maxResults int, next pageFunc) ([]Headline, error) {
	headlines := make([]Headline, 0, maxResults)
	for {
		records, more, err := next(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			title := strings.TrimSpace(rec.Title)
			link := strings.TrimSpace(rec.URL)
			if title == "" || link == "" {
				continue
			}
			headlines = append(headlines, Headline{Title: title, URL: link})
			if len(headlines) >= maxResults {
				return headlines, nil
			}
		}
		if !more {
			return headlines, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func checkMax(maxResults int) error {
	if maxResults < 1 {
		return fmt.Errorf("fetcher: max results must be at least 1, got %d", maxResults)
	}
	return nil
}
