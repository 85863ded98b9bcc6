package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ryosukesatoh/daily-brief/internal/config"
)

const googleNewsURL = "https://news.google.com/rss/search"

// GoogleNewsFetcher searches Google News through its RSS search feed.
type GoogleNewsFetcher struct {
	parser  *gofeed.Parser
	baseURL string
	locale  config.LocaleConfig
}

func NewGoogleNewsFetcher(cfg config.SearchConfig) *GoogleNewsFetcher {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleNewsURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "daily-brief/1.0"
	return &GoogleNewsFetcher{
		parser:  parser,
		baseURL: baseURL,
		locale:  cfg.Locale,
	}
}

func (f *GoogleNewsFetcher) Fetch(ctx context.Context, query string, maxResults int, recency Recency) ([]Headline, error) {
	if err := checkMax(maxResults); err != nil {
		return nil, err
	}

	q := query
	if recency == RecencyToday {
		q += " when:1d"
	}
	params := url.Values{}
	params.Set("q", q)
	if f.locale.HL != "" {
		params.Set("hl", f.locale.HL)
	}
	if f.locale.GL != "" {
		params.Set("gl", f.locale.GL)
	}
	if f.locale.CEID != "" {
		params.Set("ceid", f.locale.CEID)
	}
	reqURL := fmt.Sprintf("%s?%s", f.baseURL, params.Encode())

	// The feed is a single page.
	next := func(ctx context.Context) ([]record, bool, error) {
		feed, err := f.parser.ParseURLWithContext(reqURL, ctx)
		if err != nil {
			return nil, false, googleNewsError(query, err)
		}
		records := make([]record, 0, len(feed.Items))
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			records = append(records, record{Title: item.Title, URL: item.Link})
		}
		return records, false, nil
	}

	return collect(ctx, maxResults, next)
}

func googleNewsError(query string, err error) *FetchError {
	fe := &FetchError{Backend: "googlenews", Query: query, Err: err}
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		fe.StatusCode = httpErr.StatusCode
	}
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		fe.Err = fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return fe
}
