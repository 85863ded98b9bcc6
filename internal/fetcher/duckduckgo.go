package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ryosukesatoh/daily-brief/internal/config"
)

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

var safeSearchParams = map[string]string{
	"strict":   "1",
	"moderate": "-1",
	"off":      "-2",
}

// DuckDuckGoFetcher searches the DuckDuckGo HTML endpoint.
type DuckDuckGoFetcher struct {
	client     *http.Client
	baseURL    string
	region     string
	safeSearch string
	maxPages   int
	userAgent  string
}

func NewDuckDuckGoFetcher(cfg config.SearchConfig) *DuckDuckGoFetcher {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = duckDuckGoURL
	}
	safe, ok := safeSearchParams[cfg.SafeSearch]
	if !ok {
		safe = safeSearchParams["moderate"]
	}
	maxPages := cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &DuckDuckGoFetcher{
		client:     &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		region:     cfg.Region,
		safeSearch: safe,
		maxPages:   maxPages,
		userAgent:  "Mozilla/5.0 (compatible; daily-brief/1.0)",
	}
}

func (f *DuckDuckGoFetcher) Fetch(ctx context.Context, query string, maxResults int, recency Recency) ([]Headline, error) {
	if err := checkMax(maxResults); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)
	form.Set("kl", f.region)
	form.Set("kp", f.safeSearch)
	if recency == RecencyToday {
		form.Set("df", "d")
	}

	pages := 0
	next := func(ctx context.Context) ([]record, bool, error) {
		pages++
		records, nextForm, err := f.page(ctx, query, form)
		if err != nil {
			return nil, false, err
		}
		form = nextForm
		return records, nextForm != nil && pages < f.maxPages, nil
	}

	return collect(ctx, maxResults, next)
}

// page posts one search form and returns its results plus the form for the
// following page, or nil when there is none.
func (f *DuckDuckGoFetcher) page(ctx context.Context, query string, form url.Values) ([]record, url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("duckduckgo: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, &FetchError{Backend: "duckduckgo", Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &FetchError{Backend: "duckduckgo", Query: query, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, &FetchError{
			Backend: "duckduckgo",
			Query:   query,
			Err:     fmt.Errorf("%w: %v", ErrMalformedResponse, err),
		}
	}

	return parseResults(doc), parseNextForm(doc), nil
}

func parseResults(doc *goquery.Document) []record {
	var records []record
	doc.Find("div.result").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		a := s.Find("a.result__a").First()
		href, _ := a.Attr("href")
		records = append(records, record{
			Title: a.Text(),
			URL:   resolveLink(href),
		})
	})
	return records
}

func parseNextForm(doc *goquery.Document) url.Values {
	var next url.Values
	doc.Find("div.nav-link form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Find(`input[type="submit"]`).Attr("value")
		if !strings.EqualFold(strings.TrimSpace(label), "next") {
			return true
		}
		next = url.Values{}
		s.Find(`input[type="hidden"]`).Each(func(_ int, in *goquery.Selection) {
			name, ok := in.Attr("name")
			if !ok || name == "" {
				return
			}
			value, _ := in.Attr("value")
			next.Set(name, value)
		})
		return false
	})
	return next
}

// resolveLink unwraps DuckDuckGo redirect links and drops anything that is
// not an absolute http(s) URL.
func resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if (u.Host == "" || strings.HasSuffix(u.Host, "duckduckgo.com")) && u.Path == "/l/" {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		return resolveLink(target)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
