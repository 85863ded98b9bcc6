package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ryosukesatoh/daily-brief/internal/config"
	"github.com/ryosukesatoh/daily-brief/internal/fetcher"
	"github.com/ryosukesatoh/daily-brief/internal/publisher"
	"github.com/ryosukesatoh/daily-brief/internal/report"
	"github.com/ryosukesatoh/daily-brief/internal/retry"
	"github.com/ryosukesatoh/daily-brief/internal/summarizer"
)

var (
	// ErrMissingCredential means no API key was supplied; nothing is run.
	ErrMissingCredential = errors.New("runner: missing API key")
	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("runner: invalid request")
)

// Request is one user-triggered run.
type Request struct {
	APIKey     string    `json:"-"`
	MaxResults int       `json:"max_results"`
	Date       time.Time `json:"date"`
	Topics     []string  `json:"topics"`
}

// TopicQuery is a single search to perform. Topic is empty for the default query.
type TopicQuery struct {
	Topic      string
	Query      string
	MaxResults int
	Recency    fetcher.Recency
}

// Runner orchestrates the fetch -> summarize -> aggregate pipeline.
type Runner struct {
	cfg        *config.Config
	fetcher    fetcher.Fetcher
	summarizer summarizer.Summarizer
	retry      retry.Config
	now        func() time.Time
}

func New(cfg *config.Config, f fetcher.Fetcher, s summarizer.Summarizer) *Runner {
	return &Runner{
		cfg:        cfg,
		fetcher:    f,
		summarizer: s,
		retry:      retry.FromConfig(cfg.Retry),
		now:        time.Now,
	}
}

// Validate checks the article cap and topic selection against the configuration.
func (r *Runner) Validate(req Request) error {
	if req.MaxResults < r.cfg.Articles.Min || req.MaxResults > r.cfg.Articles.Max {
		return fmt.Errorf("%w: articles must be between %d and %d, got %d",
			ErrInvalidRequest, r.cfg.Articles.Min, r.cfg.Articles.Max, req.MaxResults)
	}
	seen := make(map[string]bool, len(req.Topics))
	for _, topic := range req.Topics {
		if !slices.Contains(r.cfg.Topics, topic) {
			return fmt.Errorf("%w: unknown topic %q", ErrInvalidRequest, topic)
		}
		if seen[topic] {
			return fmt.Errorf("%w: duplicate topic %q", ErrInvalidRequest, topic)
		}
		seen[topic] = true
	}
	return nil
}

// Queries builds one query per selected topic, or the default query when none are selected.
func (r *Runner) Queries(req Request) []TopicQuery {
	recency := r.recency(req.Date)
	if len(req.Topics) == 0 {
		return []TopicQuery{{
			Query:      r.cfg.Search.DefaultQuery,
			MaxResults: req.MaxResults,
			Recency:    recency,
		}}
	}
	queries := make([]TopicQuery, 0, len(req.Topics))
	for _, topic := range req.Topics {
		queries = append(queries, TopicQuery{
			Topic:      topic,
			Query:      fmt.Sprintf("latest %s news", topic),
			MaxResults: req.MaxResults,
			Recency:    recency,
		})
	}
	return queries
}

// recency restricts to the past day only when the requested date is today.
// Search backends have no arbitrary-date filter, so a past date searches
// without restriction and returns recent results.
func (r *Runner) recency(date time.Time) fetcher.Recency {
	if date.IsZero() {
		return fetcher.RecencyToday
	}
	loc := r.cfg.Location()
	y1, m1, d1 := date.In(loc).Date()
	y2, m2, d2 := r.now().In(loc).Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return fetcher.RecencyToday
	}
	return fetcher.RecencyNone
}

// Run executes the pipeline once. Topics with no headlines, or whose search
// failed, become warnings. A summarization failure aborts the run.
func (r *Runner) Run(ctx context.Context, req Request) (*report.Report, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	if err := r.Validate(req); err != nil {
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = r.now()
	}
	date = date.In(r.cfg.Location())

	logger := slog.With("run_id", uuid.NewString())
	queries := r.Queries(req)
	logger.Info("starting pipeline", "queries", len(queries), "max_results", req.MaxResults, "date", date.Format(time.DateOnly))

	rep := report.New(date)
	for _, q := range queries {
		label := q.Topic
		if label == "" {
			label = q.Query
		}

		var headlines []fetcher.Headline
		err := retry.WithBackoff(ctx, r.retry, func(ctx context.Context) error {
			var err error
			headlines, err = r.fetcher.Fetch(ctx, q.Query, q.MaxResults, q.Recency)
			return err
		})
		if err != nil {
			// A cancelled run surfaces from the backend as a FetchError too.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("runner: fetch %q: %w", q.Query, ctx.Err())
			}
			var fe *fetcher.FetchError
			if !errors.As(err, &fe) {
				return nil, fmt.Errorf("runner: fetch %q: %w", q.Query, err)
			}
			logger.Warn("fetch failed", "topic", q.Topic, "error", err)
			rep.AddWarning(q.Topic, fmt.Sprintf("No news found for %s", label))
			continue
		}
		if len(headlines) == 0 {
			logger.Warn("no headlines found", "topic", q.Topic)
			rep.AddWarning(q.Topic, fmt.Sprintf("No news found for %s", label))
			continue
		}
		logger.Info("fetched headlines", "topic", q.Topic, "count", len(headlines))

		var summary *summarizer.Summary
		err = retry.WithBackoff(ctx, r.retry, func(ctx context.Context) error {
			var err error
			summary, err = r.summarizer.Summarize(ctx, headlines, q.Topic, req.APIKey)
			return err
		})
		if err != nil {
			logger.Error("summarization failed", "topic", q.Topic, "error", err)
			return nil, fmt.Errorf("runner: summarize %q: %w", label, err)
		}

		rep.AddEntry(report.Entry{Topic: q.Topic, Headlines: headlines, Summary: *summary})
	}

	logger.Info("pipeline completed", "entries", len(rep.Entries), "warnings", len(rep.Warnings))
	return rep, nil
}

// Deliver runs the pipeline and hands the report to every publisher,
// continuing past individual failures. It fails only if all publishers fail.
func (r *Runner) Deliver(ctx context.Context, req Request, pubs []publisher.Publisher) (*report.Report, error) {
	rep, err := r.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	var publishErrors []error
	for _, pub := range pubs {
		if err := pub.Publish(ctx, rep); err != nil {
			publishError := fmt.Errorf("publish via %T failed: %w", pub, err)
			publishErrors = append(publishErrors, publishError)
			slog.Warn("publisher failed", "publisher", fmt.Sprintf("%T", pub), "error", err)
		}
	}

	if len(publishErrors) == len(pubs) && len(pubs) > 0 {
		return rep, fmt.Errorf("runner: all publishers failed: %w", errors.Join(publishErrors...))
	}
	if len(publishErrors) > 0 {
		slog.Warn("delivery completed with publisher failures", "failed", len(publishErrors), "publishers", len(pubs))
	}
	return rep, nil
}
