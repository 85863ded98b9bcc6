package publisher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ryosukesatoh/daily-brief/internal/report"
)

// LatestPublisher keeps the most recent report in memory for the web server.
type LatestPublisher struct {
	mu     sync.RWMutex
	latest *report.Report
}

func NewLatestPublisher() *LatestPublisher {
	return &LatestPublisher{}
}

func (p *LatestPublisher) Publish(_ context.Context, r *report.Report) error {
	p.mu.Lock()
	p.latest = r
	p.mu.Unlock()
	slog.Info("latest report updated", "date", r.Date.Format("2006-01-02"), "entries", len(r.Entries))
	return nil
}

// Latest returns the last published report, or nil if none has been published.
func (p *LatestPublisher) Latest() *report.Report {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}
