package publisher

import (
	"context"

	"github.com/ryosukesatoh/daily-brief/internal/report"
)

// Publisher delivers a finished report to some output destination.
type Publisher interface {
	Publish(ctx context.Context, r *report.Report) error
}
