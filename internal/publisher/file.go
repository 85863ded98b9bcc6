package publisher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ryosukesatoh/daily-brief/internal/exporter"
	"github.com/ryosukesatoh/daily-brief/internal/report"
)

// FilePublisher writes the exported PDF into a directory.
type FilePublisher struct {
	dir      string
	exporter *exporter.PDFExporter
}

func NewFilePublisher(dir string, e *exporter.PDFExporter) *FilePublisher {
	return &FilePublisher{dir: dir, exporter: e}
}

func (p *FilePublisher) Publish(_ context.Context, r *report.Report) error {
	doc, err := p.exporter.Export(r)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("file: failed to create %s: %w", p.dir, err)
	}

	path := filepath.Join(p.dir, r.FileName())
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("file: failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, doc); err != nil {
		return fmt.Errorf("file: failed to write %s: %w", path, err)
	}
	slog.Info("wrote report", "path", path)
	return f.Close()
}
