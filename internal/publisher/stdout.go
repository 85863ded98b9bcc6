package publisher

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ryosukesatoh/daily-brief/internal/report"
)

const lineWidth = 72

// StdoutPublisher prints the report as wrapped terminal text.
type StdoutPublisher struct {
	w io.Writer
}

// NewWriterPublisher prints to w, usually the command's stdout.
func NewWriterPublisher(w io.Writer) *StdoutPublisher {
	return &StdoutPublisher{w: w}
}

func (p *StdoutPublisher) Publish(_ context.Context, r *report.Report) error {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", lineWidth) + "\n")
	sb.WriteString(runewidth.Truncate(r.Title(), lineWidth, "...") + "\n")
	sb.WriteString(strings.Repeat("=", lineWidth) + "\n\n")

	for _, e := range r.Entries {
		if e.Topic != "" {
			sb.WriteString(e.Topic + "\n")
			sb.WriteString(strings.Repeat("-", runewidth.StringWidth(e.Topic)) + "\n")
		}
		for i, h := range e.Headlines {
			fmt.Fprintf(&sb, "%2d. %s\n", i+1, runewidth.Truncate(h.Title, lineWidth-4, "..."))
			fmt.Fprintf(&sb, "    %s\n", h.URL)
		}
		sb.WriteString("\n")
		for _, para := range strings.Split(e.Summary.Text, "\n") {
			sb.WriteString(wrapWords(para, lineWidth) + "\n")
		}
		sb.WriteString("\n")
	}

	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "! %s\n", w.Message)
	}
	sb.WriteString(strings.Repeat("=", lineWidth) + "\n")

	_, err := io.WriteString(p.w, sb.String())
	if err != nil {
		return fmt.Errorf("stdout: write failed: %w", err)
	}
	return nil
}

// wrapWords breaks s between words so lines fit in width terminal cells.
// A single word wider than width is cut by runewidth.
func wrapWords(s string, width int) string {
	var lines []string
	var line strings.Builder
	lineW := 0
	for _, word := range strings.Fields(s) {
		ww := runewidth.StringWidth(word)
		if ww > width {
			// The first cut is full width, so it starts its own line.
			if lineW > 0 {
				lines = append(lines, line.String())
				line.Reset()
			}
			word = runewidth.Wrap(word, width)
			line.WriteString(word)
			lineW = runewidth.StringWidth(word[strings.LastIndex(word, "\n")+1:])
			continue
		}
		if lineW > 0 && lineW+1+ww > width {
			lines = append(lines, line.String())
			line.Reset()
			lineW = 0
		}
		if lineW > 0 {
			line.WriteByte(' ')
			lineW++
		}
		line.WriteString(word)
		lineW += ww
	}
	lines = append(lines, line.String())
	return strings.Join(lines, "\n")
}
