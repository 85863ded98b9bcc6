package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ryosukesatoh/daily-brief/internal/report"
	"github.com/ryosukesatoh/daily-brief/internal/retry"
)

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// webhookError is a non-2xx webhook response.
type webhookError struct {
	StatusCode int
}

func (e *webhookError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *webhookError) Retryable() bool {
	return retry.HTTPStatusRetryable(e.StatusCode)
}

// DiscordPublisher posts reports to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
	batchDelay  time.Duration
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 3,
			BaseDelay:  1 * time.Second,
		},
		batchDelay: 500 * time.Millisecond,
	}
}

// Publish sends the report as a title embed followed by one embed per topic.
func (d *DiscordPublisher) Publish(ctx context.Context, r *report.Report) error {
	batches := batchEmbeds(buildEmbeds(r))

	for i, batch := range batches {
		err := retry.WithBackoff(ctx, d.retryConfig, func(ctx context.Context) error {
			return d.sendWebhook(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("discord: failed to send batch %d: %w", i+1, err)
		}

		// Delay between batches to avoid rate limits.
		if i < len(batches)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.batchDelay):
			}
		}
	}
	return nil
}

func buildEmbeds(r *report.Report) []discordEmbed {
	embeds := make([]discordEmbed, 0, len(r.Entries)+1)

	title := discordEmbed{
		Title:     r.Title(),
		Color:     0x5865F2, // Discord blurple
		Footer:    &discordEmbedFooter{Text: r.Date.Format("2006-01-02")},
		Timestamp: r.Date.Format(time.RFC3339),
	}
	if len(r.Warnings) > 0 {
		msgs := make([]string, len(r.Warnings))
		for i, w := range r.Warnings {
			msgs[i] = w.Message
		}
		title.Description = truncate(strings.Join(msgs, "\n"), 4096)
	}
	embeds = append(embeds, title)

	for _, e := range r.Entries {
		name := e.Topic
		if name == "" {
			name = "Summary"
		}
		embed := discordEmbed{
			Title:       truncate(name, 256),
			Description: truncate(e.Summary.Text, 4096),
			Color:       0x5865F2,
		}
		if len(e.Headlines) > 0 {
			embed.Fields = []discordEmbedField{{
				Name:  "Headlines",
				Value: truncate(formatHeadlines(e), 1024),
			}}
		}
		embeds = append(embeds, embed)
	}

	return embeds
}

// batchEmbeds splits embeds into batches respecting Discord limits:
// max 10 embeds per message, max 6000 total characters per message.
func batchEmbeds(embeds []discordEmbed) [][]discordEmbed {
	var batches [][]discordEmbed
	var current []discordEmbed
	currentChars := 0

	for _, e := range embeds {
		ec := embedCharCount(e)

		if len(current) > 0 && (len(current) >= 10 || currentChars+ec > 6000) {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}

		current = append(current, e)
		currentChars += ec
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

func (d *DiscordPublisher) sendWebhook(ctx context.Context, embeds []discordEmbed) error {
	body, err := json.Marshal(discordWebhookPayload{Embeds: embeds})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &webhookError{StatusCode: resp.StatusCode}
	}
	return nil
}

// truncate shortens s to max bytes, preferring a sentence boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := strings.ToValidUTF8(s[:max-3], "")
	if idx := strings.LastIndexAny(cut, ".!?"); idx > max/2 {
		return cut[:idx+1]
	}
	return cut + "…"
}

// formatHeadlines renders headlines as a bulleted list of markdown links.
func formatHeadlines(e report.Entry) string {
	var b strings.Builder
	for i, h := range e.Headlines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• [%s](%s)", h.Title, h.URL)
	}
	return b.String()
}

// embedCharCount returns the total character count of an embed for batching purposes.
func embedCharCount(e discordEmbed) int {
	n := len(e.Title) + len(e.Description)
	for _, f := range e.Fields {
		n += len(f.Name) + len(f.Value)
	}
	if e.Footer != nil {
		n += len(e.Footer.Text)
	}
	return n
}
