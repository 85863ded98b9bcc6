package report

import (
	"time"

	"github.com/ryosukesatoh/daily-brief/internal/fetcher"
	"github.com/ryosukesatoh/daily-brief/internal/summarizer"
)

// Entry is one summarized group of headlines. Topic is empty in single-query mode.
type Entry struct {
	Topic     string             `json:"topic"`
	Headlines []fetcher.Headline `json:"headlines"`
	Summary   summarizer.Summary `json:"summary"`
}

// Warning marks a topic that produced no entry.
type Warning struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

// Report is the result of one pipeline run.
type Report struct {
	Date     time.Time `json:"date"`
	Entries  []Entry   `json:"entries"`
	Warnings []Warning `json:"warnings,omitempty"`
}

func New(date time.Time) *Report {
	return &Report{Date: date, Entries: []Entry{}}
}

func (r *Report) AddEntry(e Entry) {
	r.Entries = append(r.Entries, e)
}

func (r *Report) AddWarning(topic, message string) {
	r.Warnings = append(r.Warnings, Warning{Topic: topic, Message: message})
}

// Single reports whether the run used the default query instead of topics.
func (r *Report) Single() bool {
	return len(r.Entries) == 1 && r.Entries[0].Topic == ""
}

// Topics returns the entry topics in report order.
func (r *Report) Topics() []string {
	topics := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		topics = append(topics, e.Topic)
	}
	return topics
}

func (r *Report) Empty() bool {
	return len(r.Entries) == 0
}

func (r *Report) Title() string {
	return "Daily News Summary - " + r.Date.Format("January 02, 2006")
}

func (r *Report) FileName() string {
	return "news_summary_" + r.Date.Format("2006-01-02") + ".pdf"
}
