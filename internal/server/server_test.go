package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"github.com/ryosukesatoh/daily-brief/internal/config"
	"github.com/ryosukesatoh/daily-brief/internal/exporter"
	"github.com/ryosukesatoh/daily-brief/internal/fetcher"
	"github.com/ryosukesatoh/daily-brief/internal/report"
	"github.com/ryosukesatoh/daily-brief/internal/runner"
	"github.com/ryosukesatoh/daily-brief/internal/summarizer"
)

type fakePipeline struct {
	report *report.Report
	err    error
	reqs   []runner.Request
}

func (f *fakePipeline) Run(ctx context.Context, req runner.Request) (*report.Report, error) {
	f.reqs = append(f.reqs, req)
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, runner.ErrMissingCredential
	}
	return f.report, f.err
}

type fakeLatest struct {
	report *report.Report
}

func (f *fakeLatest) Latest() *report.Report {
	return f.report
}

func sampleReport() *report.Report {
	r := report.New(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
	r.AddEntry(report.Entry{
		Topic:     "Science",
		Headlines: []fetcher.Headline{{Title: "Comet spotted", URL: "https://example.com/comet"}},
		Summary:   summarizer.Summary{Topic: "Science", Text: "A comet was spotted."},
	})
	r.AddWarning("Sports", "No news found for Sports")
	return r
}

func newTestRouter(t *testing.T, p Pipeline, latest LatestSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Timezone = "UTC"
	s, err := New(cfg, p, exporter.NewPDFExporter(), latest)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return s.Router()
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestIndex(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, true, strings.Contains(body, `type="password" name="api_key"`))
	assert.Equal(t, true, strings.Contains(body, `value="Entertainment"`))
	assert.Equal(t, true, strings.Contains(body, `min="3" max="15" value="7"`))
}

func TestBrief_RendersReport(t *testing.T) {
	p := &fakePipeline{report: sampleReport()}
	r := newTestRouter(t, p, nil)

	w := postForm(r, "/brief", url.Values{
		"api_key":  {"sk-test"},
		"articles": {"5"},
		"date":     {"2025-04-02"},
		"topics":   {"Science", "Sports"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, true, strings.Contains(body, "Daily News Summary - April 02, 2025"))
	assert.Equal(t, true, strings.Contains(body, "A comet was spotted."))
	assert.Equal(t, true, strings.Contains(body, "No news found for Sports"))
	assert.Equal(t, true, strings.Contains(body, `action="/export"`))
	assert.Equal(t, false, strings.Contains(body, "sk-test"))

	assert.Equal(t, 1, len(p.reqs))
	assert.Equal(t, "sk-test", p.reqs[0].APIKey)
	assert.Equal(t, 5, p.reqs[0].MaxResults)
	assert.Equal(t, []string{"Science", "Sports"}, p.reqs[0].Topics)
	assert.Equal(t, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), p.reqs[0].Date)
}

func TestBrief_MissingCredential(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{report: sampleReport()}, nil)

	w := postForm(r, "/brief", url.Values{"articles": {"5"}})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, true, strings.Contains(w.Body.String(), "Please enter your API key"))
}

func TestBrief_DefaultsArticles(t *testing.T) {
	p := &fakePipeline{report: sampleReport()}
	r := newTestRouter(t, p, nil)

	postForm(r, "/brief", url.Values{"api_key": {"k"}})

	assert.Equal(t, 7, p.reqs[0].MaxResults)
	assert.Equal(t, true, p.reqs[0].Date.IsZero())
}

func TestAPIBrief_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		header map[string]string
		body   string
		status int
	}{
		{
			name:   "ok with header key",
			header: map[string]string{"X-API-Key": "k"},
			body:   `{"articles": 5}`,
			status: http.StatusOK,
		},
		{
			name:   "ok with bearer token",
			header: map[string]string{"Authorization": "Bearer k"},
			body:   `{}`,
			status: http.StatusOK,
		},
		{
			name:   "missing credential",
			body:   `{}`,
			status: http.StatusUnauthorized,
		},
		{
			name:   "rejected credential",
			header: map[string]string{"X-API-Key": "bad"},
			err:    &summarizer.SummarizationError{Provider: "openai", StatusCode: 401, Err: summarizer.ErrAuthentication},
			body:   `{}`,
			status: http.StatusUnauthorized,
		},
		{
			name:   "invalid request",
			header: map[string]string{"X-API-Key": "k"},
			err:    runner.ErrInvalidRequest,
			body:   `{"articles": 99}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad date",
			header: map[string]string{"X-API-Key": "k"},
			body:   `{"date": "04/02/2025"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "summarization failure",
			header: map[string]string{"X-API-Key": "k"},
			err:    &summarizer.SummarizationError{Provider: "openai", StatusCode: 500, Err: errors.New("boom")},
			body:   `{}`,
			status: http.StatusBadGateway,
		},
		{
			name:   "malformed body",
			header: map[string]string{"X-API-Key": "k"},
			body:   `{`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, &fakePipeline{report: sampleReport(), err: tt.err}, nil)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/brief", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAPIBrief_ReturnsReport(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{report: sampleReport()}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/brief", strings.NewReader(`{"topics": ["Science"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "k")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res report.Report
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 1, len(res.Entries))
	assert.Equal(t, "Science", res.Entries[0].Topic)
	assert.Equal(t, "Sports", res.Warnings[0].Topic)
}

func TestExport_FormField(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{}, nil)
	data, _ := json.Marshal(sampleReport())

	w := postForm(r, "/export", url.Values{"report": {string(data)}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="news_summary_2025-04-02.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, true, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestExport_JSONBody(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{}, nil)
	data, _ := json.Marshal(sampleReport())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/export", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestExport_EmptyReportFails(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{}, nil)
	data, _ := json.Marshal(report.New(time.Now()))

	w := postForm(r, "/export", url.Values{"report": {string(data)}})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "", w.Header().Get("Content-Disposition"))
}

func TestExport_InvalidReport(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{}, nil)

	w := postForm(r, "/export", url.Values{"report": {"not json"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTopics(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/topics", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Topics   []string       `json:"topics"`
		Articles map[string]int `json:"articles"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, config.DefaultTopics, res.Topics)
	assert.Equal(t, 3, res.Articles["min"])
	assert.Equal(t, 15, res.Articles["max"])
}

func TestLatest(t *testing.T) {
	latest := &fakeLatest{}
	r := newTestRouter(t, &fakePipeline{}, latest)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/latest", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	latest.report = sampleReport()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/latest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &fakePipeline{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"status":"ok"}`, w.Body.String())
}
