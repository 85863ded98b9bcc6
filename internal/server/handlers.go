package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ryosukesatoh/daily-brief/internal/exporter"
	"github.com/ryosukesatoh/daily-brief/internal/report"
	"github.com/ryosukesatoh/daily-brief/internal/runner"
	"github.com/ryosukesatoh/daily-brief/internal/summarizer"
)

var errBadDate = errors.New("date must be formatted as YYYY-MM-DD")

type briefForm struct {
	APIKey   string   `form:"api_key"`
	Articles int      `form:"articles"`
	Date     string   `form:"date"`
	Topics   []string `form:"topics"`
}

// BriefRequest is the JSON body of POST /api/brief.
type BriefRequest struct {
	Articles int      `json:"articles"`
	Date     string   `json:"date"`
	Topics   []string `json:"topics"`
}

type indexPage struct {
	Topics   []string
	Selected []string
	Min      int
	Max      int
	Articles int
	Date     string
	Error    string
}

type briefPage struct {
	Report     *report.Report
	ReportJSON string
}

// headerKey reads the credential from X-API-Key or a bearer token.
func headerKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader("X-API-Key")); k != "" {
		return k
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func (s *Server) request(apiKey string, articles int, date string, topics []string) (runner.Request, error) {
	req := runner.Request{APIKey: apiKey, MaxResults: articles, Topics: topics}
	if req.MaxResults == 0 {
		req.MaxResults = s.cfg.Articles.Default
	}
	if date = strings.TrimSpace(date); date != "" {
		d, err := time.ParseInLocation(time.DateOnly, date, s.cfg.Location())
		if err != nil {
			return req, fmt.Errorf("%w: %w", runner.ErrInvalidRequest, errBadDate)
		}
		req.Date = d
	}
	return req, nil
}

// statusFor maps pipeline and export errors to HTTP status codes.
func statusFor(err error) int {
	var se *summarizer.SummarizationError
	var ee *exporter.ExportError
	switch {
	case errors.Is(err, runner.ErrMissingCredential), errors.Is(err, summarizer.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, runner.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &se):
		return http.StatusBadGateway
	case errors.As(err, &ee):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown for a failed request.
func userMessage(err error) string {
	switch {
	case errors.Is(err, runner.ErrMissingCredential):
		return "Please enter your API key to generate a brief."
	case errors.Is(err, summarizer.ErrAuthentication):
		return "The API key was rejected by the summarization service."
	default:
		return err.Error()
	}
}

func (s *Server) indexPage(selected []string, articles int, date, errMsg string) indexPage {
	if articles == 0 {
		articles = s.cfg.Articles.Default
	}
	if date == "" {
		date = time.Now().In(s.cfg.Location()).Format(time.DateOnly)
	}
	return indexPage{
		Topics:   s.cfg.Topics,
		Selected: selected,
		Min:      s.cfg.Articles.Min,
		Max:      s.cfg.Articles.Max,
		Articles: articles,
		Date:     date,
		Error:    errMsg,
	}
}

func (s *Server) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.indexPage(nil, 0, "", ""))
}

func (s *Server) Brief(c *gin.Context) {
	var form briefForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "index.html", s.indexPage(nil, 0, "", "Invalid form: "+err.Error()))
		return
	}

	key := strings.TrimSpace(form.APIKey)
	if key == "" {
		key = headerKey(c)
	}

	rep, err := s.run(c, key, form.Articles, form.Date, form.Topics)
	if err != nil {
		c.HTML(statusFor(err), "index.html", s.indexPage(form.Topics, form.Articles, form.Date, userMessage(err)))
		return
	}

	data, err := json.Marshal(rep)
	if err != nil {
		slog.Error("error encoding report", "error", err)
		c.HTML(http.StatusInternalServerError, "index.html", s.indexPage(form.Topics, form.Articles, form.Date, "Could not prepare the report for export."))
		return
	}
	c.HTML(http.StatusOK, "brief.html", briefPage{Report: rep, ReportJSON: string(data)})
}

func (s *Server) APIBrief(c *gin.Context) {
	var body BriefRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rep, err := s.run(c, headerKey(c), body.Articles, body.Date, body.Topics)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": userMessage(err)})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) run(c *gin.Context, key string, articles int, date string, topics []string) (*report.Report, error) {
	req, err := s.request(key, articles, date, topics)
	if err != nil {
		return nil, err
	}
	rep, err := s.pipeline.Run(c.Request.Context(), req)
	if err != nil {
		slog.Warn("brief failed", "status", statusFor(err), "error", err)
		return nil, err
	}
	return rep, nil
}

// Export accepts a report as JSON, either as the "report" form field or as the
// request body, and returns the PDF as an attachment.
func (s *Server) Export(c *gin.Context) {
	var rep report.Report
	var err error
	if raw := c.PostForm("report"); raw != "" {
		err = json.Unmarshal([]byte(raw), &rep)
	} else {
		err = c.ShouldBindJSON(&rep)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report"})
		return
	}

	doc, err := s.exporter.Export(&rep)
	if err != nil {
		slog.Error("error exporting report", "error", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.DataFromReader(http.StatusOK, doc.Size(), exporter.MIMEType, doc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, rep.FileName()),
	})
}

func (s *Server) Topics(c *gin.Context) {
	articles := gin.H{
		"min":     s.cfg.Articles.Min,
		"max":     s.cfg.Articles.Max,
		"default": s.cfg.Articles.Default,
	}
	c.JSON(http.StatusOK, gin.H{"topics": s.cfg.Topics, "articles": articles})
}

func (s *Server) Latest(c *gin.Context) {
	if s.latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No report available"})
		return
	}
	rep := s.latest.Latest()
	if rep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No report available"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func contains(list []string, v string) bool {
	return slices.Contains(list, v)
}
