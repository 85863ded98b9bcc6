package server

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ryosukesatoh/daily-brief/internal/config"
	"github.com/ryosukesatoh/daily-brief/internal/report"
	"github.com/ryosukesatoh/daily-brief/internal/runner"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pipeline runs one brief. *runner.Runner satisfies it.
type Pipeline interface {
	Run(ctx context.Context, req runner.Request) (*report.Report, error)
}

// Exporter renders a report as a downloadable document.
type Exporter interface {
	Export(r *report.Report) (*bytes.Reader, error)
}

// LatestSource provides the most recent scheduled report, if any.
type LatestSource interface {
	Latest() *report.Report
}

// Server is the browser UI and JSON API. It holds no credentials: every
// request carries its own API key through to the pipeline.
type Server struct {
	cfg      *config.Config
	pipeline Pipeline
	exporter Exporter
	latest   LatestSource
	tmpl     *template.Template
}

func New(cfg *config.Config, p Pipeline, e Exporter, latest LatestSource) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{"contains": contains}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, pipeline: p, exporter: e, latest: latest, tmpl: tmpl}, nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  s.cfg.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))
	r.SetHTMLTemplate(s.tmpl)

	r.GET("/", s.Index)
	r.POST("/brief", s.Brief)
	r.POST("/export", s.Export)

	api := r.Group("/api")
	api.POST("/brief", s.APIBrief)
	api.GET("/topics", s.Topics)
	api.GET("/latest", s.Latest)

	r.GET("/health", s.Health)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down server")
	return srv.Shutdown(shutdownCtx)
}
