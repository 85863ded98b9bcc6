package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/daily-brief/internal/publisher"
	"github.com/ryosukesatoh/daily-brief/internal/runner"
)

func newRunCmd(appFn func() *app) *cobra.Command {
	var (
		topics   []string
		date     string
		articles int
		apiKey   string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate one brief, print it, and optionally write the PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()

			req := runner.Request{
				APIKey:     strings.TrimSpace(apiKey),
				MaxResults: articles,
				Topics:     topics,
			}
			if req.APIKey == "" {
				req.APIKey = envAPIKey(a.cfg.Summarizer.Provider)
			}
			if req.MaxResults == 0 {
				req.MaxResults = a.cfg.Articles.Default
			}
			if date != "" {
				d, err := time.ParseInLocation(time.DateOnly, date, a.cfg.Location())
				if err != nil {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
				}
				req.Date = d
			}

			pubs := []publisher.Publisher{publisher.NewWriterPublisher(cmd.OutOrStdout())}
			if outDir != "" {
				pubs = append(pubs, publisher.NewFilePublisher(outDir, a.exporter))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err := a.runner.Deliver(ctx, req, pubs)
			return err
		},
	}

	cmd.Flags().StringSliceVar(&topics, "topics", nil, "comma-separated topics (empty for a general brief)")
	cmd.Flags().StringVar(&date, "date", "", "report date as YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&articles, "articles", 0, "headlines per topic (default from config)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "LLM API key (default from OPENAI_API_KEY or ANTHROPIC_API_KEY)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write the PDF into")
	return cmd
}
