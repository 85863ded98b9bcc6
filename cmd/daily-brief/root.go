package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/daily-brief/internal/config"
	"github.com/ryosukesatoh/daily-brief/internal/exporter"
	"github.com/ryosukesatoh/daily-brief/internal/fetcher"
	"github.com/ryosukesatoh/daily-brief/internal/runner"
	"github.com/ryosukesatoh/daily-brief/internal/summarizer"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	runner   *runner.Runner
	exporter *exporter.PDFExporter
}

func newApp(cfg *config.Config) (*app, error) {
	f, err := fetcher.New(cfg.Search)
	if err != nil {
		return nil, err
	}
	s, err := summarizer.New(cfg.Summarizer)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		runner:   runner.New(cfg, f, s),
		exporter: exporter.NewPDFExporter(),
	}, nil
}

func newRootCmd() *cobra.Command {
	var configPath string
	var a *app

	root := &cobra.Command{
		Use:          "daily-brief",
		Short:        "Daily news headlines summarized by an LLM",
		Long:         "daily-brief searches the day's headlines per topic, summarizes them with a language model, and serves the result in the browser or exports it as a PDF.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			// A missing .env is fine.
			_ = godotenv.Load()

			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(cfg.Log, cmd.ErrOrStderr()))

			a, err = newApp(cfg)
			return err
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	appFn := func() *app { return a }
	root.AddCommand(newServeCmd(appFn), newRunCmd(appFn), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "daily-brief %s (commit: %s)\n", version, commit)
		},
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// envAPIKey returns the provider's conventional environment credential.
func envAPIKey(provider string) string {
	switch provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}
