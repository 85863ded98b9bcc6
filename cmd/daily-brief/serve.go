package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/daily-brief/internal/config"
	"github.com/ryosukesatoh/daily-brief/internal/publisher"
	"github.com/ryosukesatoh/daily-brief/internal/runner"
	"github.com/ryosukesatoh/daily-brief/internal/server"
)

func newServeCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser UI and API, with an optional scheduled brief",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !strings.EqualFold(a.cfg.Log.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}

			latest := publisher.NewLatestPublisher()
			srv, err := server.New(a.cfg, a.runner, a.exporter, latest)
			if err != nil {
				return err
			}

			if a.cfg.ScheduleEnabled() {
				c, err := startSchedule(ctx, a, schedulePublishers(a, latest))
				if err != nil {
					return err
				}
				defer c.Stop()
			}

			err = srv.Run(ctx)
			slog.Info("shutdown complete")
			return err
		},
	}
}

// schedulePublishers returns every configured destination for scheduled reports.
func schedulePublishers(a *app, latest *publisher.LatestPublisher) []publisher.Publisher {
	sc := a.cfg.Schedule
	pubs := []publisher.Publisher{latest}
	if sc.OutputDir != "" {
		pubs = append(pubs, publisher.NewFilePublisher(sc.OutputDir, a.exporter))
	}
	if sc.Discord.WebhookURL != "" {
		pubs = append(pubs, publisher.NewDiscordPublisher(sc.Discord.WebhookURL))
	}
	if sc.Email.SMTPHost != "" {
		pubs = append(pubs, publisher.NewEmailPublisher(
			sc.Email.SMTPHost,
			sc.Email.SMTPPort,
			sc.Email.Username,
			sc.Email.Password,
			sc.Email.From,
			sc.Email.To,
		))
	}
	return pubs
}

func scheduledRequest(cfg *config.Config) runner.Request {
	key := strings.TrimSpace(cfg.Schedule.APIKey)
	if key == "" {
		key = envAPIKey(cfg.Summarizer.Provider)
	}
	return runner.Request{
		APIKey:     key,
		MaxResults: cfg.Articles.Default,
		Topics:     cfg.Schedule.Topics,
	}
}

func startSchedule(ctx context.Context, a *app, pubs []publisher.Publisher) (*cron.Cron, error) {
	req := scheduledRequest(a.cfg)
	if req.APIKey == "" || strings.HasPrefix(req.APIKey, "${") {
		return nil, fmt.Errorf("schedule: api_key is required when schedule.cron is set")
	}

	deliver := func() {
		if _, err := a.runner.Deliver(ctx, req, pubs); err != nil {
			slog.Error("scheduled brief failed", "error", err)
		}
	}

	c := cron.New(cron.WithLocation(a.cfg.Location()))
	if _, err := c.AddFunc(a.cfg.Schedule.Cron, deliver); err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", a.cfg.Schedule.Cron, err)
	}

	if a.cfg.Schedule.RunOnStart {
		go deliver()
	}

	c.Start()
	slog.Info("scheduled brief", "cron", a.cfg.Schedule.Cron, "topics", a.cfg.Schedule.Topics)
	return c, nil
}
