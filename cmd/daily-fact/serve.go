package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/daily-fact/internal/logging"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Refresh on a cron schedule and serve the configured publishers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cmd.ErrOrStderr())

			a, err := newApp(cfg, logger, appOptions{out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer a.ctrl.Close()

			if a.web != nil {
				if err := a.web.Start(); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := a.web.Shutdown(shutdownCtx); err != nil {
						logger.Error("web server shutdown error", "err", err)
					}
				}()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			refresh := func(reason string) {
				logger.Info("refreshing", "trigger", reason)
				if err := a.ctrl.Refresh(ctx); err != nil {
					logger.Error("refresh failed", "trigger", reason, "err", err)
				}
			}

			if cfg.RunOnStart {
				refresh("startup")
			}

			c := cron.New()
			if _, err := c.AddFunc(cfg.Schedule, func() { refresh("cron") }); err != nil {
				return fmt.Errorf("failed to set up cron schedule %q: %w", cfg.Schedule, err)
			}
			c.Start()
			logger.Info("scheduled refresh", "cron", cfg.Schedule)

			<-ctx.Done()
			logger.Info("shutting down")
			<-c.Stop().Done()
			return nil
		},
	}
}
