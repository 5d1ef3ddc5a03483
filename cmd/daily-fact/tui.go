package main

import (
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/daily-fact/internal/logging"
	"github.com/ryosukesatoh/daily-fact/internal/publisher"
	"github.com/ryosukesatoh/daily-fact/internal/tui"
)

const defaultTUILogFile = "daily-fact.log"

func tuiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Show the latest paper and its fact in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			// The program owns the screen, so logs go to a file.
			path := cfg.LogFile
			if path == "" {
				path = defaultTUILogFile
			}
			logFile, err := logging.OpenFile(path)
			if err != nil {
				return err
			}
			defer logFile.Close()
			logger := logging.New(cfg.LogLevel, logFile)

			events := tui.NewPublisher(32)
			a, err := newApp(cfg, logger, appOptions{
				skip:  []string{"stdout", "web"},
				extra: []publisher.Publisher{events},
			})
			if err != nil {
				return err
			}
			defer a.ctrl.Close()

			return tui.Run(a.ctrl, events)
		},
	}
}
