package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/daily-fact/internal/controller"
	"github.com/ryosukesatoh/daily-fact/internal/logging"
)

var errNoFact = errors.New("no fact was generated")

func onceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Fetch the latest paper, generate its fact, publish and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cmd.ErrOrStderr())

			a, err := newApp(cfg, logger, appOptions{out: cmd.OutOrStdout(), skip: []string{"web"}})
			if err != nil {
				return err
			}
			defer a.ctrl.Close()

			if err := a.ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}
			a.ctrl.Wait()

			switch a.ctrl.State() {
			case controller.Idle:
				logger.Warn("feed returned no entries")
				return nil
			case controller.LoadedPending:
				return errNoFact
			}
			return nil
		},
	}
}
