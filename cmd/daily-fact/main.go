package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/daily-fact/internal/config"
	"github.com/ryosukesatoh/daily-fact/internal/credentials"
)

var Version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	offline    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "daily-fact",
		Short:         "Fetch the newest arXiv paper and condense it into one fact",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			credentials.LoadDotEnv()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level from the config")
	rootCmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "use the bundled sample feed and a fixed fact")

	rootCmd.AddCommand(onceCmd(opts))
	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(tuiCmd(opts))

	return rootCmd
}

// loadConfig reads the config file. A missing default config file is not an
// error: the built-in defaults are used instead.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.offline {
		cfg.Fetcher.Type = "static"
		cfg.Generator.Type = "static"
	}
	return cfg, nil
}
