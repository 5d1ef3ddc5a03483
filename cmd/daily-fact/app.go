package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/ryosukesatoh/daily-fact/internal/config"
	"github.com/ryosukesatoh/daily-fact/internal/controller"
	"github.com/ryosukesatoh/daily-fact/internal/credentials"
	"github.com/ryosukesatoh/daily-fact/internal/fetcher"
	"github.com/ryosukesatoh/daily-fact/internal/generator"
	"github.com/ryosukesatoh/daily-fact/internal/publisher"
)

// app is the wired pipeline shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	ctrl   *controller.Controller
	web    *publisher.WebPublisher
}

type appOptions struct {
	// out receives the stdout publisher's output.
	out io.Writer
	// skip names configured publishers to leave out.
	skip []string
	// extra publishers are registered after the configured ones.
	extra []publisher.Publisher
}

func newApp(cfg *config.Config, logger *log.Logger, opts appOptions) (*app, error) {
	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetcher %q: %w", cfg.Fetcher.Type, err)
	}

	g, err := generator.New(cfg, credentials.FromConfig(cfg.Generator), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build generator %q: %w", cfg.Generator.Type, err)
	}

	a := &app{cfg: cfg, logger: logger}
	pubs := a.buildPublishers(opts)
	pubs = append(pubs, opts.extra...)

	a.ctrl = controller.New(f, g, logger,
		controller.WithPublishers(pubs...),
		controller.WithGenerationTimeout(cfg.Generator.Timeout),
		controller.WithPublishTimeout(cfg.Publisher.Timeout),
	)
	if a.web != nil {
		a.web.SetRefresher(a.ctrl)
	}
	return a, nil
}

func (a *app) buildPublishers(opts appOptions) []publisher.Publisher {
	skipped := make(map[string]bool, len(opts.skip))
	for _, s := range opts.skip {
		skipped[s] = true
	}

	var pubs []publisher.Publisher
	for _, t := range a.cfg.Publisher.Types {
		if skipped[t] {
			continue
		}
		switch t {
		case "stdout":
			pubs = append(pubs, publisher.NewWriterPublisher(opts.out))
		case "email":
			e := a.cfg.Publisher.Email
			pubs = append(pubs, publisher.NewEmailPublisher(e.SMTPHost, e.SMTPPort, e.Username, e.Password, e.From, e.To))
		case "web":
			a.web = publisher.NewWebPublisher(a.cfg.Publisher.Web.Addr, a.logger)
			pubs = append(pubs, a.web)
		case "discord":
			pubs = append(pubs, publisher.NewDiscordPublisher(a.cfg.Publisher.Discord.WebhookURL))
		}
	}
	return pubs
}
