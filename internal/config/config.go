package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Schedule   string          `yaml:"schedule"`
	RunOnStart bool            `yaml:"run_on_start"`
	LogLevel   string          `yaml:"log_level"`
	LogFile    string          `yaml:"log_file"`
	Fetcher    FetcherConfig   `yaml:"fetcher"`
	Generator  GeneratorConfig `yaml:"generator"`
	Publisher  PublisherConfig `yaml:"publisher"`
}

type FetcherConfig struct {
	Type        string        `yaml:"type"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MinInterval time.Duration `yaml:"min_interval"`
	MaxRetries  int           `yaml:"max_retries"`
}

type GeneratorConfig struct {
	Type      string        `yaml:"type"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PublisherConfig struct {
	Types   []string      `yaml:"types"`
	Timeout time.Duration `yaml:"timeout"`
	Email   EmailConfig   `yaml:"email"`
	Web     WebConfig     `yaml:"web"`
	Discord DiscordConfig `yaml:"discord"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

// HasPublisher reports whether the named publisher is enabled.
func (c *Config) HasPublisher(name string) bool {
	for _, t := range c.Publisher.Types {
		if t == name {
			return true
		}
	}
	return false
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{RunOnStart: true}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Fetcher.Type == "" {
		cfg.Fetcher.Type = "arxiv"
	}
	if cfg.Fetcher.BaseURL == "" {
		cfg.Fetcher.BaseURL = "http://export.arxiv.org/api/query"
	}
	if cfg.Fetcher.Timeout == 0 {
		cfg.Fetcher.Timeout = 30 * time.Second
	}
	if cfg.Fetcher.MinInterval == 0 {
		cfg.Fetcher.MinInterval = 3 * time.Second
	}
	// -1 disables retries
	if cfg.Fetcher.MaxRetries == 0 {
		cfg.Fetcher.MaxRetries = 2
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "gemini"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gemini-2.0-flash"
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = 60 * time.Second
	}
	if len(cfg.Publisher.Types) == 0 {
		cfg.Publisher.Types = []string{"stdout"}
	}
	if cfg.Publisher.Timeout == 0 {
		cfg.Publisher.Timeout = 30 * time.Second
	}
	if cfg.Publisher.Web.Addr == "" {
		cfg.Publisher.Web.Addr = ":8080"
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
}

func validate(cfg *Config) error {
	switch cfg.Fetcher.Type {
	case "arxiv", "static":
	default:
		return fmt.Errorf("config: unsupported fetcher type %q (supported: arxiv, static)", cfg.Fetcher.Type)
	}
	switch cfg.Generator.Type {
	case "gemini", "static":
	default:
		return fmt.Errorf("config: unsupported generator type %q (supported: gemini, static)", cfg.Generator.Type)
	}
	for _, t := range cfg.Publisher.Types {
		switch t {
		case "stdout", "email", "web", "discord":
		default:
			return fmt.Errorf("config: unsupported publisher type %q (supported: stdout, email, web, discord)", t)
		}
	}
	if cfg.HasPublisher("discord") && cfg.Publisher.Discord.WebhookURL == "" {
		return fmt.Errorf("config: publisher.discord.webhook_url is required for discord publisher")
	}
	if cfg.HasPublisher("email") {
		if cfg.Publisher.Email.SMTPHost == "" {
			return fmt.Errorf("config: publisher.email.smtp_host is required for email publisher")
		}
		if len(cfg.Publisher.Email.To) == 0 {
			return fmt.Errorf("config: publisher.email.to is required for email publisher")
		}
		if cfg.Publisher.Email.From == "" {
			return fmt.Errorf("config: publisher.email.from is required for email publisher")
		}
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration. The API key is not required here; it is
// resolved through the credential provider when a fact is generated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Config{RunOnStart: true}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
