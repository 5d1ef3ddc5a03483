// Package credentials supplies the API key for the text-generation service.
// Storage is left to the environment: variables, a .env file, or config.
package credentials

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ryosukesatoh/daily-fact/internal/config"
)

// ErrNoAPIKey is returned when no provider holds a key.
var ErrNoAPIKey = errors.New("credentials: no API key configured")

// Provider returns the API key to use for the next request.
type Provider interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticProvider always returns the same key.
type StaticProvider string

func (p StaticProvider) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(p))
	if key == "" || isPlaceholder(key) {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// EnvProvider reads the key from an environment variable on every call,
// so a rotated key is picked up without restarting.
type EnvProvider struct {
	Var string
}

func (p EnvProvider) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(os.Getenv(p.Var))
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// Chain returns the first key any provider yields.
type Chain []Provider

func (c Chain) APIKey(ctx context.Context) (string, error) {
	for _, p := range c {
		key, err := p.APIKey(ctx)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrNoAPIKey) {
			return "", err
		}
	}
	return "", ErrNoAPIKey
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// FromConfig prefers an explicit generator.api_key and falls back to the
// variable named by generator.api_key_env.
func FromConfig(cfg config.GeneratorConfig) Provider {
	return Chain{StaticProvider(cfg.APIKey), EnvProvider{Var: cfg.APIKeyEnv}}
}

// isPlaceholder catches ${VAR} references left unexpanded by the config loader.
func isPlaceholder(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}
