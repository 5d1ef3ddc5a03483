package generator

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/ryosukesatoh/daily-fact/internal/config"
	"github.com/ryosukesatoh/daily-fact/internal/credentials"
)

// NoFact is returned when the service answers without usable text.
const NoFact = "No fact generated"

// Generator condenses an abstract into one factual sentence.
// Callers must treat the result as opaque display text: the one-sentence
// instruction is a request, not a guarantee.
type Generator interface {
	Generate(ctx context.Context, abstract string) (string, error)
}

// GenerationError is returned when the remote call fails outright.
type GenerationError struct {
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generator: API error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generator: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// New creates a new generator based on the configuration
func New(cfg *config.Config, keys credentials.Provider, logger *log.Logger) (Generator, error) {
	switch cfg.Generator.Type {
	case "gemini":
		return NewGeminiGenerator(cfg.Generator, keys, logger), nil
	case "static":
		return NewStaticGenerator(""), nil
	default:
		return nil, ErrUnsupportedGeneratorType
	}
}

// ErrUnsupportedGeneratorType is returned when an unsupported generator type is specified
var ErrUnsupportedGeneratorType = fmt.Errorf("unsupported generator type")
