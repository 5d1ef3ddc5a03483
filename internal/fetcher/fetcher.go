package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/ryosukesatoh/daily-fact/internal/config"
	"github.com/ryosukesatoh/daily-fact/internal/retry"
)

// Fetcher retrieves the newest record of a feed. A nil record with a nil
// error means the feed had no entries.
type Fetcher interface {
	FetchLatest(ctx context.Context) (*Record, error)
}

// NetworkError is a transport failure or an unexpected HTTP status.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt at the transport layer.
func (e *NetworkError) Retryable() bool {
	if e.StatusCode != 0 {
		return retry.HTTPStatusRetryable(e.StatusCode)
	}
	return !errors.Is(e.Err, context.Canceled)
}

// New creates a new fetcher based on the configuration
func New(cfg *config.Config, logger *log.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "arxiv":
		return NewArxivFetcher(cfg.Fetcher, logger), nil
	case "static":
		return NewStaticFetcher(), nil
	default:
		return nil, ErrUnsupportedFetcherType
	}
}

// ErrUnsupportedFetcherType is returned when an unsupported fetcher type is specified
var ErrUnsupportedFetcherType = fmt.Errorf("unsupported fetcher type")
