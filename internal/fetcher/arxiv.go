package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ryosukesatoh/daily-fact/internal/config"
	"github.com/ryosukesatoh/daily-fact/internal/retry"
)

// ArxivFetcher fetches the most recently submitted paper from the arXiv API.
type ArxivFetcher struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	retry   retry.Config
	parser  Parser
	group   singleflight.Group
	logger  *log.Logger
}

func NewArxivFetcher(cfg config.FetcherConfig, logger *log.Logger) *ArxivFetcher {
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &ArxivFetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		// arXiv asks clients to wait between calls
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		retry:   retry.Config{MaxRetries: retries, BaseDelay: time.Second},
		logger:  logger.With("component", "arxiv"),
	}
}

// latestQuery requests exactly one entry: newest submission first.
func latestQuery() url.Values {
	query := url.Values{}
	query.Set("search_query", "all")
	query.Set("start", "0")
	query.Set("max_results", "1")
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")
	return query
}

// FetchLatest returns the newest record, or nil when the feed is empty.
// Concurrent callers share a single request.
func (f *ArxivFetcher) FetchLatest(ctx context.Context) (*Record, error) {
	ch := f.group.DoChan("latest", func() (interface{}, error) {
		return f.fetchLatest(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, &NetworkError{Op: "arxiv: fetch", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rec, _ := res.Val.(*Record)
		if rec == nil {
			return nil, nil
		}
		out := rec.WithFact(Pending())
		return &out, nil
	}
}

func (f *ArxivFetcher) fetchLatest(ctx context.Context) (*Record, error) {
	reqURL := fmt.Sprintf("%s?%s", f.baseURL, latestQuery().Encode())

	var body []byte
	err := retry.WithBackoff(ctx, f.retry, func(ctx context.Context) error {
		var err error
		body, err = f.get(ctx, reqURL)
		if err != nil {
			f.logger.Warn("feed request failed", "err", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	records, err := f.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse feed: %w", err)
	}
	if len(records) == 0 {
		f.logger.Info("feed returned no entries")
		return nil, nil
	}

	rec := records[0]
	f.logger.Debug("fetched latest entry", "id", rec.ID, "published", rec.Published)
	return &rec, nil
}

func (f *ArxivFetcher) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Op: "arxiv: rate limit", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "daily-fact/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "arxiv: request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Op: "arxiv", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "arxiv: failed to read response", Err: err}
	}
	return body, nil
}
