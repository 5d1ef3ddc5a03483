package fetcher

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"sort"
)

//go:embed samples/*.xml
var sampleFeeds embed.FS

// StaticFetcher serves bundled arXiv responses instead of calling the API.
// Pick chooses which sample to parse; it defaults to a random one.
type StaticFetcher struct {
	feeds [][]byte
	Pick  func(n int) int
}

func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{feeds: loadSamples(), Pick: rand.IntN}
}

// NewStaticFetcherFromFeeds serves the given feed documents.
func NewStaticFetcherFromFeeds(feeds ...[]byte) *StaticFetcher {
	return &StaticFetcher{feeds: feeds, Pick: rand.IntN}
}

func loadSamples() [][]byte {
	names, err := fs.Glob(sampleFeeds, "samples/*.xml")
	if err != nil {
		return nil
	}
	sort.Strings(names)

	feeds := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := sampleFeeds.ReadFile(name)
		if err != nil {
			continue
		}
		feeds = append(feeds, data)
	}
	return feeds
}

func (s *StaticFetcher) FetchLatest(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.feeds) == 0 {
		return nil, nil
	}

	records, err := Parse(s.feeds[s.Pick(len(s.feeds))])
	if err != nil {
		return nil, fmt.Errorf("static: failed to parse sample: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}
