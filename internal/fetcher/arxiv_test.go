package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryosukesatoh/daily-fact/internal/config"
	"github.com/ryosukesatoh/daily-fact/internal/logging"
)

const sampleAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1234.5678v1</id>
    <title>  Sample Paper
      Title  </title>
    <summary>  This is the abstract of the paper.  </summary>
    <author><name> Alice </name></author>
    <author><name> Bob </name></author>
    <link href="http://arxiv.org/abs/1234.5678v1" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/1234.5678v1" title="pdf" type="application/pdf"/>
    <published>2025-01-15T00:00:00Z</published>
    <category term="cs.AI"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2345.6789v1</id>
    <title>Another Paper</title>
    <summary>Second abstract.</summary>
    <published>2025-01-14T00:00:00Z</published>
  </entry>
</feed>`

const emptyAtomFeed = `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`

func newTestFetcher(baseURL string, maxRetries int) *ArxivFetcher {
	f := NewArxivFetcher(config.FetcherConfig{BaseURL: baseURL, MaxRetries: maxRetries}, logging.Discard())
	f.retry.BaseDelay = time.Millisecond
	return f
}

func TestFetchLatestParsesFirstEntry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(sampleAtomFeed))
	}))
	defer ts.Close()

	rec, err := newTestFetcher(ts.URL, 0).FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest returned error: %v", err)
	}
	if rec == nil {
		t.Fatal("Expected a record")
	}
	if rec.ID != "http://arxiv.org/abs/1234.5678v1" {
		t.Errorf("Unexpected id %q", rec.ID)
	}
	if rec.Title != "Sample Paper Title" {
		t.Errorf("Expected normalized title, got %q", rec.Title)
	}
	if rec.Abstract != "This is the abstract of the paper." {
		t.Errorf("Expected trimmed abstract, got %q", rec.Abstract)
	}
	if len(rec.Authors) != 2 || rec.Authors[0] != "Alice" || rec.Authors[1] != "Bob" {
		t.Errorf("Unexpected authors %v", rec.Authors)
	}
	if rec.Link != "http://arxiv.org/abs/1234.5678v1" {
		t.Errorf("Expected link to be the entry id, got %q", rec.Link)
	}
	if rec.Fact.IsReady() {
		t.Error("Expected pending fact")
	}
}

func TestFetchLatestQueryParameters(t *testing.T) {
	var receivedQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedQuery = r.URL.RawQuery
		w.Write([]byte(emptyAtomFeed))
	}))
	defer ts.Close()

	if _, err := newTestFetcher(ts.URL, 0).FetchLatest(context.Background()); err != nil {
		t.Fatalf("FetchLatest returned error: %v", err)
	}

	for _, want := range []string{"search_query=all", "start=0", "max_results=1", "sortBy=submittedDate", "sortOrder=descending"} {
		if !strings.Contains(receivedQuery, want) {
			t.Errorf("Expected query to contain %q, got %q", want, receivedQuery)
		}
	}
}

func TestFetchLatestEmptyFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyAtomFeed))
	}))
	defer ts.Close()

	rec, err := newTestFetcher(ts.URL, 0).FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("Expected no error for empty feed, got %v", err)
	}
	if rec != nil {
		t.Errorf("Expected nil record, got %+v", rec)
	}
}

func TestFetchLatestBadStatusCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestFetcher(ts.URL, 3).FetchLatest(context.Background())
	if err == nil {
		t.Fatal("Expected error for 404 status code")
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError, got %T: %v", err, err)
	}
	if netErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", netErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "unexpected status 404") {
		t.Errorf("Expected 'unexpected status 404' error, got: %v", err)
	}
}

func TestFetchLatestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleAtomFeed))
	}))
	defer ts.Close()

	rec, err := newTestFetcher(ts.URL, 2).FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest returned error: %v", err)
	}
	if rec == nil {
		t.Fatal("Expected a record after retries")
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 requests, got %d", calls.Load())
	}
}

func TestFetchLatestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newTestFetcher(ts.URL, 1).FetchLatest(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("Expected NetworkError 502, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 requests, got %d", calls.Load())
	}
}

func TestFetchLatestInvalidXML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml"))
	}))
	defer ts.Close()

	_, err := newTestFetcher(ts.URL, 2).FetchLatest(context.Background())
	if err == nil {
		t.Fatal("Expected error for invalid XML")
	}
	if !errors.Is(err, ErrMalformedFeed) {
		t.Errorf("Expected ErrMalformedFeed, got: %v", err)
	}
}

func TestFetchLatestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := newTestFetcher(url, 0).FetchLatest(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError, got %T: %v", err, err)
	}
}

func TestFetchLatestCoalescesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(sampleAtomFeed))
	}))
	defer ts.Close()

	f := newTestFetcher(ts.URL, 0)

	var wg sync.WaitGroup
	results := make([]*Record, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := f.FetchLatest(context.Background())
			if err != nil {
				t.Errorf("FetchLatest returned error: %v", err)
			}
			results[i] = rec
		}(i)
	}

	// Wait for the first request to reach the server before releasing it.
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected 1 request for concurrent callers, got %d", calls.Load())
	}
	if results[0] == nil || results[1] == nil {
		t.Fatal("Expected both callers to receive a record")
	}
	if results[0] == results[1] {
		t.Error("Expected each caller to own its record value")
	}
}
