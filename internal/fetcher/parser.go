package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
)

const (
	NoTitle   = "No Title"
	NoSummary = "No Summary"
)

// ErrMalformedFeed is returned when the body cannot be read as an Atom feed at all.
var ErrMalformedFeed = errors.New("malformed feed")

// Parser turns Atom feed bytes into records. Now supplies the fallback
// publication time for entries whose date does not parse.
type Parser struct {
	Now func() time.Time
}

// Parse uses a Parser with the wall clock.
func Parse(data []byte) ([]Record, error) {
	return Parser{}.Parse(data)
}

func (p Parser) Parse(data []byte) ([]Record, error) {
	feed, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	records := make([]Record, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if entry == nil {
			continue
		}
		records = append(records, p.record(entry))
	}
	return records, nil
}

func (p Parser) record(entry *atom.Entry) Record {
	id := strings.TrimSpace(entry.ID)

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if a == nil {
			continue
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	var category string
	if len(entry.Categories) > 0 && entry.Categories[0] != nil {
		category = entry.Categories[0].Term
	}

	return Record{
		ID:        id,
		Title:     normalize(entry.Title, NoTitle),
		Abstract:  normalize(entry.Summary, NoSummary),
		Authors:   authors,
		Link:      id,
		Published: p.published(entry),
		Category:  category,
		Fact:      Pending(),
	}
}

func (p Parser) published(entry *atom.Entry) time.Time {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Published)); err == nil {
		return t
	}
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// normalize collapses whitespace runs to one space and trims; blank text
// becomes the placeholder.
func normalize(s, placeholder string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return placeholder
	}
	return s
}
