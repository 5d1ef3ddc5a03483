package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdoutPublisher prints each transition to stdout.
type StdoutPublisher struct {
	w io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{w: os.Stdout}
}

// NewWriterPublisher prints to w instead of stdout.
func NewWriterPublisher(w io.Writer) *StdoutPublisher {
	return &StdoutPublisher{w: w}
}

func (p *StdoutPublisher) Publish(_ context.Context, ev Event) error {
	w := p.w
	stamp := ev.At.Format("2006-01-02 15:04:05")

	switch ev.Kind {
	case EventFetchFailed:
		fmt.Fprintf(w, "[%s] fetch failed: %v\n", stamp, ev.Err)
		return nil
	case EventNoRecord:
		fmt.Fprintf(w, "[%s] feed returned no entries\n", stamp)
		return nil
	case EventGenerationFailed:
		fmt.Fprintf(w, "[%s] fact generation failed for %s: %v\n", stamp, ev.Record.ID, ev.Err)
		return nil
	case EventRecordLoaded:
		// Ready facts carried over a same-ID reload are printed in full below.
		if !ev.Record.Fact.IsReady() {
			fmt.Fprintf(w, "[%s] loaded %s, generating fact...\n", stamp, ev.Record.ID)
			return nil
		}
	}

	rec := ev.Record
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, rec.Title)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "Authors:   %s\n", strings.Join(rec.Authors, ", "))
	fmt.Fprintf(w, "Published: %s\n", rec.Published.Format("2006-01-02"))
	if rec.Category != "" {
		fmt.Fprintf(w, "Category:  %s\n", rec.Category)
	}
	fmt.Fprintf(w, "URL:       %s\n", rec.Link)
	fmt.Fprintln(w)
	if text, ok := rec.Fact.Text(); ok {
		fmt.Fprintf(w, "Fact: %s\n", text)
	} else {
		fmt.Fprintln(w, "Fact: generating...")
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
	return nil
}
