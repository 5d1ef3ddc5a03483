package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ryosukesatoh/daily-fact/internal/retry"
)

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	URL         string              `json:"url,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordPublisher posts each generated fact to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 3,
			BaseDelay:  1 * time.Second,
		},
	}
}

// Publish sends one embed per fact_ready event; other events are ignored.
func (d *DiscordPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Kind != EventFactReady {
		return nil
	}

	embed := buildEmbed(ev)
	err := retry.WithBackoff(ctx, d.retryConfig, func(ctx context.Context) error {
		return d.sendWebhook(ctx, []discordEmbed{embed})
	})
	if err != nil {
		return fmt.Errorf("discord: failed to send fact for %s: %w", ev.Record.ID, err)
	}
	return nil
}

func buildEmbed(ev Event) discordEmbed {
	rec := ev.Record
	fact, _ := rec.Fact.Text()

	e := discordEmbed{
		Title:       truncate(rec.Title, 256),
		URL:         rec.Link,
		Description: truncate(fact, 4096),
		Color:       0x5865F2, // Discord blurple
		Timestamp:   ev.At.Format(time.RFC3339),
	}
	if len(rec.Authors) > 0 {
		e.Fields = []discordEmbedField{
			{Name: "Authors", Value: truncate(strings.Join(rec.Authors, ", "), 1024)},
		}
	}

	footerParts := []string{rec.Published.Format("2006-01-02")}
	if rec.Category != "" {
		footerParts = append(footerParts, rec.Category)
	}
	e.Footer = &discordEmbedFooter{Text: truncate(strings.Join(footerParts, " | "), 2048)}
	return e
}

// sendWebhook posts embeds to the Discord webhook.
func (d *DiscordPublisher) sendWebhook(ctx context.Context, embeds []discordEmbed) error {
	body, err := json.Marshal(discordWebhookPayload{Embeds: embeds})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &retry.StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// truncate cuts s below max bytes on a rune boundary, preferring a sentence
// boundary, and marks the cut with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	end := max - 1
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	cut := s[:end]
	if idx := strings.LastIndexAny(cut, ".!?"); idx > max/2 {
		return cut[:idx+1]
	}
	return cut + "…"
}
