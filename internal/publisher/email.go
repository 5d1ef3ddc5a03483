package publisher

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailPublisher sends each generated fact as an HTML email via SMTP.
type EmailPublisher struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendMailFunc
}

func NewEmailPublisher(host string, port int, username, password, from string, to []string) *EmailPublisher {
	return &EmailPublisher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

// Publish mails fact_ready events; other events are ignored.
func (p *EmailPublisher) Publish(_ context.Context, ev Event) error {
	if ev.Kind != EventFactReady {
		return nil
	}

	subject := fmt.Sprintf("Daily Fact: %s - %s", ev.Record.Title, ev.At.Format("2006-01-02"))
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		p.from,
		strings.Join(p.to, ","),
		headerSafe(subject),
		buildHTMLBody(ev),
	)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	if err := p.send(addr, auth, p.from, p.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	return nil
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func buildHTMLBody(ev Event) string {
	rec := ev.Record
	fact, _ := rec.Fact.Text()

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
.fact { background: #f0f0f0; padding: 15px; border-radius: 8px; margin-bottom: 20px; font-size: 1.1em; }
.meta { color: #666; font-size: 0.9em; margin-bottom: 10px; }
</style></head><body>`)

	sb.WriteString("<h1>Daily Fact</h1>")
	sb.WriteString(fmt.Sprintf("<p><em>%s</em></p>", ev.At.Format("January 2, 2006")))
	sb.WriteString(fmt.Sprintf(`<p class="fact">%s</p>`, html.EscapeString(fact)))
	sb.WriteString(fmt.Sprintf(`<h3><a href="%s">%s</a></h3>`, html.EscapeString(rec.Link), html.EscapeString(rec.Title)))

	meta := strings.Join(rec.Authors, ", ")
	if rec.Category != "" {
		meta += " | " + rec.Category
	}
	sb.WriteString(fmt.Sprintf(`<div class="meta">%s</div>`, html.EscapeString(meta)))
	sb.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(rec.Abstract)))

	sb.WriteString("</body></html>")
	return sb.String()
}
