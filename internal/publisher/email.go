package publisher

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/ryosukesatoh/daily-brief/internal/report"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailPublisher sends the report as an HTML email via SMTP.
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

func (p *EmailPublisher) Publish(_ context.Context, r *report.Report) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		p.from,
		strings.Join(p.to, ","),
		r.Title(),
		buildHTMLBody(r),
	)

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	if err := p.send(addr, auth, p.from, p.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	return nil
}

func buildHTMLBody(r *report.Report) string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html><html><head><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
.topic { border: 1px solid #ddd; border-radius: 8px; padding: 15px; margin-bottom: 15px; }
.topic h2 { margin-top: 0; color: #0f3460; }
.summary { white-space: pre-wrap; }
.warning { color: #a15c00; }
</style></head><body>`)

	sb.WriteString(fmt.Sprintf("<h1>%s</h1>", html.EscapeString(r.Title())))

	for _, e := range r.Entries {
		sb.WriteString(`<div class="topic">`)
		if e.Topic != "" {
			sb.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(e.Topic)))
		}
		sb.WriteString(fmt.Sprintf(`<p class="summary">%s</p>`, html.EscapeString(e.Summary.Text)))
		if len(e.Headlines) > 0 {
			sb.WriteString("<ul>")
			for _, h := range e.Headlines {
				sb.WriteString(fmt.Sprintf(`<li><a href="%s">%s</a></li>`, html.EscapeString(h.URL), html.EscapeString(h.Title)))
			}
			sb.WriteString("</ul>")
		}
		sb.WriteString("</div>")
	}

	for _, w := range r.Warnings {
		sb.WriteString(fmt.Sprintf(`<p class="warning">%s</p>`, html.EscapeString(w.Message)))
	}

	sb.WriteString("</body></html>")
	return sb.String()
}
