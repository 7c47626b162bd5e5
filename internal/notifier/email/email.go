// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/newthinker/premia/internal/notifier"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Email sends run reports as HTML mail
type Email struct {
	cfg  Config
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Email notifier
func New(cfg Config) (*Email, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("email: host, from, and to are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Email{cfg: cfg, send: smtp.SendMail}, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, report notifier.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.sendEmail(report.Title(), formatHTML(report))
}

func formatHTML(r notifier.Report) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(r.Title())))
	sb.WriteString(fmt.Sprintf("<p>Run %s completed at %s: %d candidates, %d excluded.</p>",
		r.RunID, r.CompletedAt.Format("2006-01-02 15:04:05"), r.Candidates, r.Excluded))

	if len(r.Top) > 0 {
		sb.WriteString("<table border=\"1\" cellpadding=\"4\" style=\"border-collapse: collapse;\">")
		sb.WriteString("<tr><th>#</th><th>Contract</th><th>Expiration</th><th>Strike</th><th>Yield</th><th>Score</th><th>Why</th></tr>")
		for i, c := range r.Top {
			yield := "-"
			if c.AnnualizedYield != nil {
				yield = fmt.Sprintf("%.1f%%", *c.AnnualizedYield*100)
			}
			sb.WriteString(fmt.Sprintf("<tr><td>%d</td><td>%s</td><td>%s</td><td>%.2f</td><td>%s</td><td>%.1f</td><td>%s</td></tr>",
				i+1,
				html.EscapeString(c.ContractSymbol),
				c.Expiration.Format(time.DateOnly),
				c.Strike,
				yield,
				c.Score,
				html.EscapeString(c.WhyRankedHigh),
			))
		}
		sb.WriteString("</table>")
	}

	if len(r.Errors) > 0 {
		sb.WriteString("<h3 style=\"color: #dc3545;\">Provider errors</h3><ul>")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("<li>%s %s: %s (%s)</li>",
				html.EscapeString(e.Symbol), e.Stage, e.Code, html.EscapeString(e.Reason)))
		}
		sb.WriteString("</ul>")
	}

	if r.Digest != "" {
		sb.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(r.Digest)))
	}

	sb.WriteString("</body></html>")
	return sb.String()
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.cfg.From,
		strings.Join(e.cfg.To, ","),
		subject,
		body,
	)

	if err := e.send(addr, auth, e.cfg.From, e.cfg.To, []byte(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
