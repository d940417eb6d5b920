// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/notifier"
)

const (
	colorGain  = "#28a745"
	colorLoss  = "#dc3545"
	timeLayout = "2006-01-02 15:04:05"
)

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host, ok := notifier.StringParam(cfg.Params, "host"); ok {
		e.host = host
	}
	if port, ok := notifier.IntParam(cfg.Params, "port"); ok {
		e.port = port
	}
	if username, ok := notifier.StringParam(cfg.Params, "username"); ok {
		e.username = username
	}
	if password, ok := notifier.StringParam(cfg.Params, "password"); ok {
		e.password = password
	}
	if from, ok := notifier.StringParam(cfg.Params, "from"); ok {
		e.from = from
	}
	if to, ok := notifier.StringsParam(cfg.Params, "to"); ok {
		e.to = to
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}
	return nil
}

func (e *Email) Notify(ctx context.Context, summary notifier.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.sendEmail(e.subject(summary), e.formatSummaryHTML(summary))
}

func (e *Email) subject(s notifier.RunSummary) string {
	if s.Failed() {
		return fmt.Sprintf("quantlab: %s run failed", s.Project)
	}
	return fmt.Sprintf("quantlab: %s run finished (%.2f%%)", s.Project, s.TotalReturn*100)
}

func (e *Email) formatSummaryHTML(s notifier.RunSummary) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")

	if s.Failed() {
		sb.WriteString(fmt.Sprintf(`<h2 style="color: %s;">%s run failed</h2>`, colorLoss, s.Project))
		sb.WriteString(fmt.Sprintf("<p><strong>Error:</strong> %s</p>", s.Err))
	} else {
		color := colorGain
		if s.TotalReturn < 0 {
			color = colorLoss
		}
		sb.WriteString(fmt.Sprintf(`<h2 style="color: %s;">%s run finished</h2>`, color, s.Project))
		sb.WriteString("<table>")
		row := func(k, v string) {
			sb.WriteString(fmt.Sprintf("<tr><td><strong>%s</strong></td><td>%s</td></tr>", k, v))
		}
		row("Total return", fmt.Sprintf("%.2f%%", s.TotalReturn*100))
		row("Sharpe", notifier.FormatRatio(s.Sharpe))
		row("Max drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown*100))
		row("Rebalances", fmt.Sprintf("%d", s.Rebalances))
		row("Total cost", fmt.Sprintf("%.6f", s.TotalCost))
		row("Assets", fmt.Sprintf("%d", s.Assets))
		row("Active periods", fmt.Sprintf("%d", s.Periods))
		if s.Overlaps > 0 {
			row("Basket overlaps", fmt.Sprintf("%d", s.Overlaps))
		}
		sb.WriteString("</table>")
	}

	sb.WriteString("<hr>")
	sb.WriteString(fmt.Sprintf("<p><small>run %s, revision %s, source %s<br>%s<br>%s</small></p>",
		s.RunID, s.Revision, s.Source, s.RunDir, s.Finished.Format(timeLayout)))
	sb.WriteString("</body></html>")

	return sb.String()
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		body,
	)

	if err := e.send(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
