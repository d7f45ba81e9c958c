// Package mailer sends advisor-facing HTML email. Sending is best effort
// everywhere it is used; a downed SMTP relay must never block an upload.
package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/pkg/config"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

// BriefContent is the material for one advisor's morning brief email.
type BriefContent struct {
	Advisor       string
	NewArrivals   []ledger.NotificationPayload
	CriticalAging []ledger.NotificationPayload
	DueToday      []ledger.NotificationPayload
}

// Empty reports whether the brief has anything worth sending.
func (b BriefContent) Empty() bool {
	return len(b.NewArrivals) == 0 && len(b.CriticalAging) == 0 && len(b.DueToday) == 0
}

// Mailer delivers advisor email.
type Mailer interface {
	SendArrival(ctx context.Context, to string, payload ledger.NotificationPayload) error
	SendBatchSummary(ctx context.Context, to string, payloads []ledger.NotificationPayload) error
	SendBrief(ctx context.Context, to string, brief BriefContent) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type mailer struct {
	cfg    config.SMTPConfig
	dialer sender
	logg   *logger.Logger
}

// New builds the mailer. When SMTP is not configured the returned mailer
// logs and drops every message instead of dialing.
func New(cfg config.SMTPConfig, logg *logger.Logger) (Mailer, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	m := &mailer{cfg: cfg, logg: logg}
	if cfg.Enabled() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Sender, cfg.Password)
	}
	return m, nil
}

func (m *mailer) SendArrival(ctx context.Context, to string, payload ledger.NotificationPayload) error {
	subject := fmt.Sprintf("Part %s has arrived", payload.ItemNo)
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h3>%s is in</h3>", html.EscapeString(payload.ItemNo))
	fmt.Fprintf(&b, "<p>%s for %s is now %s.</p>",
		html.EscapeString(payload.Description),
		html.EscapeString(payload.CustomerName),
		html.EscapeString(string(payload.Status)))
	if payload.Duration != "" {
		fmt.Fprintf(&b, "<p>Time on order: %s</p>", html.EscapeString(payload.Duration))
	}
	b.WriteString("<p>This is an automated message.</p></body></html>")
	return m.send(ctx, to, subject, b.String())
}

func (m *mailer) SendBatchSummary(ctx context.Context, to string, payloads []ledger.NotificationPayload) error {
	if len(payloads) == 0 {
		return nil
	}
	subject := fmt.Sprintf("Parts update: %d items changed", len(payloads))
	var b strings.Builder
	b.WriteString("<html><body><h3>Your parts on the latest upload</h3>")
	writeTable(&b, payloads)
	b.WriteString("<p>This is an automated message.</p></body></html>")
	return m.send(ctx, to, subject, b.String())
}

func (m *mailer) SendBrief(ctx context.Context, to string, brief BriefContent) error {
	if brief.Empty() {
		return nil
	}
	subject := fmt.Sprintf("Morning parts brief for %s", brief.Advisor)
	var b strings.Builder
	b.WriteString("<html><body>")
	if len(brief.NewArrivals) > 0 {
		b.WriteString("<h3>Arrived since yesterday</h3>")
		writeTable(&b, brief.NewArrivals)
	}
	if len(brief.CriticalAging) > 0 {
		b.WriteString("<h3>Aging past the limit</h3>")
		writeTable(&b, brief.CriticalAging)
	}
	if len(brief.DueToday) > 0 {
		b.WriteString("<h3>ETA due today</h3>")
		writeTable(&b, brief.DueToday)
	}
	b.WriteString("<p>This is an automated message.</p></body></html>")
	return m.send(ctx, to, subject, b.String())
}

func writeTable(b *strings.Builder, payloads []ledger.NotificationPayload) {
	b.WriteString(`<table border="1" cellpadding="4" cellspacing="0">`)
	b.WriteString("<tr><th>Item</th><th>Description</th><th>Customer</th><th>Status</th><th>Qty</th><th>ETA</th><th>Aging</th></tr>")
	for _, p := range payloads {
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(p.ItemNo),
			html.EscapeString(p.Description),
			html.EscapeString(p.CustomerName),
			html.EscapeString(string(p.Status)),
			p.OrderedQty,
			html.EscapeString(p.ETA),
			html.EscapeString(p.Duration))
	}
	b.WriteString("</table>")
}

func (m *mailer) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	if m.dialer == nil {
		m.logg.Warn(m.logg.WithField(ctx, "subject", subject), "smtp not configured, dropping email")
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	return nil
}
