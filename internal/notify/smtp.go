package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/droverdev/drover/internal/config"
)

// Mailer sends mail over plain SMTP. Script output routed to "email" ends
// up here, either to the configured default recipients or to a caller
// override list.
type Mailer struct {
	cfg config.MailConfig
	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer builds a Mailer, or nil when no SMTP host is configured.
func NewMailer(cfg config.MailConfig) *Mailer {
	if cfg.Host == "" {
		return nil
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

func (m *Mailer) Name() string { return "smtp" }

// Send delivers one message. Empty Recipients falls back to the default
// list from config.
func (m *Mailer) Send(_ context.Context, n Notice) error {
	to := n.Recipients
	if len(to) == 0 {
		to = m.cfg.Recipients
	}
	if len(to) == 0 {
		return fmt.Errorf("smtp: no recipients")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", n.Subject)
	b.WriteString("\r\n")
	b.WriteString(n.Body)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, to, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp: send to %s: %w", strings.Join(to, ","), err)
	}
	return nil
}
