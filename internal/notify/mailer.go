package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

type SMTPConfig struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

// SMTPMailer delivers reset links over plain SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer { return &SMTPMailer{cfg: cfg} }

func (m *SMTPMailer) Send(ctx context.Context, to, resetLink string) error {
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Password reset instructions\r\n\r\n"+
			"A password reset was requested for your account.\r\n\r\n"+
			"Follow this link within the next hour to choose a new password:\r\n%s\r\n\r\n"+
			"If you did not request this, you can ignore this message.\r\n",
		m.cfg.From, to, resetLink,
	)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		host, _, _ := splitHost(m.cfg.Addr)
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}
	return smtp.SendMail(m.cfg.Addr, auth, m.cfg.From, []string{to}, []byte(body))
}

func splitHost(addr string) (host, port string, ok bool) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], true
		}
	}
	return addr, "", false
}

// LogMailer is the no-op implementation used in dev and tests: it
// records the delivery instead of performing it.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, resetLink string) error {
	slog.Info("reset link (log mailer)", "to", to, "link", resetLink)
	return nil
}
