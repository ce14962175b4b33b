package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Send delivers a single HTML message.
func (s SMTPSender) Send(to, subject, html string) error {
	if s.Host == "" || s.From == "" {
		return fmt.Errorf("smtp sender not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		html,
	}, "\r\n")
	return smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg))
}
