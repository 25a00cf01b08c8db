package identity

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
)

// Mailer delivers password-reset links.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: host + ":" + strconv.Itoa(port),
		auth: auth,
		from: from,
		send: smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")
	if err := m.send(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes mails to the log instead of sending them. It is used when
// SMTP_HOST is empty and keeps a copy of everything it was given.
type LogMailer struct {
	mu   sync.Mutex
	sent []Mail
}

type Mail struct {
	To      string
	Subject string
	Body    string
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	m.sent = append(m.sent, Mail{To: to, Subject: subject, Body: body})
	m.mu.Unlock()
	log.Printf("📧 [Mail] to=%s subject=%q\n%s", to, subject, body)
	return nil
}

func (m *LogMailer) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.sent...)
}
