// Package mail delivers order confirmation emails over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/trungdn/milk-sell-agent/agent/contract"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
)

type Config struct {
	Host        string        `envconfig:"HOST" split_words:"true"`
	Port        string        `envconfig:"PORT" split_words:"true" default:"587"`
	Username    string        `envconfig:"USERNAME" split_words:"true"`
	Password    string        `envconfig:"PASSWORD" split_words:"true"`
	From        string        `envconfig:"FROM" split_words:"true"`
	SenderName  string        `envconfig:"SENDER_NAME" split_words:"true" default:"Milk Shop"`
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"10s"`
}

// SMTPMailer sends through a plain SMTP endpoint, upgrading to TLS when
// the server advertises STARTTLS. The context deadline is pushed down to
// the socket so a stalled server cannot hang a purchase turn.
type SMTPMailer struct {
	host        string
	port        string
	username    string
	password    string
	from        string
	senderName  string
	dialTimeout time.Duration
	log         zerolog.Logger
}

func New(cfg Config) (*SMTPMailer, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}
	if from == "" {
		return nil, errors.New("smtp sender address is required")
	}
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "587"
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	return &SMTPMailer{
		host:        host,
		port:        port,
		username:    strings.TrimSpace(cfg.Username),
		password:    cfg.Password,
		from:        from,
		senderName:  strings.TrimSpace(cfg.SenderName),
		dialTimeout: dialTimeout,
		log:         logx.Component("mail"),
	}, nil
}

// FromConfig returns a working mailer when SMTP is configured and the
// disabled one otherwise, so purchases degrade to a delivery failure
// instead of refusing to start.
func FromConfig(cfg Config) contractx.Mailer {
	mailer, err := New(cfg)
	if err != nil {
		logx.Component("mail").Warn().Err(err).Msg("smtp not configured, email delivery disabled")
		return Disabled{}
	}
	return mailer
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string, html bool) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("recipient address is required")
	}

	addr := net.JoinHostPort(m.host, m.port)
	dialer := net.Dialer{Timeout: m.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(m.message(to, subject, body, html)); err != nil {
		writer.Close()
		return fmt.Errorf("smtp write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", err)
	}

	m.log.Debug().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// message assembles the MIME envelope. Subjects carry Vietnamese text, so
// non-ASCII header values go through RFC 2047 encoding.
func (m *SMTPMailer) message(to, subject, body string, html bool) []byte {
	from := m.from
	if m.senderName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.senderName), m.from)
	}
	contentType := "text/plain; charset=UTF-8"
	if html {
		contentType = "text/html; charset=UTF-8"
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: " + contentType + "\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// Disabled is the mailer wired in when SMTP is not configured. Every Send
// fails, which the purchase flow reports as a delivery failure.
type Disabled struct{}

func (Disabled) Send(ctx context.Context, to, subject, body string, html bool) error {
	return errors.New("smtp mailer is not configured")
}
