package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPConfig holds the relay settings for SMTP outreach. All five
// fields are required; a missing one is a configuration error caught
// before any send is attempted.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Port == 0 {
		missing = append(missing, "port")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.From == "" {
		missing = append(missing, "from")
	}
	if len(missing) > 0 {
		return fmt.Errorf("smtp transport: missing settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SMTPTransport delivers through a single SMTP session per batch:
// dial, STARTTLS when the server offers it, AUTH PLAIN, then one
// MAIL/RCPT/DATA transaction per recipient.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport validates the relay settings up front so a
// misconfigured batch fails before a connection is ever dialed.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SMTPTransport{cfg: cfg}, nil
}

// From returns the configured sender address.
func (t *SMTPTransport) From() string { return t.cfg.From }

// Open dials the relay and authenticates. Any failure here is a
// connectivity/configuration error that aborts the whole batch.
func (t *SMTPTransport) Open(ctx context.Context) (Session, error) {
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)
	dialer := &net.Dialer{Timeout: 30 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp connect to %s: %w", addr, err)
	}
	c, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: t.cfg.Host}); err != nil {
			c.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if err := c.Auth(&plainAuth{user: t.cfg.Username, pass: t.cfg.Password}); err != nil {
		c.Close()
		return nil, fmt.Errorf("smtp auth: %w", err)
	}
	return &smtpSession{client: c}, nil
}

type smtpSession struct {
	client *smtp.Client
}

// Send runs one SMTP transaction. On a mid-transaction error the
// session is reset so the next recipient starts clean.
func (s *smtpSession) Send(from, to, subject, body string) error {
	fail := func(stage string, err error) error {
		s.client.Reset()
		return fmt.Errorf("%s: %w", stage, err)
	}

	if err := s.client.Mail(from); err != nil {
		return fail("MAIL FROM", err)
	}
	if err := s.client.Rcpt(to); err != nil {
		return fail("RCPT TO", err)
	}
	w, err := s.client.Data()
	if err != nil {
		return fail("DATA", err)
	}
	if _, err := w.Write(buildMessage(from, to, subject, body)); err != nil {
		w.Close()
		return fail("write", err)
	}
	if err := w.Close(); err != nil {
		return fail("DATA close", err)
	}
	return nil
}

func (s *smtpSession) Close() error {
	if err := s.client.Quit(); err != nil {
		return s.client.Close()
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString(fmt.Sprintf("Message-ID: <%s@cdp-console>\r\n", uuid.New().String()))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// plainAuth implements AUTH PLAIN without stdlib's TLS requirement,
// since internal relays frequently run without TLS on the submission
// port.
type plainAuth struct {
	user, pass string
}

func (a *plainAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "PLAIN", []byte("\x00" + a.user + "\x00" + a.pass), nil
}

func (a *plainAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	return nil, nil
}
