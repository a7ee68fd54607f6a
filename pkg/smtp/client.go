package smtp

import (
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// Config holds SMTP transport configuration.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromEmail  string
	FromName   string
	ReplyTo    string
	TLSEnabled bool
}

// Client sends mail over a single configured SMTP relay.
type Client struct {
	cfg  Config
	addr string
}

// NewClient creates an SMTP client with explicit configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is not configured")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.Username
	}
	if cfg.ReplyTo == "" {
		cfg.ReplyTo = cfg.FromEmail
	}
	return &Client{
		cfg:  cfg,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}, nil
}

// Send delivers a multipart/alternative message (text + HTML) to a single
// recipient. It returns an error on any transport failure.
func (c *Client) Send(to, subject, htmlBody, textBody string) error {
	if to == "" {
		return fmt.Errorf("recipient is required")
	}
	if subject == "" {
		return fmt.Errorf("subject is required")
	}
	if htmlBody == "" && textBody == "" {
		return fmt.Errorf("message body is required")
	}

	msg := c.buildMessage(to, subject, htmlBody, textBody)

	conn, err := smtp.Dial(c.addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	if c.cfg.TLSEnabled {
		if ok, _ := conn.Extension("STARTTLS"); ok {
			tlsCfg := &tls.Config{ServerName: c.cfg.Host, MinVersion: tls.VersionTLS12}
			if err := conn.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if c.cfg.Username != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
		if err := conn.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := conn.Mail(c.cfg.FromEmail); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to %s: %w", to, err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return conn.Quit()
}

func (c *Client) buildMessage(to, subject, htmlBody, textBody string) string {
	const boundary = "leadsflow-alt-boundary"

	from := c.cfg.FromEmail
	if c.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", c.cfg.FromName), c.cfg.FromEmail)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Reply-To: %s\r\n", c.cfg.ReplyTo)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case htmlBody != "" && textBody != "":
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, textBody)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, htmlBody)
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	case htmlBody != "":
		fmt.Fprintf(&b, "Content-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", htmlBody)
	default:
		fmt.Fprintf(&b, "Content-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", textBody)
	}

	return b.String()
}
