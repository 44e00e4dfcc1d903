package digest

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/go-pkgz/lgr"
	"golang.org/x/net/idna"

	"github.com/umputun/newsdigest/pkg/domain"
)

// port used for SMTP over implicit TLS
const smtpsPort = 465

// Mailer delivers digest messages over SMTP with the sender's credentials
type Mailer struct {
	timeout   time.Duration
	tlsConfig *tls.Config
	smtpsPort int
}

// NewMailer makes a mailer, timeout limits the dial and every SMTP command, zero keeps the go-smtp defaults.
// tlsConfig is optional, it is cloned for every connection with ServerName set to the SMTP host.
func NewMailer(timeout time.Duration, tlsConfig *tls.Config) *Mailer {
	return &Mailer{timeout: timeout, tlsConfig: tlsConfig, smtpsPort: smtpsPort}
}

// Send connects to the settings' SMTP server, upgrades the connection to TLS, authenticates
// with PLAIN and delivers the message to the recipient. Port 465 uses implicit TLS, any other
// port requires STARTTLS. Canceling ctx aborts the exchange at any point.
func (m *Mailer) Send(ctx context.Context, s domain.Settings, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send to %s: %w", s.RecipientEmail, err)
	}

	host, err := idna.Lookup.ToASCII(s.SMTPServer)
	if err != nil {
		return fmt.Errorf("invalid smtp server %q: %w", s.SMTPServer, err)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(s.SMTPPort))
	tlsConfig := m.connTLSConfig(host)

	data, err := msg.Render()
	if err != nil {
		return fmt.Errorf("render message: %w", err)
	}

	conn, err := m.dial(ctx, addr, s.SMTPPort == m.smtpsPort, tlsConfig)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client := smtp.NewClient(conn)
	defer client.Close()

	if m.timeout > 0 {
		client.CommandTimeout = m.timeout
		client.SubmissionTimeout = m.timeout
	}

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("greet %s: %w", addr, m.ctxErr(ctx, err))
	}

	if s.SMTPPort != m.smtpsPort {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("smtp server %s does not support STARTTLS", addr)
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls with %s: %w", addr, m.ctxErr(ctx, err))
		}
	}

	if err := client.Auth(sasl.NewPlainClient("", s.SenderEmail, s.SenderPassword)); err != nil {
		return fmt.Errorf("authenticate %s: %w", s.SenderEmail, m.ctxErr(ctx, err))
	}

	if err := client.SendMail(msg.From, []string{msg.To}, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("deliver to %s: %w", msg.To, m.ctxErr(ctx, err))
	}

	if err := client.Quit(); err != nil {
		lgr.Printf("[DEBUG] smtp quit for %s: %v", addr, err)
	}
	return nil
}

func (m *Mailer) connTLSConfig(host string) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if m.tlsConfig != nil {
		cfg = m.tlsConfig.Clone()
		if cfg.MinVersion == 0 {
			cfg.MinVersion = tls.VersionTLS12
		}
	}
	cfg.ServerName = host
	return cfg
}

func (m *Mailer) dial(ctx context.Context, addr string, implicitTLS bool, tlsConfig *tls.Config) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: m.timeout}
	if implicitTLS {
		return (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// ctxErr reports the context error instead of the closed connection error it caused
func (m *Mailer) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
