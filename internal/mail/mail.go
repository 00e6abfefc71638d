// Package mail delivers rendered PDF reports over SMTP.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"

	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/validate"
)

const (
	// AttachmentName is the file name of the attached report
	AttachmentName = "Analysis_Results.pdf"

	// BodyText is the plain-text body of every report e-mail
	BodyText = "Please find attached the analysis results PDF."

	defaultPort    = 587
	defaultTimeout = 30 * time.Second
)

// ErrNotConfigured is returned when no SMTP host or sender is set
var ErrNotConfigured = errors.New("mail delivery not configured")

// dialAndSend connects, requires STARTTLS, authenticates and sends.
// Replaced in tests.
var dialAndSend = func(ctx context.Context, c *gomail.Client, m *gomail.Msg) error {
	return c.DialAndSendWithContext(ctx, m)
}

// Dispatcher sends reports to recipients
type Dispatcher struct {
	cfg     model.MailConfig
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewDispatcher creates a dispatcher for the SMTP settings in cfg
func NewDispatcher(cfg model.MailConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cfg: cfg, logger: logger, now: time.Now, timeout: defaultTimeout}
}

// Configured reports whether the dispatcher can send at all
func (d *Dispatcher) Configured() bool {
	return d.cfg.Host != "" && d.sender() != ""
}

// Send validates recipient and mails the PDF attachment to it. An invalid
// recipient is reported before any connection is made.
func (d *Dispatcher) Send(ctx context.Context, recipient string, attachment []byte) error {
	to, err := validate.Recipient(recipient)
	if err != nil {
		return err
	}
	if !d.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(d.sender(), to, attachment, d.now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	client, err := gomail.NewClient(d.cfg.Host, d.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := dialAndSend(ctx, client, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	d.logger.Info("report e-mailed", "to", to, "bytes", len(attachment))
	return nil
}

func (d *Dispatcher) clientOptions() []gomail.Option {
	port := d.cfg.Port
	if port == 0 {
		port = defaultPort
	}
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(d.timeout),
	}
	if d.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(d.cfg.Username),
			gomail.WithPassword(d.cfg.Password),
		)
	}
	return opts
}

func (d *Dispatcher) sender() string {
	if d.cfg.From != "" {
		return d.cfg.From
	}
	return d.cfg.Username
}

// buildMessage assembles the report e-mail: a text body plus the PDF
// attachment
func buildMessage(from, to string, attachment []byte, date time.Time) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, err
	}
	if err := m.To(to); err != nil {
		return nil, err
	}
	m.Subject(model.ReportTitle)
	m.SetDateWithValue(date)
	m.SetMessageIDWithValue(uuid.NewString() + "@legalens")
	m.SetBodyString(gomail.TypeTextPlain, BodyText)
	if err := m.AttachReader(AttachmentName, bytes.NewReader(attachment),
		gomail.WithFileContentType("application/pdf")); err != nil {
		return nil, err
	}
	return m, nil
}
