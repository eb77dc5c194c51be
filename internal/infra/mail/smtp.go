package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"

	"staybook/internal/app/policies"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS requires STARTTLS; without it the connection stays plain (local relays, mailpit).
	TLS     bool
	From    string
	Timeout time.Duration
}

// SMTPNotifier sends one message per notification over SMTP.
type SMTPNotifier struct {
	cfg       SMTPConfig
	templates *Templates
	logger    *slog.Logger
}

func NewSMTPNotifier(cfg SMTPConfig, templates *Templates, logger *slog.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail: from address is required")
	}
	if templates == nil {
		return nil, errors.New("mail: templates are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPNotifier{cfg: cfg, templates: templates, logger: logger}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, note policies.Notification) error {
	msg, err := n.message(note)
	if err != nil {
		return err
	}
	client, err := n.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: send %s to %s: %w", note.Template, note.To, err)
	}
	if n.logger != nil {
		n.logger.Debug("mail sent", "template", note.Template, "to", note.To)
	}
	return nil
}

func (n *SMTPNotifier) message(note policies.Notification) (*gomail.Msg, error) {
	subject, body, err := n.templates.Render(note)
	if err != nil {
		return nil, err
	}
	msg := gomail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("mail: from: %w", err)
	}
	if err := msg.To(note.To); err != nil {
		return nil, fmt.Errorf("mail: to %q: %w", note.To, err)
	}
	if note.ReplyTo != "" {
		if err := msg.ReplyTo(note.ReplyTo); err != nil {
			return nil, fmt.Errorf("mail: reply-to %q: %w", note.ReplyTo, err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}

func (n *SMTPNotifier) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(n.cfg.Port),
		gomail.WithTimeout(n.cfg.Timeout),
	}
	if n.cfg.TLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(n.cfg.Username),
			gomail.WithPassword(n.cfg.Password),
		)
	}
	client, err := gomail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: client: %w", err)
	}
	return client, nil
}

// LogNotifier renders notifications and logs them instead of sending; used when no SMTP
// host is configured.
type LogNotifier struct {
	Templates *Templates
	Logger    *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, note policies.Notification) error {
	subject, body, err := n.Templates.Render(note)
	if err != nil {
		return err
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail (not sent)", "template", note.Template, "to", note.To, "reply_to", note.ReplyTo, "subject", subject, "body", body)
	return nil
}

var (
	_ policies.Notifier = (*SMTPNotifier)(nil)
	_ policies.Notifier = LogNotifier{}
)
