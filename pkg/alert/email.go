package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the settings needed to deliver alert mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	To       []string
	Subject  string
}

// Validate reports the first missing required setting.
func (c SMTPConfig) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("smtp host is required")
	case c.Port <= 0:
		return fmt.Errorf("smtp port is required")
	case c.Username == "":
		return fmt.Errorf("smtp username is required")
	case c.Password == "":
		return fmt.Errorf("smtp password is required")
	case len(c.To) == 0:
		return fmt.Errorf("at least one alert recipient is required")
	}
	return nil
}

// Sender delivers a batch of alerts.
type Sender interface {
	Send(ctx context.Context, alerts []Alert) error
}

// EmailSender delivers alerts over SMTP. Port 465 uses implicit TLS,
// everything else STARTTLS.
type EmailSender struct {
	cfg SMTPConfig
}

// NewEmailSender validates the config and returns a sender.
func NewEmailSender(cfg SMTPConfig) (*EmailSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailSender{cfg: cfg}, nil
}

// Send implements Sender. Sending an empty batch is a no-op.
func (s *EmailSender) Send(ctx context.Context, alerts []Alert) error {
	alerts = Dedup(alerts)
	if len(alerts) == 0 {
		return nil
	}

	now := time.Now()

	msg := mail.NewMsg()
	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("invalid from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("invalid from address: %w", err)
		}
	}
	if err := msg.To(s.cfg.To...); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(Subject(s.cfg.Subject, len(alerts), now))
	msg.SetBodyString(mail.TypeTextPlain, Body(alerts, now))

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(30 * time.Second),
	}
	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}
	return nil
}

// NopSender discards alerts. Used when alerting is disabled.
type NopSender struct{}

// Send implements Sender.
func (NopSender) Send(context.Context, []Alert) error { return nil }
