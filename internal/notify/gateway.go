package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	mail "github.com/wneessen/go-mail"
)

// Message kinds, also used as metric labels.
const (
	KindBorrowConfirmation = "borrow_confirmation"
	KindDueTomorrow        = "due_tomorrow"
	KindOverdue            = "overdue"
)

// Message is one outgoing notification.
type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Gateway delivers a message to its address.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures the mail gateway.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPGateway sends mail over SMTP with STARTTLS.
type SMTPGateway struct {
	cfg SMTPConfig
}

// NewSMTPGateway validates cfg and builds the gateway.
func NewSMTPGateway(cfg SMTPConfig) (*SMTPGateway, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp host and sender address required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &SMTPGateway{cfg: cfg}, nil
}

// NewGateway returns the SMTP gateway, or a LogGateway when no host is configured.
func NewGateway(cfg SMTPConfig) (Gateway, error) {
	if cfg.Host == "" {
		log.Println("SMTP not configured (SMTP_HOST not set), notifications are only logged")
		return LogGateway{}, nil
	}
	return NewSMTPGateway(cfg)
}

// Send dials, authenticates and delivers one message. A fresh client per call keeps one
// stuck connection from affecting other recipients.
func (g *SMTPGateway) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(g.cfg.From); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("recipient %s: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{
		mail.WithPort(g.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(g.cfg.Timeout),
	}
	if g.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(g.cfg.Username),
			mail.WithPassword(g.cfg.Password),
		)
	}
	client, err := mail.NewClient(g.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send to %s: %w", msg.To, err)
	}
	return nil
}

// LogGateway only logs messages. Used when SMTP is not configured.
type LogGateway struct{}

// Send logs the message and reports success.
func (LogGateway) Send(_ context.Context, msg Message) error {
	log.Printf("mail (not sent, smtp unconfigured) to=%s subject=%q", msg.To, msg.Subject)
	return nil
}
