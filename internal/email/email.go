package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message is one transactional email. Tag names the flow that sent it and
// is attached to the provider request for filtering.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tag     string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Identity is who the shop mails as.
type Identity struct {
	From    string
	ReplyTo string
}

type SenderConfig struct {
	Env      string
	APIKey   string
	Identity Identity
}

// LogSender writes messages to the log instead of delivering them. Used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent (local)",
		"to", msg.To, "subject", msg.Subject, "tag", msg.Tag, "text", msg.Text)
	return nil
}

// ResendSender delivers through the Resend API. Outside production the
// subject carries the environment so test mail is never mistaken for real.
type ResendSender struct {
	client   *resend.Client
	env      string
	identity Identity
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if _, err := s.client.Emails.SendWithContext(ctx, s.request(msg)); err != nil {
		return fmt.Errorf("send %s email: %w", msg.Tag, err)
	}
	return nil
}

func (s *ResendSender) request(msg Message) *resend.SendEmailRequest {
	subject := msg.Subject
	if s.env != "production" {
		subject = "[" + s.env + "] " + subject
	}
	req := &resend.SendEmailRequest{
		From:    s.identity.From,
		To:      []string{msg.To},
		ReplyTo: s.identity.ReplyTo,
		Subject: subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Tags:    []resend.Tag{{Name: "env", Value: s.env}},
	}
	if msg.Tag != "" {
		req.Tags = append(req.Tags, resend.Tag{Name: "flow", Value: msg.Tag})
	}
	return req
}

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(cfg SenderConfig, logger *slog.Logger) Sender {
	if cfg.Env == "local" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{
		client:   resend.NewClient(cfg.APIKey),
		env:      cfg.Env,
		identity: cfg.Identity,
	}
}
