// Package mail hands confirmation e-mails to an out-of-process delivery
// worker. The API side only enqueues; cmd/worker delivers.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const TypeConfirmation = "confirmation_email"

type Confirmation struct {
	To       string
	Username string
	Code     string
	Subject  string
	Body     string
}

// Sender is the registration flow's view of outbound mail.
type Sender interface {
	SendConfirmationEmail(ctx context.Context, msg Confirmation) error
}

// StreamSender appends messages to a Redis stream consumed by the worker.
type StreamSender struct {
	client *redis.Client
	stream string
}

func NewStreamSender(client *redis.Client, stream string) *StreamSender {
	return &StreamSender{client: client, stream: stream}
}

func (s *StreamSender) SendConfirmationEmail(ctx context.Context, msg Confirmation) error {
	_, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":     TypeConfirmation,
			"to":       msg.To,
			"username": msg.Username,
			"subject":  msg.Subject,
			"body":     msg.Body,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue confirmation for %s: %w", msg.Username, err)
	}
	return nil
}

type Message struct {
	To      string
	Subject string
	Body    string
}

// Deliverer sends a rendered message.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

type SMTPDeliverer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPDeliverer(addr, from, username, password string) *SMTPDeliverer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPDeliverer{addr: addr, from: from, auth: auth}
}

func (d *SMTPDeliverer) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload := strings.Join([]string{
		"From: " + d.from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		msg.Body,
	}, "\r\n")

	if err := smtp.SendMail(d.addr, d.auth, d.from, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogDeliverer writes messages to the log instead of sending them. Used when
// no SMTP server is configured.
type LogDeliverer struct {
	log zerolog.Logger
}

func NewLogDeliverer(log zerolog.Logger) *LogDeliverer {
	return &LogDeliverer{log: log}
}

func (d *LogDeliverer) Deliver(_ context.Context, msg Message) error {
	d.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("mail delivery (log only)")
	return nil
}
