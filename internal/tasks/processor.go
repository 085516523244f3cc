package tasks

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"webrecorder/api/internal/mail"
)

// Processor turns mail stream entries into deliveries.
type Processor struct {
	deliverer mail.Deliverer
	logger    zerolog.Logger
}

type TaskPayload struct {
	Type     string `mapstructure:"type"`
	To       string `mapstructure:"to"`
	Username string `mapstructure:"username"`
	Subject  string `mapstructure:"subject"`
	Body     string `mapstructure:"body"`
}

func NewProcessor(deliverer mail.Deliverer, logger zerolog.Logger) *Processor {
	return &Processor{
		deliverer: deliverer,
		logger:    logger,
	}
}

// Handle returns an error only for failures worth retrying. Malformed and
// unknown entries are logged and dropped.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := mapstructure.WeakDecode(msg.Values, &payload); err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("undecodable task dropped")
		return nil
	}

	switch payload.Type {
	case mail.TypeConfirmation:
		return p.handleConfirmation(ctx, msg.ID, payload)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleConfirmation(ctx context.Context, id string, payload TaskPayload) error {
	if payload.To == "" {
		p.logger.Warn().Str("message_id", id).Msg("confirmation without recipient dropped")
		return nil
	}

	err := p.deliverer.Deliver(ctx, mail.Message{
		To:      payload.To,
		Subject: payload.Subject,
		Body:    payload.Body,
	})
	if err != nil {
		return fmt.Errorf("deliver confirmation for %s: %w", payload.Username, err)
	}

	p.logger.Info().Str("username", payload.Username).Str("message_id", id).Msg("confirmation delivered")
	return nil
}
