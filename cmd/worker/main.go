package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"webrecorder/api/internal/cache"
	"webrecorder/api/internal/config"
	"webrecorder/api/internal/log"
	"webrecorder/api/internal/mail"
	"webrecorder/api/internal/queue"
	"webrecorder/api/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment).With().Str("component", "mail-worker").Logger()

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	var deliverer mail.Deliverer = mail.NewLogDeliverer(logger)
	if cfg.Mail.SMTPAddr != "" {
		deliverer = mail.NewSMTPDeliverer(cfg.Mail.SMTPAddr, cfg.Mail.From, cfg.Mail.SMTPUser, cfg.Mail.SMTPPass)
	} else {
		logger.Warn().Msg("mail.smtpaddr not set, confirmations are only logged")
	}

	processor := tasks.NewProcessor(deliverer, logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Mail.Stream,
		cfg.Queue.Group,
		cfg.Queue.Consumer,
		cfg.Queue.ClaimInterval,
		cfg.Queue.MaxDeliveries,
		logger,
		processor,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
