package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/skyplan/config"
	"github.com/Domenick1991/skyplan/internal/amqp"
	"github.com/Domenick1991/skyplan/internal/bootstrap"
	"github.com/Domenick1991/skyplan/internal/email"
	"github.com/Domenick1991/skyplan/internal/kafka"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	cfgPath := pflag.String("config", config.DefaultPath(), "path to the YAML config")
	pflag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatalf("wire app: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.WithError(err).Warn("close app")
		}
	}()

	sender := email.NewSender(log)
	switch cfg.Notifications.Driver {
	case "kafka":
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log)
		defer consumer.Close()
		go func() {
			if err := consumer.Consume(ctx, sender.Handle); err != nil {
				log.WithError(err).Warn("kafka consumer stopped")
			}
		}()
	case "amqp":
		consumer, err := amqp.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Fatalf("amqp consumer: %v", err)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Consume(ctx, sender.Handle); err != nil {
				log.WithError(err).Warn("amqp consumer stopped")
			}
		}()
	}

	holdTicker := time.NewTicker(time.Duration(cfg.Worker.HoldSweepSeconds) * time.Second)
	defer holdTicker.Stop()
	expireTicker := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer expireTicker.Stop()

	log.WithFields(logrus.Fields{
		"hold_sweep_seconds": cfg.Worker.HoldSweepSeconds,
		"notifications":      cfg.Notifications.Driver,
	}).Info("worker started")

	for {
		select {
		case <-holdTicker.C:
			released, err := app.Seats.SweepExpired(ctx, 0)
			if err != nil {
				log.WithError(err).Error("sweep expired holds")
				continue
			}
			if len(released) > 0 {
				log.WithField("released", len(released)).Info("expired seat holds released")
			}
		case <-expireTicker.C:
			expired, err := app.Bookings.ExpirePendingBookings(ctx)
			if err != nil {
				log.WithError(err).Error("expire bookings")
				continue
			}
			if len(expired) > 0 {
				log.WithField("expired", len(expired)).Info("pending bookings expired")
			}
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		}
	}
}
