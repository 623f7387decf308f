package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/skyplan/config"
	"github.com/Domenick1991/skyplan/internal/bootstrap"
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

	if err := bootstrap.Run(ctx, cfg, app.Router(), log); err != nil {
		log.Errorf("server error: %v", err)
	}
}
