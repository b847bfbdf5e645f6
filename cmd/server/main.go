package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"loyalty/internal/server/app"
	"loyalty/internal/server/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	application, err := app.New(version, buildDate, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to init server")
	}
	if err := application.Run(); err != nil {
		logger.WithError(err).Fatal("server stopped with error")
	}
}
