package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"loyalty/internal/server/config"
	"loyalty/internal/server/httpapi"
	"loyalty/internal/server/repository/sqlite"
	"loyalty/internal/server/service"
)

const purgeInterval = 15 * time.Minute

type App struct {
	version   string
	buildDate string
	logger    *logrus.Logger
	server    *http.Server
	services  *service.Services
	repoClose io.Closer
}

func New(version, buildDate string, cfg config.Config, logger *logrus.Logger) (*App, error) {
	repo, err := sqlite.New(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services := service.NewServices(repo, cfg, logger)
	router := httpapi.NewRouter(services, logger, httpapi.Options{
		MaxRequestBytes: cfg.MaxRequestBytes,
		RateLimit:       cfg.RateLimit,
		RateBurst:       cfg.RateBurst,
		Registry:        reg,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &App{
		version:   version,
		buildDate: buildDate,
		logger:    logger,
		server:    server,
		services:  services,
		repoClose: repo,
	}, nil
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = a.repoClose.Close() }()

	go a.purgeRevoked(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	a.logger.WithFields(logrus.Fields{
		"version": a.version,
		"build":   a.buildDate,
		"addr":    a.server.Addr,
	}).Info("loyalty server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

// purgeRevoked periodically drops revocation entries for expired tokens.
func (a *App) purgeRevoked(ctx context.Context) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.services.Auth.PurgeRevoked(ctx)
			if err != nil {
				a.logger.WithError(err).Warn("purge revoked tokens")
				continue
			}
			if n > 0 {
				a.logger.WithField("purged", n).Debug("revoked tokens purged")
			}
		}
	}
}
