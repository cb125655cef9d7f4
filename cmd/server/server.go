package main

import (
	"context"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/crontab"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/telegram"
	"github.com/jarvishq/jarvis-server/internal/interfaces/httpserver"
)

type Application struct {
	HTTPServer *httpserver.HTTPServer
	Poller     *telegram.Poller
	Crontab    *crontab.Crontab
	Config     *config.Config
}

func init() {
	_ = godotenv.Load()
	logger.GetLogger()
}

// @title Jarvis Assistant API
// @version 1.0
// @description Conversational personal finance assistant with spending limits and alerts.
// @BasePath /

// @securityDefinitions.apikey ServiceKeyAuth
// @in header
// @name X-Service-Key
func (application *Application) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var eg errgroup.Group
	eg.Go(func() error {
		err := application.HTTPServer.Run()
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := application.HTTPServer.RunMetrics()
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := application.Crontab.Run(ctx)
		if err != nil {
			cancel()
		}
		return err
	})
	if application.Config.TelegramEnabled() {
		eg.Go(func() error {
			err := application.Poller.Run(ctx)
			if err != nil {
				cancel()
			}
			return err
		})
	}

	if err := eg.Wait(); err != nil && err != context.Canceled {
		panic(err)
	}
}

func main() {
	log := logger.GetLogger()

	application, err := CreateApplication()
	if err != nil {
		log.Fatal().Err(err).Msg("create application")
	}

	log.Info().
		Int("http_port", application.Config.HTTPPort).
		Int("metrics_port", application.Config.MetricsPort).
		Bool("telegram", application.Config.TelegramEnabled()).
		Msg("starting jarvis server")

	application.Start()
}
