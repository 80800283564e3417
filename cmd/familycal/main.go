package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tazhate/familycal/config"
	"github.com/tazhate/familycal/internal/api"
	"github.com/tazhate/familycal/internal/bot"
	"github.com/tazhate/familycal/internal/export"
	"github.com/tazhate/familycal/internal/scheduler"
	"github.com/tazhate/familycal/internal/service"
	"github.com/tazhate/familycal/internal/storage"
)

func main() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().
		Timestamp().
		Logger()

	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Инициализация storage
	persistence, closeStorage, err := openStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("Failed to init storage")
	}
	defer closeStorage()

	store := service.NewEventStore(persistence, component(logger, "store"))
	exporter := export.NewFileExporter(cfg.ExportDir)
	apiServer := api.New(cfg, store, exporter, component(logger, "api"))

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sched *scheduler.Scheduler
	if cfg.BotEnabled() {
		tgBot, err := bot.New(cfg, store, exporter, component(logger, "bot"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to init bot")
		}

		// Настройка webhook
		if cfg.WebhookURL != "" {
			apiServer.Handle(bot.WebhookPath, tgBot.WebhookHandler())
			if err := tgBot.SetupWebhook(); err != nil {
				logger.Fatal().Err(err).Msg("Failed to setup webhook")
			}
		}

		sched = scheduler.New(cfg, store, component(logger, "scheduler"))
		sched.SetSender(tgBot)

		go func() {
			if err := sched.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("Scheduler error")
			}
		}()

		go func() {
			if err := tgBot.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("Bot error")
			}
		}()
	} else {
		logger.Info().Msg("TELEGRAM_BOT_TOKEN not set, bot and scheduler disabled")
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiServer.Start()
	}()

	logger.Info().Int("events", store.Len()).Str("tz", cfg.Timezone.String()).Msg("FamilyCal started")

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down...")
	}

	// Graceful shutdown
	cancel()
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping HTTP server")
	}

	logger.Info().Msg("FamilyCal stopped")
}

func openStorage(cfg *config.Config) (service.Persistence, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageJSON:
		return storage.NewJSONFile(cfg.EventsFile, cfg.Timezone), func() {}, nil
	default:
		db, err := storage.New(cfg.DatabasePath, cfg.Timezone)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	}
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
