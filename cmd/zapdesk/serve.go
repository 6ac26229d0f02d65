package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/zapdesk/zapdesk/internal/assistant"
	"github.com/zapdesk/zapdesk/internal/audio"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/dataset"
	"github.com/zapdesk/zapdesk/internal/db"
	"github.com/zapdesk/zapdesk/internal/handlers"
	"github.com/zapdesk/zapdesk/internal/inbound"
	"github.com/zapdesk/zapdesk/internal/logger"
	"github.com/zapdesk/zapdesk/internal/server"
	"github.com/zapdesk/zapdesk/internal/users"
	"github.com/zapdesk/zapdesk/internal/whatsapp"
)

const (
	dedupWindow   = 6 * time.Hour
	dedupCapacity = 10000
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideUserService,
			provideWhatsAppClient,
			provideOpenAIClient,
			provideAudioService,
			provideDatasetService,
			provideOrchestrator,
			provideDeduper,
			provideProcessor,
			handlers.NewPingHandler,
			provideWebhookHandler,
			provideAskHandler,
			provideServer,
		),
		fx.Invoke(
			startHousekeeping,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideUserService(log *slog.Logger, conn *pgxpool.Pool) *users.Service {
	return users.NewService(log, conn)
}

func provideWhatsAppClient(log *slog.Logger, cfg config.Config) *whatsapp.Client {
	return whatsapp.NewClient(log, cfg.WhatsApp)
}

func provideOpenAIClient(cfg config.Config) *openai.Client {
	return assistant.NewBackendClient(cfg.OpenAI)
}

func provideAudioService(log *slog.Logger, client *whatsapp.Client, backend *openai.Client, cfg config.Config) *audio.Service {
	return audio.NewService(log, client, backend, cfg.Audio)
}

func provideDatasetService(log *slog.Logger, cfg config.Config) *dataset.Service {
	return dataset.NewService(log, cfg.Dataset.CSVPath)
}

func provideOrchestrator(log *slog.Logger, backend *openai.Client, userService *users.Service, datasetService *dataset.Service, audioService *audio.Service, cfg config.Config) *assistant.Orchestrator {
	return assistant.NewOrchestrator(log, backend, userService, datasetService, audioService, cfg.OpenAI)
}

func provideDeduper() *inbound.Deduper {
	return inbound.NewDeduper(dedupWindow, dedupCapacity)
}

func provideProcessor(log *slog.Logger, userService *users.Service, orchestrator *assistant.Orchestrator, audioService *audio.Service, dedup *inbound.Deduper) *inbound.Processor {
	return inbound.NewProcessor(log, userService, orchestrator, audioService, dedup)
}

func provideWebhookHandler(log *slog.Logger, processor *inbound.Processor, client *whatsapp.Client, cfg config.Config) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, processor, client, cfg.WhatsApp)
}

func provideAskHandler(log *slog.Logger, orchestrator *assistant.Orchestrator) *handlers.AskHandler {
	return handlers.NewAskHandler(log, orchestrator)
}

func provideServer(log *slog.Logger, cfg config.Config, pingHandler *handlers.PingHandler, webhookHandler *handlers.WebhookHandler, askHandler *handlers.AskHandler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Auth.JWTSecret, pingHandler, webhookHandler, askHandler)
}

// startHousekeeping loads the auxiliary dataset and schedules the periodic
// jobs: dataset reload and audio temp-file sweeps.
func startHousekeeping(lc fx.Lifecycle, log *slog.Logger, datasetService *dataset.Service, audioService *audio.Service, cfg config.Config) {
	scheduler := cron.New()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := datasetService.Load(); err != nil {
				log.Warn("dataset load failed", slog.Any("error", err))
			}
			if _, err := scheduler.AddFunc(cfg.Dataset.ReloadSchedule, func() {
				if err := datasetService.Reload(); err != nil {
					log.Warn("dataset reload failed", slog.Any("error", err))
				}
			}); err != nil {
				return fmt.Errorf("schedule dataset reload: %w", err)
			}
			if _, err := scheduler.AddFunc(cfg.Audio.SweepSchedule, audioService.Sweep); err != nil {
				return fmt.Errorf("schedule audio sweep: %w", err)
			}
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-scheduler.Stop().Done()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting server", slog.String("addr", cfg.Server.Addr))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
