package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	config "github.com/eventsonar/backend/config/events"
	"github.com/eventsonar/backend/pkg/logger"
	"github.com/eventsonar/backend/services/events/handler"
	"github.com/eventsonar/backend/services/events/server"
	"github.com/eventsonar/backend/services/events/storage"
	"github.com/eventsonar/backend/services/events/usecase"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:      slog.LevelDebug,
		Output:     os.Stderr,
		AddSource:  true,
		JSONFormat: false,
	})

	cfg := config.MustLoad()

	ctx := logger.WithContext(context.Background(), log)
	rootCtx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("failed to run()", slog.String("error", err.Error()))
		return
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	stg, err := storage.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer stg.Close()

	usc := usecase.New(stg)
	h := handler.New(usc, log)

	return server.New(cfg, h, log).Start(ctx)
}
