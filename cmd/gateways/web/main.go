package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	config "github.com/eventsonar/backend/config/web"
	web "github.com/eventsonar/backend/gateways/web"
	"github.com/eventsonar/backend/pkg/logger"
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

	srv, err := web.New(cfg, log)
	if err != nil {
		log.Error("failed to create web gateway", slog.String("error", err.Error()))
		return
	}

	if err := srv.Start(rootCtx); err != nil {
		log.Error("web gateway stopped with error", slog.String("error", err.Error()))
	}
}
