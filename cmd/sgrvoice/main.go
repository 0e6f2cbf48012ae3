package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sglre6355/sgrvoice/internal/bot"
	_ "github.com/sglre6355/sgrvoice/internal/modules/voice"
)

// version is overridden at link time:
// go build -ldflags "-X main.version=1.0.0" ./cmd/sgrvoice
var version = "dev"

func main() {
	// The handler starts at info; run lowers or raises it from LOG_LEVEL.
	var level slog.LevelVar
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &level); err != nil {
		slog.Error("sgrvoice exited with error", "error", err)
		os.Exit(1)
	}
}

// run starts the bot and blocks until ctx is cancelled.
func run(ctx context.Context, level *slog.LevelVar) error {
	slog.Info("starting sgrvoice", "version", version)

	cfg, err := bot.LoadConfig()
	if err != nil {
		return err
	}
	level.Set(cfg.LogLevel)

	b := bot.NewBot(cfg)
	b.LoadModules()

	if err := b.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("received termination signal, shutting down")

	if err := b.Stop(); err != nil {
		slog.Error("failed to shutdown", "error", err)
	}
	slog.Info("completed bot shutdown")
	return nil
}
