package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"elan_bot/internal/bot"
	"elan_bot/internal/checker"
	"elan_bot/internal/config"
	"elan_bot/internal/profile"
	"elan_bot/internal/scheduler"
	"elan_bot/internal/scrape"
	"elan_bot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	profiles := profile.New(store, log)

	b, err := bot.New(cfg.TelegramBotToken, profiles, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := checker.New(profiles, scrape.New(http.DefaultClient), b, log)
	sched := scheduler.New(ctx, runner, profiles, b, log)
	b.Bind(runner, sched)

	log.Info("starting bot")

	if err := sched.Recover(ctx); err != nil {
		log.Error("recover schedules", "error", err)
	}

	b.Run(ctx)

	sched.Stop()

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
