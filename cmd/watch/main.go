package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"colorshift/pkg/config"
	"colorshift/pkg/notify"
	"colorshift/pkg/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration", "err", err)
	}

	logger := log.NewWithOptions(os.Stdout, log.Options{
		Level:           cfg.LogLevel,
		ReportTimestamp: true,
		Prefix:          "[Watch]",
	})
	logger.SetColorProfile(termenv.TrueColor)

	analyzer, err := cfg.Analyzer()
	if err != nil {
		logger.Fatal("Could not load color ranges", "path", cfg.RangesFile, "err", err)
	}

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt)
	defer done()

	var publisher notify.Publisher = notify.Log{Logger: logger}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:           cfg.TelegramToken,
			SubscribersFile: cfg.SubscribersFile,
			Output:          os.Stdout,
			Level:           cfg.LogLevel,
		})
		if err != nil {
			logger.Fatal("Could not create Telegram publisher", "err", err)
		}
		if err := tg.Start(); err != nil {
			logger.Fatal("Could not start Telegram publisher", "err", err)
		}
		defer func() {
			if err := tg.Stop(); err != nil {
				logger.Error("Error stopping Telegram publisher", "err", err)
			}
		}()
		publisher = tg
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, alerts are only logged")
	}

	w := &watch.Watcher{
		Dir:       cfg.WatchDir,
		Interval:  cfg.WatchInterval,
		Analyzer:  analyzer,
		Options:   cfg.Options(),
		MaxDim:    cfg.MaxDim,
		Publisher: publisher,
		Logger:    logger,
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Watcher stopped", "err", err)
	}
}
