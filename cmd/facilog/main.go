package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/facilog/facilog/pkg/config"
	"github.com/facilog/facilog/pkg/draft"
	"github.com/facilog/facilog/pkg/log"
	"github.com/facilog/facilog/pkg/publisher"
	"github.com/facilog/facilog/pkg/reconciler"
	"github.com/facilog/facilog/pkg/server"
	"github.com/facilog/facilog/pkg/storage"
)

func main() {
	// .env is optional and never overrides the real environment
	_ = godotenv.Load()

	// init packages
	db := storage.Configured()
	drafts := draft.Configured()
	pub := publisher.Configured()

	site := &config.Site{}
	sitePath := lflag.String("site-config", "", "Path to the site layout YAML (empty uses the built-in layout)")
	lflag.Do(func() {
		loaded, err := config.Load(*sitePath)
		if err != nil {
			panic(fmt.Sprintf("site config: %v", err))
		}
		*site = *loaded
	})

	rec := reconciler.New(db, drafts, site, nil)
	srv := server.Configured(rec, db, site, pub)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		pub.Close()
		if err := drafts.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close draft cache", "error", err)
		}
		if err := db.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	// Run blocks until the context is canceled or an error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
