package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"studytrack/internal/api"
	"studytrack/internal/places"
	"studytrack/internal/record"
	"studytrack/internal/stats"
	"studytrack/internal/storage"
	"studytrack/pkg/config"
	"studytrack/pkg/session"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	store, err := session.NewStore(cfg.Session)
	if err != nil {
		logger.Error("failed to initialize session store", "type", cfg.Session.Type, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	db, err := storage.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	if err != nil {
		logger.Error("failed to initialize storage client", "error", err)
		os.Exit(1)
	}

	manager := session.NewManager(store, logger)
	materializer := record.NewMaterializer(
		db.Spaces(),
		db.Records(),
		db.Feedback(),
		db.Emotions(),
		db.MoodTags(),
		manager,
		logger,
	)
	finder := places.NewClient(cfg.Places.APIKey, cfg.Places.Language, cfg.Places.Region)
	statsService := stats.NewService(db.Records())

	server := api.NewServer(
		manager,
		materializer,
		db.Records(),
		db.Feedback(),
		finder,
		statsService,
		[]byte(cfg.Supabase.JWTSecret),
		logger,
	)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router(),
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port, "session_store", cfg.Session.Type)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	logger.Info("server exited")
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
