// Package main is the entry point for the article API server.
//
// main only wires things together: it reads configuration, opens the
// database, picks the asset store and notification channels, and hands
// the assembled services to the HTTP server. All behaviour lives in the
// internal packages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/sakif/article-api/internal/auth"
	"github.com/sakif/article-api/internal/config"
	"github.com/sakif/article-api/internal/notify"
	sqliteRepo "github.com/sakif/article-api/internal/repository/sqlite"
	"github.com/sakif/article-api/internal/server"
	"github.com/sakif/article-api/internal/service"
	"github.com/sakif/article-api/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run exists so deferred cleanups happen before os.Exit.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// === DATABASE ===
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// === ASSETS ===
	assets, assetDir, err := newAssetStore(ctx, cfg)
	if err != nil {
		return err
	}

	// === NOTIFICATIONS ===
	// Deferred after db.Close so it runs first: queued welcome messages are
	// delivered before the process exits.
	dispatcher := notify.NewDispatcher(logger, cfg.Notify.Workers, cfg.Notify.QueueSize,
		newChannels(cfg, logger)...)
	defer dispatcher.Close()

	// === AUTH ===
	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	sessions := auth.NewSessions(tokens, db)
	passwords := auth.NewPasswordService()

	// === SERVICES ===
	// db implements every repository interface.
	users := service.NewUserService(db, sessions, passwords, assets, dispatcher, logger)
	articles := service.NewArticleService(db, assets, logger)

	srv, err := server.New(server.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AssetDir:        assetDir,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
	}, server.Deps{
		Users:    users,
		Articles: articles,
		Verifier: sessions,
		DB:       db,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("starting",
		slog.Int("port", cfg.Server.Port),
		slog.String("database", cfg.Database.Path),
		slog.String("storage", cfg.Storage.Driver),
	)
	return srv.Run(ctx)
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// An unknown level falls back to info.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newAssetStore returns the configured store and, for the local driver,
// the directory the server should expose under /storage/.
func newAssetStore(ctx context.Context, cfg *config.Config) (storage.Store, string, error) {
	if cfg.Storage.Driver == config.StorageS3 {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			PublicURL: cfg.Storage.S3PublicURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("creating s3 store: %w", err)
		}
		return store, "", nil
	}

	store, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Server.PublicBaseURL+"/storage")
	if err != nil {
		return nil, "", fmt.Errorf("creating local store: %w", err)
	}
	return store, store.Root(), nil
}

// newChannels picks a real sender per channel when its credentials are
// set, and a logging stand-in otherwise, so development needs no Twilio
// or SMTP account.
func newChannels(cfg *config.Config, logger *slog.Logger) []notify.Channel {
	var channels []notify.Channel

	if cfg.TwilioConfigured() {
		channels = append(channels, notify.NewWhatsAppChannel(cfg.Twilio.SID, cfg.Twilio.Token, cfg.Twilio.WhatsAppFrom))
	} else {
		logger.Warn("Twilio credentials not set; WhatsApp messages will only be logged")
		channels = append(channels, notify.NewLogChannel("whatsapp", logger))
	}

	if cfg.EmailConfigured() {
		channels = append(channels, notify.NewEmailChannel(notify.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     strconv.Itoa(cfg.Email.SMTPPort),
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.FromEmail,
			FromName: cfg.Email.FromName,
		}))
	} else {
		logger.Warn("SMTP settings not set; welcome emails will only be logged")
		channels = append(channels, notify.NewLogChannel("email", logger))
	}

	return channels
}
