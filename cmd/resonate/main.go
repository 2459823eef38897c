package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/resonate-app/resonate/internal/api"
	"github.com/resonate-app/resonate/internal/catalog"
	"github.com/resonate-app/resonate/internal/config"
	"github.com/resonate-app/resonate/internal/configwatch"
	"github.com/resonate-app/resonate/internal/database"
	"github.com/resonate-app/resonate/internal/encryption"
	"github.com/resonate-app/resonate/internal/history"
	"github.com/resonate-app/resonate/internal/logging"
	"github.com/resonate-app/resonate/internal/provider"
	"github.com/resonate-app/resonate/internal/provider/discogs"
	"github.com/resonate-app/resonate/internal/provider/spotify"
	"github.com/resonate-app/resonate/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("RS_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	encKey, err := resolveEncryptionKey(cfg, logger)
	if err != nil {
		return fmt.Errorf("resolving encryption key: %w", err)
	}
	encryptor, _, err := encryption.NewEncryptor(encKey)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	settings := provider.NewSettingsService(db, encryptor)
	settings.SetOverride(provider.NameSpotify, provider.FieldClientID, cfg.Providers.SpotifyClientID)
	settings.SetOverride(provider.NameSpotify, provider.FieldClientSecret, cfg.Providers.SpotifyClientSecret)
	settings.SetOverride(provider.NameDiscogs, provider.FieldToken, cfg.Providers.DiscogsToken)

	limiters := provider.NewRateLimiterMap()
	timeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second

	spotifyClient := spotify.New(limiters, settings, logger, timeout)
	discogsClient := discogs.New(limiters, settings, logger, timeout)

	matcher := catalog.NewMatcher(discogsClient, cfg.Providers.DiscogsWebRoot, logger)
	aggregator := catalog.NewAggregator(discogsClient, logger)
	historyService := history.NewService(db)
	catalogService := catalog.NewService(spotifyClient, discogsClient, matcher, historyService, cfg.Providers.DiscogsWebRoot, logger)

	router := api.NewRouter(api.RouterDeps{
		CatalogService:   catalogService,
		Aggregator:       aggregator,
		HistoryService:   historyService,
		ProviderSettings: settings,
		Logger:           logger,
		BasePath:         cfg.Server.BasePath,
		StaticDir:        "web/static",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go configwatch.New(configPath, logManager, logger).Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting resonate",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// resolveEncryptionKey determines the credential encryption key.
// Priority: RS_ENCRYPTION_KEY env var > key file next to the database >
// generate new and persist.
func resolveEncryptionKey(cfg *config.Config, logger *slog.Logger) (string, error) {
	if v := os.Getenv("RS_ENCRYPTION_KEY"); v != "" {
		return v, nil
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	keyFile := filepath.Join(dataDir, "encryption.key")

	data, err := os.ReadFile(keyFile) //nolint:gosec // G304: path derived from trusted config
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key != "" {
			logger.Debug("loaded encryption key from file", slog.String("path", keyFile))
			return key, nil
		}
	}

	_, key, err := encryption.NewEncryptor("")
	if err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		logger.Warn("could not create data directory for encryption key",
			slog.String("path", dataDir), slog.Any("error", err))
		return key, nil
	}
	if err := os.WriteFile(keyFile, []byte(key+"\n"), 0o600); err != nil {
		logger.Warn("could not save encryption key to file",
			slog.String("path", keyFile), slog.Any("error", err))
	} else {
		logger.Warn("generated new encryption key -- back up this file",
			slog.String("path", keyFile))
	}

	return key, nil
}
