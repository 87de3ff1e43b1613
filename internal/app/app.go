// Package app wires configuration into a ready Studio for both front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"kol-studio/internal/config"
	"kol-studio/internal/gemini"
	"kol-studio/internal/handoff"
	"kol-studio/internal/httpclient"
	"kol-studio/internal/library"
	"kol-studio/internal/session"
	"kol-studio/internal/studio"
	"kol-studio/internal/veo"
)

type App struct {
	Studio     *studio.Studio
	HTTPClient *http.Client
	Logger     *slog.Logger

	redis *redis.Client
}

func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     logger,
	})

	a := &App{HTTPClient: httpClient, Logger: logger}

	if cfg.NeedsRedis() {
		rdb, err := connectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
	}

	persister, err := a.libraryPersister(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var store handoff.Store
	if cfg.HandoffBackend == config.BackendRedis {
		store = &handoff.RedisStore{Client: a.redis, TTL: cfg.HandoffTTL}
	}

	gem := gemini.New(gemini.Options{
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		APIVersion:   cfg.GeminiAPIVersion,
		HTTPClient:   httpClient,
		Logger:       logger,
		MaxRetries:   retries(cfg.GeminiMaxRetries),
		InitialDelay: cfg.GeminiRetryDelay,
	})

	backend, err := veo.NewGenAIBackend(ctx, cfg.GeminiAPIKey, httpClient)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("veo backend: %w", err)
	}
	video := veo.New(veo.Options{
		APIKey:       cfg.GeminiAPIKey,
		Backend:      backend,
		HTTPClient:   httpClient,
		Logger:       logger,
		PollInterval: cfg.VeoPollInterval,
	})

	a.Studio = studio.New(studio.Options{
		Sessions: session.NewStore(session.Options{IdleTimeout: cfg.SessionIdleTimeout}),
		Library:  library.NewStore(library.Options{Persister: persister, Logger: logger}),
		Handoff:  handoff.New(handoff.Options{Store: store, Logger: logger}),
		Images:   gem,
		Text:     gem,
		Video:    video,
		Logger:   logger,
	})

	logger.Info("studio ready",
		"library_backend", cfg.LibraryBackend,
		"handoff_backend", cfg.HandoffBackend,
	)
	return a, nil
}

// retries maps the configured count onto gemini.Options, where 0 means
// the default and a negative value disables retries.
func retries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func (a *App) libraryPersister(cfg config.Config) (library.Persister, error) {
	switch cfg.LibraryBackend {
	case config.BackendFile:
		if err := os.MkdirAll(cfg.LibraryPath, 0o755); err != nil {
			return nil, fmt.Errorf("library dir: %w", err)
		}
		return &library.FilePersister{Dir: cfg.LibraryPath}, nil
	case config.BackendRedis:
		return &library.RedisPersister{Client: a.redis}, nil
	case config.BackendSupabase:
		return library.NewSupabasePersister(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable)
	default:
		return nil, nil
	}
}

func connectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}

// PruneSessions drops idle workspaces on every tick until ctx ends, and
// cancels any generation still running for them.
func (a *App) PruneSessions(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped := a.Studio.Sessions().Prune()
			for _, owner := range dropped {
				a.Studio.Cancel(owner)
			}
			if len(dropped) > 0 {
				a.Logger.Info("idle sessions pruned", "count", len(dropped))
			}
		}
	}
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
