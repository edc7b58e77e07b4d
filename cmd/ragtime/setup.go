package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/ragtime"
	"github.com/poiesic/ragtime/config"
	"github.com/poiesic/ragtime/history"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the configuration file and applies command line overrides.
func loadConfig(c *cli.Context) (*config.File, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	if host := c.String("host"); host != "" {
		cfg.AI.EmbeddingHost = host
		cfg.AI.ChatHost = host
	}
	if model := c.String("chat-model"); model != "" {
		cfg.AI.ChatModel = model
	}
	if model := c.String("embedding-model"); model != "" {
		cfg.AI.EmbeddingModel = model
	}
	if collection := c.String("collection"); collection != "" {
		cfg.Pipeline.Collection = collection
		cfg.Ingestion.Collection = collection
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEngine(cfg *config.File) (*ragtime.Engine, error) {
	opts := []ragtime.EngineOption{ragtime.WithAIConfig(cfg.AI)}
	if cfg.Storage.InMemory {
		opts = append(opts, ragtime.WithInMemory())
	}
	engine, err := ragtime.OpenEngine(cfg.Storage.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}

// newSessionStore returns the Redis store when one is configured and an
// in-process store otherwise. The returned func releases the client.
func newSessionStore(ctx context.Context, cfg *config.File) (history.Store, func() error, error) {
	limit := cfg.Pipeline.HistoryLimit
	if !cfg.Redis.Enabled() {
		store, err := history.NewMemoryStore(limit)
		return store, func() error { return nil }, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	store, err := history.NewRedisStore(client, limit,
		history.WithTTL(cfg.Redis.TTL),
		history.WithKeyPrefix(cfg.Redis.KeyPrefix))
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return store, client.Close, nil
}
