package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-autopilot/config"
	"trading-autopilot/internal/api"
	"trading-autopilot/internal/autopilot"
	"trading-autopilot/internal/broker"
	"trading-autopilot/internal/circuit"
	"trading-autopilot/internal/database"
	"trading-autopilot/internal/dedup"
	"trading-autopilot/internal/events"
	"trading-autopilot/internal/lifecycle"
	"trading-autopilot/internal/market"
	"trading-autopilot/internal/notification"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().Msg("Starting trading autopilot")

	eventBus := events.NewEventBus()

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.RunMigrations(migrateCtx); err != nil {
		cancelMigrate()
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	cancelMigrate()

	dedupStore := newDedupStore(cfg.RedisConfig, logger)
	dedupTracker := dedup.NewTracker(dedupStore)

	feed := market.NewClient(cfg.MarketConfig.BaseURL, cfg.MarketConfig.APIKey)
	quoteTTL := time.Duration(cfg.MarketConfig.QuoteCacheTTL) * time.Second
	quotes := market.NewQuoteCache(feed, quoteTTL, nil)
	logger.Info().Str("base_url", cfg.MarketConfig.BaseURL).Dur("quote_ttl", quoteTTL).Msg("Market data client initialized")

	// Orders run through the paper gateway until a live brokerage
	// adapter is plugged in here. The autopilot's LIVE gates apply
	// either way.
	gateway := broker.NewPaperGateway(logger)

	breaker := circuit.NewBreaker(circuit.DefaultConfig(), nil)
	breaker.OnTrip(func(reason string) {
		logger.Warn().Str("reason", reason).Msg("Circuit breaker tripped, new entries halted")
		eventBus.Publish(events.Event{
			Type: events.EventCircuitTripped,
			Data: map[string]interface{}{"reason": reason},
		})
	})

	notifier := notification.NewManager(logger)
	notifier.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
		WebhookURL: cfg.NotifyConfig.DiscordWebhookURL,
		Enabled:    true,
	}))
	notifier.AddNotifier(notification.NewWebhookNotifier(notification.WebhookConfig{
		URL:     cfg.NotifyConfig.WebhookURL,
		Enabled: true,
	}))
	notifier.AttachBus(eventBus)

	engine := autopilot.NewEngine(db, feed, quotes, gateway, dedupTracker, nil, eventBus, logger, nil)
	engine.SetCircuitBreaker(breaker)
	manager := lifecycle.NewManager(db, quotes, gateway, eventBus, logger, nil)
	manager.SetCircuitBreaker(breaker)

	server := api.NewServer(api.ServerConfig{
		Host: cfg.ServerConfig.Host,
		Port: cfg.ServerConfig.Port,
	}, db, engine, manager, eventBus)
	server.SetCircuitBreaker(breaker)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.JSONFormat {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// newDedupStore prefers Redis so dedup state survives restarts; without
// a configured Redis it degrades to process-local state.
func newDedupStore(cfg config.RedisConfig, logger zerolog.Logger) dedup.Store {
	if cfg.Addr == "" {
		logger.Warn().Msg("Redis not configured, dedup state is in-memory only")
		return dedup.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis unreachable, dedup state is in-memory only")
		return dedup.NewMemoryStore()
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Redis connected for dedup state")
	return dedup.NewRedisStore(client)
}
