/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the wedding seating server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Configure zerolog
  3. Initialize SQLite store
  4. Build notifiers (websocket hub, Redis when configured)
  5. Create engine, handler and router
  6. Run HTTP server (and Redis relay) under one errgroup

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: PORT or 8080)
  -db      SQLite database path (default: DB_PATH or seating.db)
           Use ":memory:" for in-memory database
  -env     Optional .env file (default: .env)

EVENT DELIVERY:
  Without REDIS_URL the engine publishes straight to the websocket hub.
  With REDIS_URL the engine publishes to Redis only and a relay feeds the
  hub from Redis, so every instance behind a load balancer sees every event.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the Redis relay and close the database
  4. Exit

EXAMPLES:
  ./server -db="./data/seating.db"
  LOG_FORMAT=pretty ./server -db=":memory:"
  REDIS_URL=redis://localhost:6379/0 ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/warp/seating-engine/api"
	"github.com/warp/seating-engine/config"
	"github.com/warp/seating-engine/notify"
	"github.com/warp/seating-engine/seating"
	"github.com/warp/seating-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	// Flags
	envFile := flag.String("env", ".env", "optional .env file")
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	setupLogging(cfg)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	hub := notify.NewHub(cfg.AllowedOrigins, log.With().Str("component", "hub").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// Notifiers
	notifiers := notify.Fanout{notify.LogNotifier{
		Logger: log.With().Str("component", "events").Logger(),
		Level:  zerolog.DebugLevel,
	}}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		publisher := notify.NewRedisPublisher(rdb, cfg.RedisChannelPrefix)
		notifiers = append(notifiers, publisher)
		g.Go(func() error { return publisher.Relay(gctx, hub) })
		log.Info().Str("channel_prefix", cfg.RedisChannelPrefix).Msg("publishing seating events to redis")
	} else {
		notifiers = append(notifiers, hub)
	}

	engine := seating.NewEngine(store, notifiers, log.With().Str("component", "engine").Logger())
	handler := api.NewHandler(engine, hub, log.With().Str("component", "api").Logger())
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		log.Info().Int("port", cfg.Port).Str("db", cfg.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
