// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/forca/internal/auth"
	"github.com/jason-s-yu/forca/internal/cache"
	"github.com/jason-s-yu/forca/internal/config"
	"github.com/jason-s-yu/forca/internal/database"
	"github.com/jason-s-yu/forca/internal/game"
	"github.com/jason-s-yu/forca/internal/handlers"
	"github.com/jason-s-yu/forca/internal/hub"
	"github.com/jason-s-yu/forca/internal/middleware"
	"github.com/jason-s-yu/forca/internal/stream"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("loading config: %v", err)
	}
	logger := cfg.Logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	var issuer *auth.Issuer
	if cfg.Auth.KeyFile != "" {
		issuer, err = auth.NewIssuerFromFile(cfg.Auth.KeyFile, cfg.Auth.TokenTTL)
	} else {
		logger.Warn("auth.key_file not set, sessions will not survive a restart")
		issuer, err = auth.NewIssuer(cfg.Auth.TokenTTL)
	}
	if err != nil {
		logger.Fatalf("setting up session tokens: %v", err)
	}

	var journals game.MultiJournal
	if cfg.Redis.Enabled() {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("connecting to redis: %v", err)
		}
		defer rdb.Close()
		journals = append(journals, cache.NewRedisJournal(rdb, cfg.Redis.Queue))
		logger.Infof("journaling room events to redis list %s", cfg.Redis.Queue)
	}
	if cfg.Kafka.Enabled() {
		kj := stream.NewKafkaJournal(cfg.Kafka)
		defer kj.Close()
		journals = append(journals, kj)
		logger.Infof("streaming room events to kafka topic %s", cfg.Kafka.Topic)
	}

	words := &database.WordStore{Pool: pool}
	players := &database.PlayerStore{Pool: pool}
	connections := hub.New(logger)

	opts := game.Options{
		Words:       words,
		Broadcaster: connections,
		Results:     &database.ResultStore{Pool: pool},
		Logger:      logger,
		Settings:    cfg.Game.Settings(),
	}
	if len(journals) > 0 {
		opts.Journal = journals
	}
	registry := game.NewRegistry(opts)

	gs := &handlers.GameServer{
		Registry:       registry,
		Hub:            connections,
		Issuer:         issuer,
		RateLimit:      rate.Limit(cfg.Game.RateLimit),
		RateBurst:      cfg.Game.RateBurst,
		OutBuffer:      cfg.Server.OutBuffer,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", handlers.GameWSHandler(logger, gs))
	mux.HandleFunc("GET /categories", handlers.ListCategoriesHandler(logger, words))
	mux.HandleFunc("GET /words/{categoryId}", handlers.ListWordsHandler(logger, words))
	mux.HandleFunc("POST /players", handlers.CreatePlayerHandler(logger, players))
	mux.HandleFunc("POST /players/login", handlers.LoginHandler(logger, players, issuer))
	mux.HandleFunc("GET /rooms", handlers.ListRoomsHandler(registry))
	mux.HandleFunc("GET /healthz", handlers.HealthHandler(pool.Ping))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           middleware.LogMiddleware(logger)(c.Handler(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Shutdown does not wait for hijacked websocket connections; BaseContext ends them
	// on the same signal.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server exited: %v", err)
	}
}
