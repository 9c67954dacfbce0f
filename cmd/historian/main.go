// cmd/historian drains journaled room events from Redis into Postgres.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/forca/internal/cache"
	"github.com/jason-s-yu/forca/internal/config"
	"github.com/jason-s-yu/forca/internal/database"
	"github.com/jason-s-yu/forca/internal/historian"
	"github.com/jason-s-yu/forca/internal/models"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("loading config: %v", err)
	}
	logger := cfg.Logging.NewLogger()
	if !cfg.Redis.Enabled() {
		logger.Fatal("historian needs redis.addr to be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Fatalf("connecting to redis: %v", err)
	}
	defer rdb.Close()

	sink := historian.SinkFunc(func(ctx context.Context, events []models.RoomEvent) error {
		return database.InsertRoomEvents(ctx, pool, events)
	})
	svc := historian.New(cache.NewRedisJournal(rdb, cfg.Redis.Queue), sink, cfg.Historian, logger)
	if err := svc.Run(ctx); err != nil {
		logger.Fatalf("historian: %v", err)
	}
}
