// Package cache journals room events onto a Redis list that the historian drains.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/forca/internal/config"
	"github.com/jason-s-yu/forca/internal/models"
	"github.com/redis/go-redis/v9"
)

// Connect returns a client for cfg after a successful ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// RedisJournal pushes each room event as JSON to the tail of Queue.
type RedisJournal struct {
	Client redis.Cmdable
	Queue  string
}

func NewRedisJournal(client redis.Cmdable, queue string) *RedisJournal {
	return &RedisJournal{Client: client, Queue: queue}
}

// Append implements game.Journal.
func (j *RedisJournal) Append(ctx context.Context, ev models.RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal room event: %w", err)
	}
	if err := j.Client.RPush(ctx, j.Queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", j.Queue, err)
	}
	return nil
}

// Pop blocks up to timeout for the next event at the head of the queue.
// It returns redis.Nil when the wait timed out.
func (j *RedisJournal) Pop(ctx context.Context, timeout time.Duration) (models.RoomEvent, error) {
	var ev models.RoomEvent
	res, err := j.Client.BLPop(ctx, timeout, j.Queue).Result()
	if err != nil {
		return ev, err
	}
	// BLPOP replies [key, value]
	if len(res) != 2 {
		return ev, fmt.Errorf("unexpected BLPOP reply of %d elements", len(res))
	}
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return ev, fmt.Errorf("decoding room event: %w", err)
	}
	return ev, nil
}
