package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jason-s-yu/forca/internal/config"
	"github.com/jason-s-yu/forca/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectOrSkip needs a local Redis; without one the test is skipped.
func connectOrSkip(t *testing.T) *redis.Client {
	t.Helper()
	rdb, err := Connect(context.Background(), config.RedisConfig{Addr: "localhost:6379"})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestJournalRoundTrip(t *testing.T) {
	rdb := connectOrSkip(t)
	ctx := context.Background()
	queue := fmt.Sprintf("forca_test_%d", time.Now().UnixNano())
	t.Cleanup(func() { rdb.Del(context.Background(), queue) })

	j := NewRedisJournal(rdb, queue)
	for seq := 1; seq <= 2; seq++ {
		require.NoError(t, j.Append(ctx, models.RoomEvent{
			RoomID: "R", Seq: seq, Event: "jogada",
			Payload: map[string]interface{}{"letra": "A"}, Timestamp: time.Now().UnixMilli(),
		}))
	}

	first, err := j.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, "A", first.Payload["letra"])

	second, err := j.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Seq)

	_, err = j.Pop(ctx, 100*time.Millisecond)
	assert.True(t, errors.Is(err, redis.Nil))
}
